// Package storage implements the storage node: the flat on-disk layout of
// payload/.meta/.bak files, the sentence lock table, per-connection write
// sessions, and the two network loops (the long-lived control connection to
// the coordinator, and the public client-facing accept loop). Grounded on
// the teacher's pkg/payload/store/fs/store.go for the atomic write
// discipline and pkg/adapter/base.go for the accept-loop shape.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/pkg/docmodel"
)

// Store owns one storage node's flat directory of payload files and their
// .meta/.bak siblings.
type Store struct {
	dir string
}

// NewStore opens (creating if absent) dir as a storage node's data
// directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(filename string) string    { return filepath.Join(s.dir, filename) }
func (s *Store) metaPath(filename string) string { return filepath.Join(s.dir, filename+".meta") }
func (s *Store) bakPath(filename string) string  { return filepath.Join(s.dir, filename+".bak") }

// Exists reports whether filename's payload is present on disk.
func (s *Store) Exists(filename string) bool {
	_, err := os.Stat(s.path(filename))
	return err == nil
}

// ReadMeta loads and parses filename's .meta sidecar.
func (s *Store) ReadMeta(filename string) (*docmodel.Metadata, error) {
	data, err := os.ReadFile(s.metaPath(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, docerr.NotFoundError(filename)
		}
		return nil, docerr.InternalError("read meta: " + err.Error())
	}
	return docmodel.ParseMetaFile(data), nil
}

// WriteMetaAtomic replaces filename's .meta sidecar in one atomic
// write-to-temp-then-rename, the same discipline the teacher's fs payload
// store uses for its blobs (see DESIGN.md).
func (s *Store) WriteMetaAtomic(filename string, m *docmodel.Metadata) error {
	final := s.metaPath(filename)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, docmodel.EncodeMetaFile(m), 0o644); err != nil {
		return docerr.InternalError("write meta tmp: " + err.Error())
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return docerr.InternalError("rename meta: " + err.Error())
	}
	return nil
}

// CreateEmpty creates filename's empty payload and its initial .meta (owner
// self-granted READ|WRITE), rolling the payload back if the .meta write
// fails (spec.md §4.2's CREATE handler: "on any error after creating the
// file but before writing .meta, unlink the file").
func (s *Store) CreateEmpty(filename, owner string, now int64) error {
	if s.Exists(filename) {
		return docerr.FileExistsError(filename)
	}
	if err := os.WriteFile(s.path(filename), nil, 0o644); err != nil {
		return docerr.InternalError("create payload: " + err.Error())
	}
	m := &docmodel.Metadata{
		Owner:        owner,
		Created:      now,
		LastModified: now,
		LastAccessed: now,
		ACL:          []docmodel.ACLEntry{{Username: owner, Permission: docmodel.PermRead | docmodel.PermWrite}},
	}
	if err := s.WriteMetaAtomic(filename, m); err != nil {
		os.Remove(s.path(filename))
		return err
	}
	return nil
}

// ReadFile slurps filename's full payload into memory (used both by the
// client-facing READ/STREAM handlers and the WRITE session's initial load).
func (s *Store) ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(s.path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, docerr.NotFoundError(filename)
		}
		return nil, docerr.InternalError("read payload: " + err.Error())
	}
	return data, nil
}

// CommitWrite implements ETIRW's backup-then-replace sequence (spec.md
// §4.2 step 7): rename path to path.bak, then write the new buffer to
// path; on write failure, restore the original content by renaming the
// backup back.
func (s *Store) CommitWrite(filename string, data []byte) error {
	path, bak := s.path(filename), s.bakPath(filename)
	if err := os.Rename(path, bak); err != nil {
		return docerr.InternalError("backup rename: " + err.Error())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		if rerr := os.Rename(bak, path); rerr != nil {
			return docerr.InternalError("write failed and restore failed: " + rerr.Error())
		}
		return docerr.InternalError("write commit buffer: " + err.Error())
	}
	return nil
}

// Undo restores filename from its .bak, per spec.md §4.2's UNDO handler.
func (s *Store) Undo(filename string) error {
	bak := s.bakPath(filename)
	if _, err := os.Stat(bak); err != nil {
		return docerr.NotFoundError(filename)
	}
	if err := os.Rename(bak, s.path(filename)); err != nil {
		return docerr.InternalError("undo rename: " + err.Error())
	}
	return nil
}

// Delete removes filename's payload and best-effort removes its .meta and
// .bak siblings, per spec.md §4.2's DELETE handler.
func (s *Store) Delete(filename string) error {
	if !s.Exists(filename) {
		return docerr.NotFoundError(filename)
	}
	if err := os.Remove(s.path(filename)); err != nil {
		return docerr.InternalError("delete payload: " + err.Error())
	}
	os.Remove(s.metaPath(filename))
	os.Remove(s.bakPath(filename))
	return nil
}
