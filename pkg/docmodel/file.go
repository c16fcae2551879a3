// Package docmodel defines the data types shared by the coordinator and
// storage node: file metadata, access-control entries, sentence/word
// parsing, and the two ACL serialization formats (the wire argument format
// used by UPDATE_ACL and the on-disk .meta sidecar format).
package docmodel

import (
	"strings"
	"unicode"
)

// Permission is a bitmask over a user's rights on a file. WRITE implies
// READ (invariant I7): NormalizePermission enforces this at every
// construction site rather than trusting callers to set both bits.
type Permission uint8

const (
	PermNone  Permission = 0
	PermRead  Permission = 1 << 0
	PermWrite Permission = 1 << 1
)

// NormalizePermission folds WRITE-implies-READ into p.
func NormalizePermission(p Permission) Permission {
	if p&PermWrite != 0 {
		return p | PermRead
	}
	return p
}

func (p Permission) CanRead() bool  { return p&PermRead != 0 }
func (p Permission) CanWrite() bool { return p&PermWrite != 0 }

// ACLEntry is one row of a file's access-control list.
type ACLEntry struct {
	Username   string
	Permission Permission
}

// Metadata is FileMetadata from the spec: everything the owning storage
// node persists in a file's .meta sidecar, and the coordinator caches
// advisorially. ACL order matters for serialization (spec §4.1 step 3) and
// for AccessCount, so it stays a slice, not a map.
type Metadata struct {
	Owner          string
	Created        int64
	LastModified   int64
	LastAccessed   int64
	LastAccessedBy string
	Size           int64
	WordCount      int
	CharCount      int
	ACL            []ACLEntry
}

// AccessCount is len(ACL), named to match spec.md's access_count field.
func (m *Metadata) AccessCount() int { return len(m.ACL) }

// PermissionFor returns the effective permission username holds: the
// owner always has full READ|WRITE regardless of ACL contents (the
// owner's self-entry is also kept in ACL at CREATE time and is
// immutable per invariant I6, but ownership itself is the authoritative
// check — a corrupted/rewritten ACL can never lock the owner out).
func (m *Metadata) PermissionFor(username string) Permission {
	if username == m.Owner {
		return PermRead | PermWrite
	}
	for _, e := range m.ACL {
		if e.Username == username {
			return e.Permission
		}
	}
	return PermNone
}

// SetPermission inserts or updates username's ACL entry, normalizing
// WRITE-implies-READ. Used by ADDACCESS. Attempting to change the owner's
// entry is a caller error the coordinator must reject before calling this
// (invariant I6); SetPermission itself does not special-case the owner so
// it stays usable for CREATE's initial self-grant.
func (m *Metadata) SetPermission(username string, p Permission) {
	p = NormalizePermission(p)
	for i := range m.ACL {
		if m.ACL[i].Username == username {
			m.ACL[i].Permission = p
			return
		}
	}
	m.ACL = append(m.ACL, ACLEntry{Username: username, Permission: p})
}

// RemovePermission deletes username's ACL entry (REMACCESS), preserving
// the relative order of the remaining entries (spec: "remove entry
// in-memory (shift-down)").
func (m *Metadata) RemovePermission(username string) {
	for i := range m.ACL {
		if m.ACL[i].Username == username {
			m.ACL = append(m.ACL[:i], m.ACL[i+1:]...)
			return
		}
	}
}

// Clone deep-copies m, used for the coordinator's snapshot-before-mutate
// ACL persistence protocol (spec §4.1): old_meta := meta.Clone() before
// mutating, meta = old_meta on rollback.
func (m *Metadata) Clone() *Metadata {
	cp := *m
	cp.ACL = append([]ACLEntry(nil), m.ACL...)
	return &cp
}

// SerializeACLWire renders the ACL in the UPDATE_ACL wire-argument format:
// "user1:RW,user2:R,user3:-" — WRITE-only is written RW since WRITE
// implies READ, pure READ is R, no permission is "-".
func SerializeACLWire(acl []ACLEntry) string {
	parts := make([]string, 0, len(acl))
	for _, e := range acl {
		parts = append(parts, e.Username+":"+permissionToken(e.Permission))
	}
	return strings.Join(parts, ",")
}

// ParseACLWire parses the UPDATE_ACL wire-argument format back into
// entries. Malformed entries are skipped rather than erroring the whole
// parse — the coordinator constructs this string itself, so malformed
// input here only arises from a corrupted frame, which the checksum
// already guards against upstream.
func ParseACLWire(s string) []ACLEntry {
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	entries := make([]ACLEntry, 0, len(fields))
	for _, f := range fields {
		user, tok, ok := strings.Cut(f, ":")
		if !ok || user == "" {
			continue
		}
		entries = append(entries, ACLEntry{Username: user, Permission: permissionFromToken(tok)})
	}
	return entries
}

func permissionToken(p Permission) string {
	switch {
	case p.CanWrite():
		return "RW"
	case p.CanRead():
		return "R"
	default:
		return "-"
	}
}

func permissionFromToken(tok string) Permission {
	switch tok {
	case "RW":
		return PermRead | PermWrite
	case "R":
		return PermRead
	default:
		return PermNone
	}
}

// ValidFilename reports whether name satisfies spec.md's filename policy:
// case-sensitive, <=256 bytes, no path separators, none of <>:"|?*.
func ValidFilename(name string) bool {
	if name == "" || len(name) > 256 {
		return false
	}
	for _, r := range name {
		switch r {
		case '/', '\\', '<', '>', ':', '"', '|', '?', '*':
			return false
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
