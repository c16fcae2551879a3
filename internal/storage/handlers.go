package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/internal/wire"
	"github.com/opendocstore/docstore/pkg/docmodel"
)

// dispatchControl handles a request arriving over the single control
// connection to the coordinator: CREATE, DELETE, UPDATE_ACL, UNDO, and the
// CMD_READ fetch used by EXEC. These are distinct from the client-facing
// handlers in conn.go because they never hold a connection open across
// multiple frames and never touch the sentence lock table.
func (s *Server) dispatchControl(req wire.Request) wire.Response {
	s.metrics.RequestsTotal.WithLabelValues(req.Command.String()).Inc()

	var resp wire.Response
	switch req.Command {
	case wire.CmdCreate:
		resp = s.handleCreate(req)
	case wire.CmdDelete:
		resp = s.handleDelete(req)
	case wire.CmdUpdateACL:
		resp = s.handleUpdateACL(req)
	case wire.CmdUndo:
		resp = s.handleUndo(req)
	case wire.CmdRead:
		resp = s.handleControlRead(req)
	default:
		resp = errResponse(docerr.InvalidOperationError("unsupported control command: " + req.Command.String()))
	}

	if resp.Status != wire.StatusOK {
		s.metrics.ErrorsTotal.WithLabelValues(req.Command.String(), resp.Status.String()).Inc()
	}
	return resp
}

func errResponse(err *docerr.Error) wire.Response {
	return wire.Response{Status: wire.StatusFromCode(err.Code), Data: err.Error()}
}

func okResponse(data string) wire.Response {
	return wire.Response{Status: wire.StatusOK, Data: data}
}

// handleCreate implements spec.md §4.2's CREATE handler.
func (s *Server) handleCreate(req wire.Request) wire.Response {
	filename := strings.TrimSpace(req.Args)
	if !docmodel.ValidFilename(filename) {
		return errResponse(docerr.InvalidFilenameError(filename))
	}
	if err := s.store.CreateEmpty(filename, req.Username, time.Now().Unix()); err != nil {
		if de, ok := err.(*docerr.Error); ok {
			return errResponse(de)
		}
		return errResponse(docerr.InternalError(err.Error()))
	}
	return okResponse("created")
}

// handleDelete implements spec.md §4.2's DELETE handler. Ownership is
// enforced here, at the storage node, not the coordinator (spec.md's
// deliberate layering choice).
func (s *Server) handleDelete(req wire.Request) wire.Response {
	filename := strings.TrimSpace(req.Args)
	meta, err := s.store.ReadMeta(filename)
	if err != nil {
		return errResponse(asDocErr(err))
	}
	if meta.Owner != req.Username {
		return errResponse(docerr.OwnerRequiredError(filename))
	}
	if err := s.store.Delete(filename); err != nil {
		return errResponse(asDocErr(err))
	}
	return okResponse("deleted")
}

// handleUpdateACL implements spec.md §4.2's UPDATE_ACL handler. Args is
// "<filename> <serialized_acl>"; every non-ACL field of the existing .meta
// is preserved verbatim.
func (s *Server) handleUpdateACL(req wire.Request) wire.Response {
	filename, serialized, ok := strings.Cut(strings.TrimSpace(req.Args), " ")
	if !ok {
		return errResponse(docerr.InvalidArgsError("UPDATE_ACL requires \"<filename> <acl>\""))
	}
	meta, err := s.store.ReadMeta(filename)
	if err != nil {
		return errResponse(asDocErr(err))
	}
	meta.ACL = docmodel.ParseACLWire(serialized)
	if err := s.store.WriteMetaAtomic(filename, meta); err != nil {
		return errResponse(asDocErr(err))
	}
	return okResponse("acl updated")
}

// handleUndo implements spec.md §4.2's UNDO handler.
func (s *Server) handleUndo(req wire.Request) wire.Response {
	filename := strings.TrimSpace(req.Args)
	if err := s.store.Undo(filename); err != nil {
		return errResponse(asDocErr(err))
	}
	return okResponse("undone")
}

// handleControlRead serves EXEC's coordinator-side file fetch (spec.md
// §4.1's EXEC op: "fetches file bytes from S via CMD_READ"). EXEC is named
// in spec.md §1 as a peripheral, out-of-core capability, so unlike the
// client-facing READ/STREAM this returns a single response frame and
// truncates content beyond wire.DataSize rather than chunking over a
// connection that must stay open for further control traffic.
func (s *Server) handleControlRead(req wire.Request) wire.Response {
	filename := strings.TrimSpace(req.Args)
	data, err := s.store.ReadFile(filename)
	if err != nil {
		return errResponse(asDocErr(err))
	}
	if len(data) > wire.DataSize {
		data = data[:wire.DataSize]
	}
	return okResponse(string(data))
}

// checkPermission verifies, against the already-loaded meta, that username
// holds at least the required permission, translating a denial to the matching
// docerr code.
func checkPermission(meta *docmodel.Metadata, username string, needWrite bool) error {
	perm := meta.PermissionFor(username)
	if needWrite && !perm.CanWrite() {
		return docerr.WritePermissionError("")
	}
	if !needWrite && !perm.CanRead() {
		return docerr.ReadPermissionError("")
	}
	return nil
}

func asDocErr(err error) *docerr.Error {
	if de, ok := err.(*docerr.Error); ok {
		return de
	}
	return docerr.InternalError(err.Error())
}

func parseSentenceArgs(args string) (filename string, idx int, err error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, docerr.InvalidArgsError("expected \"<filename> <sentence_idx>\"")
	}
	idx, perr := strconv.Atoi(fields[1])
	if perr != nil || idx < 0 {
		return "", 0, docerr.InvalidArgsError("sentence index must be a non-negative integer")
	}
	return fields[0], idx, nil
}

func parseWordUpdateArgs(args string) (wordIdx int, newWord string, err error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(fields) != 2 {
		return 0, "", docerr.InvalidArgsError("expected \"<word_idx> <new_word>\"")
	}
	idx, perr := strconv.Atoi(fields[0])
	if perr != nil || idx < 0 {
		return 0, "", docerr.InvalidArgsError("word index must be a non-negative integer")
	}
	return idx, fields[1], nil
}
