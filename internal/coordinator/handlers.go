package coordinator

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/opendocstore/docstore/internal/coordinator/index"
	"github.com/opendocstore/docstore/internal/coordinator/storagepool"
	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/wire"
	"github.com/opendocstore/docstore/pkg/docmodel"
)

func errResponse(err *docerr.Error) wire.Response {
	return wire.Response{Status: wire.StatusFromCode(err.Code), Data: err.Error()}
}

func okResponse(data string) wire.Response {
	return wire.Response{Status: wire.StatusOK, Data: data}
}

func asDocErr(err error) *docerr.Error {
	if de, ok := err.(*docerr.Error); ok {
		return de
	}
	return docerr.InternalError(err.Error())
}

// handleCRegister implements spec.md §4.1's C-REGISTER op: create-or-
// reactivate the ClientRecord, always running inside the actor (the
// registry has its own mutex too, but every coordinator mutation is
// serialized through the actor by convention; see DESIGN.md).
func (s *Server) handleCRegister(username, ip string) wire.Response {
	if _, err := s.reg.Register(username, ip, time.Now().Unix()); err != nil {
		log.Warn("client registry persist failed", "username", username, "error", err)
	}
	s.metrics.Clients.Set(float64(len(s.reg.All())))
	return okResponse("welcome, " + username)
}

// handleCreate implements spec.md §4.1's CREATE op.
func (s *Server) handleCreate(username, filename string) wire.Response {
	if !docmodel.ValidFilename(filename) {
		return errResponse(docerr.InvalidFilenameError(filename))
	}
	if _, ok := s.idx.Find(filename); ok {
		return errResponse(docerr.FileExistsError(filename))
	}

	node, err := s.pool.Next()
	if err != nil {
		return errResponse(asDocErr(err))
	}

	status, data, err := node.ControlConn.SendControl(wire.CmdCreate.String(), username, filename)
	if err != nil {
		node.Alive = false
		return errResponse(docerr.NetworkError(err.Error()))
	}
	if status != wire.StatusOK.String() {
		return wire.Response{Status: statusFromName(status), Data: data}
	}

	now := time.Now().Unix()
	s.idx.Put(&index.Entry{
		Filename:    filename,
		StorageAddr: node.Addr,
		Meta: docmodel.Metadata{
			Owner:        username,
			Created:      now,
			LastModified: now,
			LastAccessed: now,
			ACL:          []docmodel.ACLEntry{{Username: username, Permission: docmodel.PermRead | docmodel.PermWrite}},
		},
	})
	s.metrics.IndexSize.Set(float64(s.idx.Len()))
	return okResponse("created")
}

// handleDelete implements spec.md §4.1's DELETE op. Ownership is checked
// on S, not here — a deliberate layering choice spec.md §4.2 calls out
// explicitly.
func (s *Server) handleDelete(username, filename string) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	node, ok := s.nodeByAddr(entry.StorageAddr)
	if !ok {
		return errResponse(docerr.ServerUnavailableError("owning storage node is offline"))
	}

	status, data, err := node.ControlConn.SendControl(wire.CmdDelete.String(), username, filename)
	if err != nil {
		node.Alive = false
		return errResponse(docerr.NetworkError(err.Error()))
	}
	if status != wire.StatusOK.String() {
		return wire.Response{Status: statusFromName(status), Data: data}
	}

	s.idx.Delete(filename)
	s.metrics.IndexSize.Set(float64(s.idx.Len()))
	return okResponse("deleted")
}

// handleList implements spec.md §4.1's LIST op: the full ClientRecord
// table with online/offline status.
func (s *Server) handleList() wire.Response {
	records := s.reg.All()
	sort.Slice(records, func(i, j int) bool { return records[i].Username < records[j].Username })

	var b strings.Builder
	for _, r := range records {
		status := "offline"
		if r.Online {
			status = "online"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\n", r.Username, status, r.LastIP)
	}
	return okResponse(b.String())
}

// handleView implements spec.md §4.1's VIEW op: enumerate the index,
// filtering by readable-by-username unless "-a" is present, one line per
// file. "-l" is accepted as a formatting hint for the client's tabular
// renderer; the coordinator always emits the same tab-separated fields and
// leaves column layout to internal/client/output.
func (s *Server) handleView(username, flags string) wire.Response {
	all := strings.Fields(flags)
	showAll := containsFlag(all, "-a")

	entries := s.idx.All()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })

	var b strings.Builder
	for _, e := range entries {
		if !showAll && !e.Meta.PermissionFor(username).CanRead() {
			continue
		}
		fmt.Fprintf(&b, "%s\t%s\t%d\n", e.Filename, e.Meta.Owner, e.Meta.Size)
	}
	return okResponse(b.String())
}

func containsFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// handleInfo implements spec.md §4.1's INFO op: the cached metadata
// snapshot, gated by READ permission. The cache is advisory (invariant
// I3) — callers needing the authoritative ACL should consult S directly,
// which this op deliberately does not do (spec.md names INFO as reading
// "cached metadata").
func (s *Server) handleInfo(username, filename string) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if !entry.Meta.PermissionFor(username).CanRead() {
		return errResponse(docerr.ReadPermissionError(filename))
	}
	return okResponse(string(docmodel.EncodeMetaFile(&entry.Meta)))
}

// handleAddAccess implements spec.md §4.1's ADDACCESS op: the two-phase
// snapshot-mutate-push-rollback ACL persistence protocol. This is the
// only correct-by-construction mutation path for a file's ACL; any future
// ACL-mutating op must follow the same shape (spec.md §4.1).
func (s *Server) handleAddAccess(username, filename, targetUser string, perm docmodel.Permission) wire.Response {
	return s.mutateACL(username, filename, func(meta *docmodel.Metadata) error {
		if targetUser == meta.Owner {
			return docerr.InvalidOperationError("cannot change the owner's access")
		}
		meta.SetPermission(targetUser, perm)
		return nil
	})
}

// handleRemAccess implements spec.md §4.1's REMACCESS op, rejecting any
// attempt to remove the owner's own entry (invariant I6).
func (s *Server) handleRemAccess(username, filename, targetUser string) wire.Response {
	return s.mutateACL(username, filename, func(meta *docmodel.Metadata) error {
		if targetUser == meta.Owner {
			return docerr.InvalidOperationError("cannot remove the owner's access")
		}
		meta.RemovePermission(targetUser)
		return nil
	})
}

// mutateACL implements the snapshot-mutate-push-rollback sequence shared
// by ADDACCESS and REMACCESS (spec.md §4.1's "ACL persistence protocol").
func (s *Server) mutateACL(username, filename string, mutate func(*docmodel.Metadata) error) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if entry.Meta.Owner != username {
		return errResponse(docerr.OwnerRequiredError(filename))
	}

	oldMeta := entry.Meta.Clone()
	if err := mutate(&entry.Meta); err != nil {
		entry.Meta = *oldMeta
		return errResponse(asDocErr(err))
	}

	serialized := docmodel.SerializeACLWire(entry.Meta.ACL)
	node, ok := s.nodeByAddr(entry.StorageAddr)
	if !ok {
		entry.Meta = *oldMeta
		return errResponse(docerr.ServerUnavailableError("owning storage node is offline"))
	}

	status, data, err := node.ControlConn.SendControl(wire.CmdUpdateACL.String(), username, filename+" "+serialized)
	if err != nil {
		node.Alive = false
		entry.Meta = *oldMeta
		return errResponse(docerr.NetworkError(err.Error()))
	}
	if status != wire.StatusOK.String() {
		entry.Meta = *oldMeta
		return wire.Response{Status: statusFromName(status), Data: data}
	}
	return okResponse("ok")
}

// handleReadRedirect implements spec.md §4.1's READ/STREAM ops' shared
// shape: a READ permission check followed by handing the client the owning
// storage node's address so it can connect directly. WRITE goes through
// handleWriteRedirect, which checks WRITE permission instead.
func (s *Server) handleReadRedirect(username, filename string) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if !entry.Meta.PermissionFor(username).CanRead() {
		return errResponse(docerr.ReadPermissionError(filename))
	}
	return okResponse(entry.StorageAddr)
}

func (s *Server) handleWriteRedirect(username, filename string) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if !entry.Meta.PermissionFor(username).CanWrite() {
		return errResponse(docerr.WritePermissionError(filename))
	}
	return okResponse(entry.StorageAddr)
}

// handleUndo implements spec.md §4.1's UNDO op: WRITE-permission check,
// then forward verbatim to S.
func (s *Server) handleUndo(username, filename string) wire.Response {
	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if !entry.Meta.PermissionFor(username).CanWrite() {
		return errResponse(docerr.WritePermissionError(filename))
	}
	node, ok := s.nodeByAddr(entry.StorageAddr)
	if !ok {
		return errResponse(docerr.ServerUnavailableError("owning storage node is offline"))
	}
	status, data, err := node.ControlConn.SendControl(wire.CmdUndo.String(), username, filename)
	if err != nil {
		node.Alive = false
		return errResponse(docerr.NetworkError(err.Error()))
	}
	return wire.Response{Status: statusFromName(status), Data: data}
}

// handleExec implements spec.md §4.1's EXEC op, gated by
// SPEC_FULL.md Module Addition F: disabled unless cfg.EnableExec is set,
// and every invocation (even a rejected one) is logged at WARN since
// spec.md §9 flags this as "an enormous trust surface with no sandbox."
func (s *Server) handleExec(username, filename string) wire.Response {
	log.Warn("EXEC requested", "username", username, "filename", filename, "enabled", s.cfg.EnableExec)
	if !s.cfg.EnableExec {
		return errResponse(docerr.InvalidOperationError("EXEC is disabled on this coordinator"))
	}

	entry, ok := s.idx.Find(filename)
	if !ok {
		return errResponse(docerr.NotFoundError(filename))
	}
	if !entry.Meta.PermissionFor(username).CanRead() {
		return errResponse(docerr.ReadPermissionError(filename))
	}
	node, ok := s.nodeByAddr(entry.StorageAddr)
	if !ok {
		return errResponse(docerr.ServerUnavailableError("owning storage node is offline"))
	}

	status, data, err := node.ControlConn.SendControl(wire.CmdRead.String(), username, filename)
	if err != nil {
		node.Alive = false
		return errResponse(docerr.NetworkError(err.Error()))
	}
	if status != wire.StatusOK.String() {
		return wire.Response{Status: statusFromName(status), Data: data}
	}

	out, err := exec.Command("sh", "-c", data).CombinedOutput()
	if err != nil {
		return errResponse(docerr.InternalError("exec: " + err.Error()))
	}
	return okResponse(string(out))
}

func (s *Server) nodeByAddr(addr string) (*storagepool.Node, bool) {
	for _, n := range s.pool.All() {
		if n.Addr == addr && n.Alive {
			return n, true
		}
	}
	return nil, false
}

// statusFromName converts a wire.Status.String() value back to a
// wire.Status, used when relaying a storage node's response verbatim.
func statusFromName(name string) wire.Status {
	for s := wire.StatusOK; s <= wire.StatusInternal; s++ {
		if s.String() == name {
			return s
		}
	}
	return wire.StatusInternal
}

// parseAddAccessFlags splits ADDACCESS's "-R|-W <file> <user>" args.
func parseAddAccessFlags(args string) (filename, targetUser string, perm docmodel.Permission, err error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "", "", 0, docerr.InvalidArgsError("expected \"-R|-W <file> <user>\"")
	}
	switch fields[0] {
	case "-R":
		perm = docmodel.PermRead
	case "-W":
		perm = docmodel.PermWrite
	default:
		return "", "", 0, docerr.InvalidArgsError("expected -R or -W")
	}
	return fields[1], fields[2], perm, nil
}

func parseTwoFields(args string) (a, b string, err error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", docerr.InvalidArgsError("expected two arguments")
	}
	return fields[0], fields[1], nil
}
