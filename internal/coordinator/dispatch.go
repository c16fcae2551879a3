package coordinator

import (
	"strings"

	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/internal/wire"
)

// dispatchClient routes one client-connection frame to its handler,
// running the handler body inside the actor via s.do so every index/
// registry/pool touch is serialized (spec.md §4.1). Metrics are recorded
// around the call, not inside individual handlers, so every op gets
// uniform per-op/per-error-code counting (SPEC_FULL.md Module Addition A).
func (s *Server) dispatchClient(req wire.Request) wire.Response {
	op := req.Command.String()
	s.metrics.RequestsTotal.WithLabelValues(op).Inc()

	var resp wire.Response
	s.do(func() {
		resp = s.route(req)
		s.syncIndexMetrics()
	})

	if resp.Status != wire.StatusOK {
		s.metrics.ErrorsTotal.WithLabelValues(op, resp.Status.String()).Inc()
	}
	return resp
}

// route dispatches a single client request to its handler. Always called
// from inside the actor goroutine (via dispatchClient's s.do).
func (s *Server) route(req wire.Request) wire.Response {
	switch req.Command {
	case wire.CmdList:
		return s.handleList()
	case wire.CmdView:
		return s.handleView(req.Username, req.Args)
	case wire.CmdInfo:
		return s.handleInfo(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdCreate:
		return s.handleCreate(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdDelete:
		return s.handleDelete(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdAddAccess:
		filename, targetUser, perm, err := parseAddAccessFlags(req.Args)
		if err != nil {
			return errResponse(asDocErr(err))
		}
		return s.handleAddAccess(req.Username, filename, targetUser, perm)
	case wire.CmdRemAccess:
		filename, targetUser, err := parseTwoFields(req.Args)
		if err != nil {
			return errResponse(asDocErr(err))
		}
		return s.handleRemAccess(req.Username, filename, targetUser)
	case wire.CmdRead:
		return s.handleReadRedirect(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdStream:
		fields := strings.Fields(req.Args)
		if len(fields) == 0 {
			return errResponse(docerr.InvalidArgsError("STREAM requires a filename"))
		}
		return s.handleReadRedirect(req.Username, fields[0])
	case wire.CmdWrite:
		filename, _, err := parseTwoFields(req.Args)
		if err != nil {
			return errResponse(asDocErr(err))
		}
		return s.handleWriteRedirect(req.Username, filename)
	case wire.CmdUndo:
		return s.handleUndo(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdExec:
		return s.handleExec(req.Username, strings.TrimSpace(req.Args))
	case wire.CmdHeartbeat:
		return okResponse("ok")
	default:
		return errResponse(docerr.InvalidOperationError("unsupported client command: " + req.Command.String()))
	}
}
