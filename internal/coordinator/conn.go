package coordinator

import (
	"net"

	"github.com/opendocstore/docstore/internal/coordinator/storagepool"
	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/wire"
)

// handleNewConn classifies a freshly accepted connection by its first
// frame, per spec.md §4.1's connection state machine: SS_INIT routes to
// the storage-node registration path, CLIENT_INIT to the client session
// loop. Anything else is rejected.
func (s *Server) handleNewConn(conn net.Conn) {
	req, err := wire.ReadRequest(conn)
	if err != nil {
		conn.Close()
		return
	}

	switch req.Command {
	case wire.CmdSSInit:
		s.handleSSInit(conn, req)
	case wire.CmdClientInit:
		s.handleClientSession(conn, req)
	default:
		wire.WriteResponse(conn, errResponse(docerr.InvalidOperationError("expected SS_INIT or CLIENT_INIT as the first frame")))
		conn.Close()
	}
}

// handleSSInit implements spec.md §4.1's S-REGISTER op. The connection is
// kept open afterward as the node's control channel: the coordinator is
// the one to write further requests on it (CREATE/DELETE/UPDATE_ACL/UNDO/
// CMD_READ), synchronously, from inside the actor — see connwire.go.
// Directory-scanning the node's existing files at registration is out of
// this system's core scope (spec.md §1); the node starts with an empty
// inventory and gains entries purely through subsequent CREATE acks (see
// DESIGN.md's Open Question resolution 8).
func (s *Server) handleSSInit(conn net.Conn, req wire.Request) {
	node := &storagepool.Node{
		ID:          s.newStorageNodeID(),
		Addr:        req.Args,
		ControlConn: newConnWireSender(conn),
		Alive:       true,
	}
	s.do(func() {
		s.pool.Register(node)
		s.metrics.StorageNodes.Set(float64(s.pool.Count()))
	})
	log.Info("storage node registered", "id", node.ID, "addr", node.Addr)
	if err := wire.WriteResponse(conn, okResponse("registered as "+node.ID)); err != nil {
		log.Warn("failed to ack S-REGISTER", "id", node.ID, "error", err)
	}
}

// handleClientSession implements spec.md §4.1's CLIENT-INITIALIZED path:
// the first frame doubles as C-REGISTER, then the connection loops
// reading and dispatching client commands until disconnect, at which
// point the ClientRecord is marked offline (spec.md's connection state
// diagram: "on disconnect: mark offline, evict sentence locks lazily" —
// sentence lock eviction on disconnect is the storage node's
// responsibility, triggered by the client's *other*, direct connection to
// S, not this coordinator connection).
func (s *Server) handleClientSession(conn net.Conn, req wire.Request) {
	defer conn.Close()

	var resp wire.Response
	s.do(func() { resp = s.handleCRegister(req.Username, clientIP(conn)) })
	if err := wire.WriteResponse(conn, resp); err != nil {
		return
	}

	defer s.do(func() {
		if err := s.reg.Disconnect(req.Username); err != nil {
			log.Warn("client registry disconnect-persist failed", "username", req.Username, "error", err)
		}
		s.metrics.Clients.Set(float64(len(s.reg.All())))
	})

	for {
		clientReq, err := wire.ReadRequest(conn)
		if err != nil {
			return
		}
		reply := s.dispatchClient(clientReq)
		if err := wire.WriteResponse(conn, reply); err != nil {
			return
		}
	}
}

func clientIP(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	return conn.RemoteAddr().String()
}
