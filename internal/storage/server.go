package storage

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/storage/locktable"
	"github.com/opendocstore/docstore/internal/storage/session"
	"github.com/opendocstore/docstore/internal/wire"
)

// Config is one storage node's runtime configuration, bound from
// pkg/config.
type Config struct {
	NodeID      string
	Dir         string
	CoordAddr   string // coordinator's listening address, e.g. "10.0.0.1:9000"
	ClientAddr  string // this node's own public client-facing listen address
	IdleTimeout time.Duration // write-session idle timeout; 0 disables the sweep (spec.md §9 open question, resolved by SPEC_FULL.md module C)
}

// sessionEntry tracks one worker's active write session for the idle
// sweep goroutine, which runs on a different goroutine than the worker
// holding the session, so the sweep only closes the connection (the
// worker goroutine, unblocked by the read error, releases the lock and
// untracks the session itself).
type sessionEntry struct {
	sess      *session.Session
	conn      net.Conn
	lastFrame time.Time
}

// Server is one storage node: its payload directory, sentence lock table,
// metrics, the long-lived control connection to the coordinator, and the
// public client accept loop. Grounded on the teacher's
// pkg/adapter.BaseAdapter accept-loop shape (see DESIGN.md), generalized
// from a single listener to this node's two distinct surfaces.
type Server struct {
	cfg     Config
	store   *Store
	locks   *locktable.Table
	metrics *metrics.Storage

	mu       sync.Mutex
	sessions map[net.Conn]*sessionEntry
}

// NewServer builds a storage node server. The data directory is created if
// absent.
func NewServer(cfg Config, m *metrics.Storage) (*Server, error) {
	store, err := NewStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		locks:    locktable.New(),
		metrics:  m,
		sessions: make(map[net.Conn]*sessionEntry),
	}, nil
}

// Run dials the coordinator, performs the SS_INIT registration handshake,
// then runs the control-connection loop and the client accept loop
// concurrently until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	coordConn, err := net.Dial("tcp", s.cfg.CoordAddr)
	if err != nil {
		return fmt.Errorf("dial coordinator %s: %w", s.cfg.CoordAddr, err)
	}

	if err := wire.WriteRequest(coordConn, wire.Request{
		Command:  wire.CmdSSInit,
		Username: s.cfg.NodeID,
		Args:     s.cfg.ClientAddr,
	}); err != nil {
		coordConn.Close()
		return fmt.Errorf("send SS_INIT: %w", err)
	}
	ack, err := wire.ReadResponse(coordConn)
	if err != nil {
		coordConn.Close()
		return fmt.Errorf("read SS_INIT ack: %w", err)
	}
	if ack.Status != wire.StatusOK {
		coordConn.Close()
		return fmt.Errorf("coordinator rejected registration: %s", ack.Status)
	}
	log.Info("registered with coordinator", "node_id", s.cfg.NodeID, "coordinator", s.cfg.CoordAddr)

	listener, err := net.Listen("tcp", s.cfg.ClientAddr)
	if err != nil {
		coordConn.Close()
		return fmt.Errorf("listen on %s: %w", s.cfg.ClientAddr, err)
	}
	log.Info("accepting client connections", "addr", s.cfg.ClientAddr)

	var wg sync.WaitGroup
	wg.Add(2)
	errCh := make(chan error, 2)

	go func() {
		defer wg.Done()
		errCh <- s.runControlLoop(coordConn)
	}()
	go func() {
		defer wg.Done()
		errCh <- s.runAcceptLoop(ctx, listener)
	}()

	if s.cfg.IdleTimeout > 0 {
		go s.runIdleSweep(ctx)
	}

	<-ctx.Done()
	listener.Close()
	coordConn.Close()
	wg.Wait()
	close(errCh)
	return nil
}

// runControlLoop services the single long-lived connection to the
// coordinator: one request read, one handler dispatch, one response
// written, repeated — matching the coordinator's synchronous
// request-then-block-for-reply shape (spec.md §4.1/§5).
func (s *Server) runControlLoop(conn net.Conn) error {
	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			log.Warn("control connection closed", "error", err)
			return err
		}
		resp := s.dispatchControl(req)
		if err := wire.WriteResponse(conn, resp); err != nil {
			log.Warn("control response write failed", "error", err)
			return err
		}
	}
}

// runAcceptLoop never blocks past Accept: every accepted connection gets
// its own goroutine (spec.md §4.2: "spawn one detached worker thread; the
// accept loop never blocks").
func (s *Server) runAcceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Warn("accept failed", "error", err)
				return err
			}
		}
		go s.handleClientConn(conn)
	}
}

// runIdleSweep periodically force-releases write sessions that have not
// received a frame within cfg.IdleTimeout (SPEC_FULL.md module C).
func (s *Server) runIdleSweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.IdleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepIdleSessions()
		}
	}
}

func (s *Server) sweepIdleSessions() {
	now := time.Now()
	var stale []net.Conn

	s.mu.Lock()
	for conn, e := range s.sessions {
		if now.Sub(e.lastFrame) > s.cfg.IdleTimeout {
			stale = append(stale, conn)
		}
	}
	s.mu.Unlock()

	for _, conn := range stale {
		s.mu.Lock()
		e, ok := s.sessions[conn]
		s.mu.Unlock()
		if !ok {
			continue
		}
		log.Warn("write session idle timeout; force-releasing", "filename", e.sess.Filename, "sentence", e.sess.Sentence, "holder", e.sess.Holder)
		conn.Close()
	}
}

func (s *Server) trackSession(conn net.Conn, sess *session.Session) {
	s.mu.Lock()
	s.sessions[conn] = &sessionEntry{sess: sess, conn: conn, lastFrame: time.Now()}
	s.mu.Unlock()
	s.metrics.ActiveWriteSessions.Inc()
}

func (s *Server) touchSession(conn net.Conn) {
	s.mu.Lock()
	if e, ok := s.sessions[conn]; ok {
		e.lastFrame = time.Now()
	}
	s.mu.Unlock()
}

func (s *Server) untrackSession(conn net.Conn) {
	s.mu.Lock()
	_, existed := s.sessions[conn]
	delete(s.sessions, conn)
	s.mu.Unlock()
	if existed {
		s.metrics.ActiveWriteSessions.Dec()
	}
}
