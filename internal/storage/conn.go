package storage

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/opendocstore/docstore/internal/docerr"
	"github.com/opendocstore/docstore/internal/log"
	"github.com/opendocstore/docstore/internal/storage/session"
	"github.com/opendocstore/docstore/internal/wire"
)

// handleClientConn is the per-connection worker loop spawned for every
// accepted client connection (spec.md §4.2: "spawn one detached worker
// thread"). It owns exactly one *session.Session at a time, thread-local to
// this goroutine — no other goroutine ever touches sess directly (the idle
// sweep only closes the net.Conn, which unblocks this loop's own read and
// lets it run the same rollback path a client disconnect would).
func (s *Server) handleClientConn(conn net.Conn) {
	s.metrics.ActiveWorkers.Inc()
	defer s.metrics.ActiveWorkers.Dec()
	defer conn.Close()

	var sess *session.Session

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			if sess != nil {
				s.rollbackSession(conn, sess)
			}
			return
		}

		switch req.Command {
		case wire.CmdRead:
			s.handleClientRead(conn, req)
			return
		case wire.CmdStream:
			s.handleClientStream(conn, req)
			return
		case wire.CmdWrite:
			if sess == nil {
				newSess, resp := s.beginWriteSession(req)
				wire.WriteResponse(conn, resp)
				if newSess != nil {
					sess = newSess
					s.trackSession(conn, sess)
				}
				continue
			}
			resp := s.applyWordUpdate(sess, req)
			s.touchSession(conn)
			wire.WriteResponse(conn, resp)
		case wire.CmdEtirw:
			if sess == nil {
				wire.WriteResponse(conn, errResponse(docerr.InvalidOperationError("ETIRW without an active write session")))
				continue
			}
			resp := s.commitSession(sess)
			s.untrackSession(conn)
			wire.WriteResponse(conn, resp)
			return
		default:
			wire.WriteResponse(conn, errResponse(docerr.InvalidOperationError("unsupported client command: "+req.Command.String())))
		}
	}
}

// handleClientRead implements spec.md §4.2's READ handler: permission
// check, then the file's bytes sent as one or more response frames,
// closing the connection when done.
func (s *Server) handleClientRead(conn net.Conn, req wire.Request) {
	s.serveBulk(conn, req, wire.CmdRead)
}

// handleClientStream implements spec.md §4.2's STREAM handler. By default
// it behaves exactly like READ (bulk transfer), matching the source's
// actual runtime behavior; SPEC_FULL.md module D wires the word-by-word
// pacing mode behind an explicit "--paced" token appended to Args.
func (s *Server) handleClientStream(conn net.Conn, req wire.Request) {
	filename, paced := strings.CutSuffix(strings.TrimSpace(req.Args), " --paced")
	if paced {
		s.servePaced(conn, wire.Request{Command: req.Command, Username: req.Username, Args: filename})
		return
	}
	s.serveBulk(conn, req, wire.CmdStream)
}

func (s *Server) serveBulk(conn net.Conn, req wire.Request, op wire.Command) {
	s.metrics.RequestsTotal.WithLabelValues(op.String()).Inc()
	filename := strings.TrimSpace(req.Args)

	meta, err := s.store.ReadMeta(filename)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues(op.String(), wire.StatusFromCode(asDocErr(err).Code).String()).Inc()
		wire.WriteResponse(conn, errResponse(asDocErr(err)))
		return
	}
	if perr := checkPermission(meta, req.Username, false); perr != nil {
		s.metrics.ErrorsTotal.WithLabelValues(op.String(), wire.StatusFromCode(asDocErr(perr).Code).String()).Inc()
		wire.WriteResponse(conn, errResponse(asDocErr(perr)))
		return
	}

	data, err := s.store.ReadFile(filename)
	if err != nil {
		wire.WriteResponse(conn, errResponse(asDocErr(err)))
		return
	}

	empty := len(data) == 0
	for len(data) > 0 {
		n := len(data)
		if n > wire.DataSize {
			n = wire.DataSize
		}
		if err := wire.WriteResponse(conn, okResponse(string(data[:n]))); err != nil {
			return
		}
		s.metrics.BytesServed.Add(float64(n))
		data = data[n:]
	}
	// An empty file still gets one (empty) response frame so the client
	// sees OK rather than a bare connection close.
	if empty {
		wire.WriteResponse(conn, okResponse(""))
	}

	meta.LastAccessed = time.Now().Unix()
	meta.LastAccessedBy = req.Username
	if err := s.store.WriteMetaAtomic(filename, meta); err != nil {
		log.Warn("failed to update last_accessed", "filename", filename, "error", err)
	}
}

// servePaced implements the word-by-word pacing mode (SPEC_FULL.md module
// D): each whitespace-delimited token of the file is sent as its own
// response frame with a 100ms delay between frames, terminated by a
// sentinel response whose Data is exactly "STREAM_END".
func (s *Server) servePaced(conn net.Conn, req wire.Request) {
	filename := strings.TrimSpace(req.Args)

	meta, err := s.store.ReadMeta(filename)
	if err != nil {
		wire.WriteResponse(conn, errResponse(asDocErr(err)))
		return
	}
	if perr := checkPermission(meta, req.Username, false); perr != nil {
		wire.WriteResponse(conn, errResponse(asDocErr(perr)))
		return
	}
	data, err := s.store.ReadFile(filename)
	if err != nil {
		wire.WriteResponse(conn, errResponse(asDocErr(err)))
		return
	}

	words := strings.Fields(string(data))
	for i, w := range words {
		if err := wire.WriteResponse(conn, okResponse(w)); err != nil {
			return
		}
		s.metrics.BytesServed.Add(float64(len(w)))
		if i < len(words)-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	wire.WriteResponse(conn, okResponse("STREAM_END"))

	meta.LastAccessed = time.Now().Unix()
	meta.LastAccessedBy = req.Username
	if err := s.store.WriteMetaAtomic(filename, meta); err != nil {
		log.Warn("failed to update last_accessed", "filename", filename, "error", err)
	}
}

// beginWriteSession implements spec.md §4.2's WRITE handler steps 1-5:
// permission check, lock acquisition, full-file load, and the initial
// "Lock acquired for sentence N" acknowledgement. Returns a nil session
// alongside the error response if any step fails.
func (s *Server) beginWriteSession(req wire.Request) (*session.Session, wire.Response) {
	s.metrics.RequestsTotal.WithLabelValues("WRITE").Inc()

	filename, idx, err := parseSentenceArgs(req.Args)
	if err != nil {
		return nil, errResponse(asDocErr(err))
	}

	meta, err := s.store.ReadMeta(filename)
	if err != nil {
		return nil, errResponse(asDocErr(err))
	}
	if perr := checkPermission(meta, req.Username, true); perr != nil {
		return nil, errResponse(asDocErr(perr))
	}

	if !s.locks.TryAcquire(filename, idx, req.Username) {
		return nil, errResponse(docerr.LockedError(filename))
	}

	contents, err := s.store.ReadFile(filename)
	if err != nil {
		s.locks.Release(filename, idx, req.Username)
		return nil, errResponse(docerr.NotFoundError(filename))
	}

	sess := session.New(filename, idx, req.Username, contents)
	if idx > sess.SentenceCount() {
		s.locks.Release(filename, idx, req.Username)
		return nil, errResponse(docerr.InvalidIndexError(filename))
	}
	sess.EnsureAppendSlot()
	s.metrics.HeldLocks.Inc()
	return sess, okResponse("Lock acquired for sentence " + strconv.Itoa(idx))
}

// applyWordUpdate implements spec.md §4.2 step 6: one "<word_idx>
// <new_word>" mini-command against the session's held sentence.
func (s *Server) applyWordUpdate(sess *session.Session, req wire.Request) wire.Response {
	wordIdx, newWord, err := parseWordUpdateArgs(req.Args)
	if err != nil {
		return errResponse(asDocErr(err))
	}
	if !sess.ReplaceWord(wordIdx, newWord) {
		return errResponse(docerr.InvalidIndexError(sess.Filename))
	}
	return okResponse("word updated")
}

// commitSession implements spec.md §4.2 step 7: ETIRW's backup-then-write
// commit, lock release, and metadata refresh.
func (s *Server) commitSession(sess *session.Session) wire.Response {
	s.metrics.RequestsTotal.WithLabelValues("ETIRW").Inc()

	buf := sess.CommitBytes()
	if err := s.store.CommitWrite(sess.Filename, buf); err != nil {
		s.locks.Release(sess.Filename, sess.Sentence, sess.Holder)
		s.metrics.HeldLocks.Dec()
		return errResponse(asDocErr(err))
	}

	if meta, err := s.store.ReadMeta(sess.Filename); err == nil {
		now := time.Now().Unix()
		meta.LastModified = now
		meta.LastAccessed = now
		meta.LastAccessedBy = sess.Holder
		meta.Size = int64(len(buf))
		meta.CharCount = len(buf)
		meta.WordCount = countWords(string(buf))
		if err := s.store.WriteMetaAtomic(sess.Filename, meta); err != nil {
			log.Warn("failed to refresh meta after ETIRW", "filename", sess.Filename, "error", err)
		}
	}

	s.locks.Release(sess.Filename, sess.Sentence, sess.Holder)
	s.metrics.HeldLocks.Dec()
	return okResponse("committed")
}

// rollbackSession implements spec.md §4.2 step 8: on client disconnect
// mid-session, release the lock and discard the buffer; the on-disk file
// and any .bak are left untouched.
func (s *Server) rollbackSession(conn net.Conn, sess *session.Session) {
	s.locks.Release(sess.Filename, sess.Sentence, sess.Holder)
	s.metrics.HeldLocks.Dec()
	s.untrackSession(conn)
	log.Info("write session rolled back on disconnect", "filename", sess.Filename, "sentence", sess.Sentence, "holder", sess.Holder)
}

func countWords(s string) int { return len(strings.Fields(s)) }
