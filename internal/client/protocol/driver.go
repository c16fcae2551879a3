// Package protocol implements the client side of the framed binary wire
// protocol: dialing the coordinator, issuing one request per command, and
// the direct-to-storage-node data path for READ/STREAM/WRITE. Grounded on
// the teacher's pkg/apiclient.Client (one struct wrapping a transport plus
// one method per remote operation), adapted from HTTP+JSON to the raw TCP
// framing of internal/wire.
package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/opendocstore/docstore/internal/wire"
)

// ResponseError wraps a non-OK response frame. Its Error() is exactly the
// response's data field, matching spec.md §7's "client prints Error: <data>"
// user-visible failure contract — callers prefix "Error: " themselves.
type ResponseError struct {
	Status wire.Status
	Data   string
}

func (e *ResponseError) Error() string { return e.Data }

// Driver is a single client's connection to the coordinator, plus whatever
// direct storage-node connections its in-flight operations need.
type Driver struct {
	coordAddr string
	username  string
	coord     net.Conn
}

// Dial opens the coordinator connection and performs the CLIENT_INIT
// handshake, which doubles as C-REGISTER (spec.md §4.1).
func Dial(coordAddr, username string) (*Driver, error) {
	conn, err := net.DialTimeout("tcp", coordAddr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial coordinator %s: %w", coordAddr, err)
	}
	d := &Driver{coordAddr: coordAddr, username: username, coord: conn}
	resp, err := d.send(conn, wire.CmdClientInit, "")
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.Status != wire.StatusOK {
		conn.Close()
		return nil, &ResponseError{Status: resp.Status, Data: resp.Data}
	}
	return d, nil
}

// Close releases the coordinator connection.
func (d *Driver) Close() error {
	return d.coord.Close()
}

func (d *Driver) send(conn net.Conn, cmd wire.Command, args string) (wire.Response, error) {
	req := wire.Request{Command: cmd, Username: d.username, Args: args}
	if err := wire.WriteRequest(conn, req); err != nil {
		return wire.Response{}, fmt.Errorf("send %s: %w", cmd, err)
	}
	resp, err := wire.ReadResponse(conn)
	if err != nil {
		return wire.Response{}, fmt.Errorf("receive %s reply: %w", cmd, err)
	}
	return resp, nil
}

// call issues a request on the coordinator connection and turns a non-OK
// status into a *ResponseError, the common shape for every simple (non
// data-path) operation below.
func (d *Driver) call(cmd wire.Command, args string) (string, error) {
	resp, err := d.send(d.coord, cmd, args)
	if err != nil {
		return "", err
	}
	if resp.Status != wire.StatusOK {
		return "", &ResponseError{Status: resp.Status, Data: resp.Data}
	}
	return resp.Data, nil
}

// Create implements CREATE.
func (d *Driver) Create(filename string) (string, error) {
	return d.call(wire.CmdCreate, filename)
}

// Delete implements DELETE.
func (d *Driver) Delete(filename string) (string, error) {
	return d.call(wire.CmdDelete, filename)
}

// Info implements INFO, returning the raw .meta-format metadata text.
func (d *Driver) Info(filename string) (string, error) {
	return d.call(wire.CmdInfo, filename)
}

// View implements VIEW [-a] [-l], returning tab-separated rows.
func (d *Driver) View(flags string) (string, error) {
	return d.call(wire.CmdView, flags)
}

// List implements LIST, returning tab-separated client registry rows.
func (d *Driver) List() (string, error) {
	return d.call(wire.CmdList, "")
}

// AddAccess implements ADDACCESS -R|-W <file> <user>. perm is "-R" or "-W".
func (d *Driver) AddAccess(perm, filename, targetUser string) (string, error) {
	return d.call(wire.CmdAddAccess, perm+" "+filename+" "+targetUser)
}

// RemAccess implements REMACCESS <file> <user>.
func (d *Driver) RemAccess(filename, targetUser string) (string, error) {
	return d.call(wire.CmdRemAccess, filename+" "+targetUser)
}

// Undo implements UNDO <file>.
func (d *Driver) Undo(filename string) (string, error) {
	return d.call(wire.CmdUndo, filename)
}

// Exec implements EXEC <file>.
func (d *Driver) Exec(filename string) (string, error) {
	return d.call(wire.CmdExec, filename)
}

// redirect asks the coordinator for the storage node address owning
// filename, gated by the READ permission check (CmdRead for READ, CmdStream
// for STREAM).
func (d *Driver) redirect(cmd wire.Command, filename string) (string, error) {
	return d.call(cmd, filename)
}

// Read implements READ <file>: redirect to the owning storage node, then
// drain its bulk-transfer response frames until it closes the connection.
func (d *Driver) Read(filename string) (string, error) {
	addr, err := d.redirect(wire.CmdRead, filename)
	if err != nil {
		return "", err
	}
	return d.bulkFetch(addr, wire.CmdRead, filename)
}

// Stream implements STREAM <file> [--paced]. onChunk is called once per
// delivered chunk (up to wire.DataSize bytes of the file in bulk mode, one
// word in paced mode); returning an error from onChunk aborts the transfer.
func (d *Driver) Stream(filename string, paced bool, onChunk func(string) error) error {
	args := filename
	if paced {
		args = filename + " --paced"
	}
	addr, err := d.redirect(wire.CmdStream, filename)
	if err != nil {
		return err
	}

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("dial storage node %s: %w", addr, err)
	}
	defer conn.Close()

	if err := wire.WriteRequest(conn, wire.Request{Command: wire.CmdStream, Username: d.username, Args: args}); err != nil {
		return fmt.Errorf("send STREAM: %w", err)
	}

	for {
		resp, err := wire.ReadResponse(conn)
		if err != nil {
			return nil // storage node closed the connection: transfer complete
		}
		if resp.Status != wire.StatusOK {
			return &ResponseError{Status: resp.Status, Data: resp.Data}
		}
		if paced && resp.Data == "STREAM_END" {
			return nil
		}
		if err := onChunk(resp.Data); err != nil {
			return err
		}
	}
}

func (d *Driver) bulkFetch(addr string, cmd wire.Command, filename string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return "", fmt.Errorf("dial storage node %s: %w", addr, err)
	}
	defer conn.Close()

	if err := wire.WriteRequest(conn, wire.Request{Command: cmd, Username: d.username, Args: filename}); err != nil {
		return "", fmt.Errorf("send %s: %w", cmd, err)
	}

	var b strings.Builder
	for {
		resp, err := wire.ReadResponse(conn)
		if err != nil {
			return b.String(), nil // storage node closed: transfer complete
		}
		if resp.Status != wire.StatusOK {
			return "", &ResponseError{Status: resp.Status, Data: resp.Data}
		}
		b.WriteString(resp.Data)
	}
}

// WriteSession is an in-progress WRITE, holding the direct connection to
// the owning storage node open across word-update frames until ETIRW
// commits or the session is abandoned (spec.md §4.2's WRITE handler).
type WriteSession struct {
	conn     net.Conn
	username string
	filename string
}

// BeginWrite implements WRITE <file> <sentence>: redirect to the owning
// storage node, then send the opening "<filename> <sentence_idx>" frame.
// sentenceIdx is 0-based; callers are responsible for the 1-based-to-0-based
// conversion spec.md §6 requires of TTY input before this call.
func (d *Driver) BeginWrite(filename string, sentenceIdx int) (*WriteSession, string, error) {
	args := filename + " " + strconv.Itoa(sentenceIdx)
	addr, err := d.call(wire.CmdWrite, args)
	if err != nil {
		return nil, "", err
	}

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, "", fmt.Errorf("dial storage node %s: %w", addr, err)
	}

	if err := wire.WriteRequest(conn, wire.Request{Command: wire.CmdWrite, Username: d.username, Args: args}); err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("send WRITE: %w", err)
	}
	resp, err := wire.ReadResponse(conn)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("receive WRITE reply: %w", err)
	}
	if resp.Status != wire.StatusOK {
		conn.Close()
		return nil, "", &ResponseError{Status: resp.Status, Data: resp.Data}
	}
	return &WriteSession{conn: conn, username: d.username, filename: filename}, resp.Data, nil
}

// ReplaceWord sends one "<word_idx> <new_word>" mini-command. wordIdx is
// 0-based.
func (ws *WriteSession) ReplaceWord(wordIdx int, newWord string) (string, error) {
	args := strconv.Itoa(wordIdx) + " " + newWord
	if err := wire.WriteRequest(ws.conn, wire.Request{Command: wire.CmdWrite, Username: ws.username, Args: args}); err != nil {
		return "", fmt.Errorf("send word update: %w", err)
	}
	resp, err := wire.ReadResponse(ws.conn)
	if err != nil {
		return "", fmt.Errorf("receive word update reply: %w", err)
	}
	if resp.Status != wire.StatusOK {
		return "", &ResponseError{Status: resp.Status, Data: resp.Data}
	}
	return resp.Data, nil
}

// Commit sends ETIRW, committing the session and closing the connection
// (spec.md §4.2 step 7c).
func (ws *WriteSession) Commit() (string, error) {
	defer ws.conn.Close()
	if err := wire.WriteRequest(ws.conn, wire.Request{Command: wire.CmdEtirw, Username: ws.username}); err != nil {
		return "", fmt.Errorf("send ETIRW: %w", err)
	}
	resp, err := wire.ReadResponse(ws.conn)
	if err != nil {
		return "", fmt.Errorf("receive ETIRW reply: %w", err)
	}
	if resp.Status != wire.StatusOK {
		return "", &ResponseError{Status: resp.Status, Data: resp.Data}
	}
	return resp.Data, nil
}

// Abandon closes the session's connection without committing, triggering
// the storage node's disconnect-rollback path (spec.md §4.2 step 8).
func (ws *WriteSession) Abandon() error {
	return ws.conn.Close()
}
