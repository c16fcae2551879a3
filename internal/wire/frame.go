// Package wire implements the fixed-size binary framing shared by every
// coordinator<->storage-node<->client connection: request/response frame
// layout, the command and status enumerations, and the XOR-fold checksum.
// Encoding style (big-endian via encoding/binary into a bytes.Buffer)
// follows the teacher's internal/protocol/xdr helpers, without XDR's
// variable-length padding rules — every field here is fixed width.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/opendocstore/docstore/internal/docerr"
)

// Magic identifies a valid frame header; a mismatch is fatal for the frame.
const Magic uint32 = 0xD0C5

const (
	UsernameSize = 64
	ArgsSize     = 1024
	DataSize     = 4096
)

// RequestSize is the total wire size of a Request frame: magic(4) +
// command(4) + username(64) + args(1024) + checksum(4).
const RequestSize = 4 + 4 + UsernameSize + ArgsSize + 4

// ResponseSize is the total wire size of a Response frame: magic(4) +
// status(4) + data(4096) + checksum(4).
const ResponseSize = 4 + 4 + DataSize + 4

// Command is the request frame's operation selector.
type Command uint32

const (
	CmdView Command = iota + 1
	CmdRead
	CmdCreate
	CmdWrite
	CmdEtirw
	CmdUndo
	CmdInfo
	CmdDelete
	CmdStream
	CmdList
	CmdAddAccess
	CmdRemAccess
	CmdExec
	CmdClientInit
	CmdSSInit
	CmdUpdateACL
	CmdHeartbeat
)

func (c Command) String() string {
	switch c {
	case CmdView:
		return "VIEW"
	case CmdRead:
		return "READ"
	case CmdCreate:
		return "CREATE"
	case CmdWrite:
		return "WRITE"
	case CmdEtirw:
		return "ETIRW"
	case CmdUndo:
		return "UNDO"
	case CmdInfo:
		return "INFO"
	case CmdDelete:
		return "DELETE"
	case CmdStream:
		return "STREAM"
	case CmdList:
		return "LIST"
	case CmdAddAccess:
		return "ADDACCESS"
	case CmdRemAccess:
		return "REMACCESS"
	case CmdExec:
		return "EXEC"
	case CmdClientInit:
		return "CLIENT_INIT"
	case CmdSSInit:
		return "SS_INIT"
	case CmdUpdateACL:
		return "UPDATE_ACL"
	case CmdHeartbeat:
		return "HEARTBEAT"
	default:
		return "UNKNOWN"
	}
}

// Status is the response frame's outcome selector. Values align 1:1 with
// docerr.Code; StatusOK is the zero-error case.
type Status uint32

const (
	StatusOK Status = iota
	StatusNotFound
	StatusFileExists
	StatusReadPermission
	StatusWritePermission
	StatusOwnerRequired
	StatusLocked
	StatusInvalidIndex
	StatusInvalidFilename
	StatusInvalidArgs
	StatusInvalidOperation
	StatusServerUnavailable
	StatusNetwork
	StatusInternal
)

// StatusFromCode converts a docerr.Code to its wire Status. OK and every
// code in docerr are represented 1:1; this is the "translate to a response
// status at the edge" boundary named in spec.md's error handling notes.
func StatusFromCode(c docerr.Code) Status {
	switch c {
	case docerr.OK:
		return StatusOK
	case docerr.NotFound:
		return StatusNotFound
	case docerr.FileExists:
		return StatusFileExists
	case docerr.ReadPermission:
		return StatusReadPermission
	case docerr.WritePermission:
		return StatusWritePermission
	case docerr.OwnerRequired:
		return StatusOwnerRequired
	case docerr.Locked:
		return StatusLocked
	case docerr.InvalidIndex:
		return StatusInvalidIndex
	case docerr.InvalidFilename:
		return StatusInvalidFilename
	case docerr.InvalidArgs:
		return StatusInvalidArgs
	case docerr.InvalidOperation:
		return StatusInvalidOperation
	case docerr.ServerUnavailable:
		return StatusServerUnavailable
	case docerr.Network:
		return StatusNetwork
	default:
		return StatusInternal
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusFileExists:
		return "FILE_EXISTS"
	case StatusReadPermission:
		return "READ_PERMISSION"
	case StatusWritePermission:
		return "WRITE_PERMISSION"
	case StatusOwnerRequired:
		return "OWNER_REQUIRED"
	case StatusLocked:
		return "LOCKED"
	case StatusInvalidIndex:
		return "INVALID_INDEX"
	case StatusInvalidFilename:
		return "INVALID_FILENAME"
	case StatusInvalidArgs:
		return "INVALID_ARGS"
	case StatusInvalidOperation:
		return "INVALID_OPERATION"
	case StatusServerUnavailable:
		return "SERVER_UNAVAILABLE"
	case StatusNetwork:
		return "NETWORK"
	case StatusInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Request is the decoded form of a request frame.
type Request struct {
	Command  Command
	Username string
	Args     string
}

// Response is the decoded form of a response frame.
type Response struct {
	Status Status
	Data   string
}

// EncodeRequest renders r as a fixed-size Request frame, checksum included.
func EncodeRequest(r Request) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(RequestSize)

	if err := binary.Write(buf, binary.BigEndian, Magic); err != nil {
		return nil, fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(r.Command)); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	if err := writeFixedString(buf, r.Username, UsernameSize); err != nil {
		return nil, fmt.Errorf("write username: %w", err)
	}
	if err := writeFixedString(buf, r.Args, ArgsSize); err != nil {
		return nil, fmt.Errorf("write args: %w", err)
	}

	sum := xorFold(buf.Bytes())
	if err := binary.Write(buf, binary.BigEndian, sum); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRequest parses a raw RequestSize-byte frame, validating magic and
// checksum. A magic or checksum mismatch is reported as docerr.Network —
// the caller treats the connection as disconnect-worthy, per spec.
func DecodeRequest(raw []byte) (Request, error) {
	var req Request
	if len(raw) != RequestSize {
		return req, docerr.NetworkError(fmt.Sprintf("short request frame: got %d want %d", len(raw), RequestSize))
	}

	body := raw[:len(raw)-4]
	wantSum := binary.BigEndian.Uint32(raw[len(raw)-4:])
	if xorFold(body) != wantSum {
		return req, docerr.NetworkError("request checksum mismatch")
	}

	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != Magic {
		return req, docerr.NetworkError("request magic mismatch")
	}

	req.Command = Command(binary.BigEndian.Uint32(raw[4:8]))
	req.Username = readFixedString(raw[8 : 8+UsernameSize])
	req.Args = readFixedString(raw[8+UsernameSize : 8+UsernameSize+ArgsSize])
	return req, nil
}

// EncodeResponse renders r as a fixed-size Response frame, checksum included.
func EncodeResponse(r Response) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(ResponseSize)

	if err := binary.Write(buf, binary.BigEndian, Magic); err != nil {
		return nil, fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(r.Status)); err != nil {
		return nil, fmt.Errorf("write status: %w", err)
	}
	if err := writeFixedString(buf, r.Data, DataSize); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	sum := xorFold(buf.Bytes())
	if err := binary.Write(buf, binary.BigEndian, sum); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeResponse parses a raw ResponseSize-byte frame, validating magic and
// checksum.
func DecodeResponse(raw []byte) (Response, error) {
	var resp Response
	if len(raw) != ResponseSize {
		return resp, docerr.NetworkError(fmt.Sprintf("short response frame: got %d want %d", len(raw), ResponseSize))
	}

	body := raw[:len(raw)-4]
	wantSum := binary.BigEndian.Uint32(raw[len(raw)-4:])
	if xorFold(body) != wantSum {
		return resp, docerr.NetworkError("response checksum mismatch")
	}

	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != Magic {
		return resp, docerr.NetworkError("response magic mismatch")
	}

	resp.Status = Status(binary.BigEndian.Uint32(raw[4:8]))
	resp.Data = readFixedString(raw[8 : 8+DataSize])
	return resp, nil
}

// writeFixedString writes s into buf as exactly width bytes, truncating or
// NUL-padding as needed. No length check is made here or in the encoders,
// so a longer value is cut to width bytes without an error.
func writeFixedString(buf *bytes.Buffer, s string, width int) error {
	b := make([]byte, width)
	copy(b, s)
	_, err := buf.Write(b)
	return err
}

// readFixedString trims a NUL-padded fixed-width field back to its content.
func readFixedString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}

// xorFold computes the checksum: XOR every big-endian uint32 stride of b
// together. len(b) is always a multiple of 4 for our fixed frames, so there
// is no partial-stride remainder to handle.
func xorFold(b []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(b); i += 4 {
		sum ^= binary.BigEndian.Uint32(b[i : i+4])
	}
	return sum
}
