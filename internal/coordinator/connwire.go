package coordinator

import (
	"fmt"
	"net"

	"github.com/opendocstore/docstore/internal/wire"
)

// connWireSender adapts one storage node's control net.Conn to the
// storagepool.WireSender interface, translating between the string
// command names that interface uses (to avoid storagepool importing
// internal/wire and creating a cycle back through this package) and actual
// wire.Request/wire.Response frames.
//
// SendControl is only ever called from the coordinator's single actor
// goroutine (see server.go), which is what makes one unsynchronized
// net.Conn safe to share across calls: requests to a given storage node
// are already serialized by construction, matching spec.md §5's "the
// coordinator may block on any send/recv to a storage node... during this
// window no other coordinator request makes progress."
type connWireSender struct {
	conn net.Conn
}

func newConnWireSender(conn net.Conn) *connWireSender {
	return &connWireSender{conn: conn}
}

func (c *connWireSender) SendControl(cmd, username, args string) (status, data string, err error) {
	command, ok := commandFromName(cmd)
	if !ok {
		return "", "", fmt.Errorf("unknown control command %q", cmd)
	}
	if err := wire.WriteRequest(c.conn, wire.Request{Command: command, Username: username, Args: args}); err != nil {
		return "", "", err
	}
	resp, err := wire.ReadResponse(c.conn)
	if err != nil {
		return "", "", err
	}
	return resp.Status.String(), resp.Data, nil
}

// commandFromName is the small reverse mapping SendControl needs; kept
// local to this package rather than added to internal/wire since it is
// only ever used at this one coordinator->storage-node adaptation point.
func commandFromName(name string) (wire.Command, bool) {
	for _, c := range []wire.Command{
		wire.CmdCreate, wire.CmdDelete, wire.CmdUpdateACL, wire.CmdUndo, wire.CmdRead,
	} {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}
