// Package storagepool tracks the coordinator's connected storage nodes
// (spec.md §3's StorageNodeRecord) and implements the round-robin
// placement algorithm for CREATE (spec.md §4.1: "Round-robin across the
// storage_nodes list via a monotonically-advancing cursor modulo node
// count. Deterministic, simple, stateless across restarts"). Grounded on
// the teacher's singly-linked-list framing only in spirit — a slice gives
// the same stateless, restart-resetting cursor behavior with none of the
// manual-list-node bookkeeping the teacher's C-era source implies.
package storagepool

import (
	"sync"

	"github.com/opendocstore/docstore/internal/docerr"
)

// Node is the coordinator-side record of one connected storage node.
type Node struct {
	ID          string // assigned at S-REGISTER, used by Remove/ByID; forwards are routed by Addr
	Addr        string // client-facing "ip:port" clients are redirected to
	ControlConn WireSender
	Alive       bool
}

// WireSender abstracts the control-connection send used to forward
// CREATE/DELETE/UPDATE_ACL/UNDO/CMD_READ to the owning node without this
// package importing internal/coordinator's connection type (avoids an
// import cycle between storagepool and the connection that owns it).
type WireSender interface {
	SendControl(cmd, username, args string) (status string, data string, err error)
}

// Pool is the coordinator's storage-node registry plus round-robin
// cursor. Not safe for concurrent use beyond the coordinator's single
// serializing goroutine, same discipline as internal/coordinator/index.
type Pool struct {
	mu     sync.Mutex // guards only cursor reads from /metrics, which may run on another goroutine
	nodes  []*Node
	cursor int
}

// New returns an empty Pool. The round-robin cursor always starts at
// zero, matching the spec's "stateless across restarts" requirement.
func New() *Pool {
	return &Pool{}
}

// Register adds a newly-connected storage node to the pool.
func (p *Pool) Register(n *Node) {
	n.Alive = true
	p.nodes = append(p.nodes, n)
}

// Remove drops a node (connection lost) by ID.
func (p *Pool) Remove(id string) {
	for i, n := range p.nodes {
		if n.ID == id {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			return
		}
	}
}

// ByID looks up a node by ID.
func (p *Pool) ByID(id string) (*Node, bool) {
	for _, n := range p.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// All returns every registered node.
func (p *Pool) All() []*Node {
	out := make([]*Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Count returns the number of registered storage nodes, whether or not
// they are marked alive, exposed at /metrics.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.nodes)
}

// Next selects the node for a new CREATE via round-robin, advancing the
// cursor modulo the current node count. Returns ServerUnavailable when no
// node is registered, matching spec.md §7's SERVER_UNAVAILABLE code.
func (p *Pool) Next() (*Node, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.nodes) == 0 {
		return nil, docerr.ServerUnavailableError("no storage node available")
	}
	n := p.nodes[p.cursor%len(p.nodes)]
	p.cursor++
	return n, nil
}
