package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocstore/docstore/internal/coordinator/storagepool"
	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/wire"
)

// fakeSender is an in-memory storagepool.WireSender double standing in
// for a real network round-trip to a storage node, so coordinator-side
// handler logic (placement, index mutation, ACL rollback) can be tested
// without a socket.
type fakeSender struct {
	calls []call
	// reply, keyed by command, returned for every SendControl call of
	// that command; defaults to OK if absent.
	reply map[string]wire.Response
	// fail, if set for a command, makes SendControl return that error
	// instead of a reply.
	fail map[string]error
}

type call struct {
	cmd, username, args string
}

func newFakeSender() *fakeSender {
	return &fakeSender{reply: map[string]wire.Response{}, fail: map[string]error{}}
}

func (f *fakeSender) SendControl(cmd, username, args string) (string, string, error) {
	f.calls = append(f.calls, call{cmd, username, args})
	if err, ok := f.fail[cmd]; ok {
		return "", "", err
	}
	if resp, ok := f.reply[cmd]; ok {
		return resp.Status.String(), resp.Data, nil
	}
	return wire.StatusOK.String(), "ok", nil
}

func newTestServer(t *testing.T) (*Server, *fakeSender) {
	t.Helper()
	s, err := NewServer(Config{RegistryPath: t.TempDir() + "/clients.db"}, metrics.NewCoordinator())
	require.NoError(t, err)

	sender := newFakeSender()
	s.pool.Register(&storagepool.Node{ID: "s1", Addr: "10.0.0.1:9100", ControlConn: sender, Alive: true})
	return s, sender
}

func TestCreateThenDuplicateCreate(t *testing.T) {
	s, _ := newTestServer(t)

	resp := s.handleCreate("alice", "a.txt")
	require.Equal(t, wire.StatusOK, resp.Status)

	resp = s.handleCreate("alice", "a.txt")
	assert.Equal(t, wire.StatusFileExists, resp.Status)
}

func TestCreateWithNoStorageNodeIsServerUnavailable(t *testing.T) {
	s, err := NewServer(Config{RegistryPath: t.TempDir() + "/clients.db"}, metrics.NewCoordinator())
	require.NoError(t, err)

	resp := s.handleCreate("alice", "a.txt")
	assert.Equal(t, wire.StatusServerUnavailable, resp.Status)
}

func TestDeleteByNonOwnerIsForwardedVerbatim(t *testing.T) {
	s, sender := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "b.txt").Status)

	sender.reply[wire.CmdDelete.String()] = wire.Response{Status: wire.StatusOwnerRequired, Data: "not owner"}
	resp := s.handleDelete("bob", "b.txt")
	assert.Equal(t, wire.StatusOwnerRequired, resp.Status)

	_, ok := s.idx.Find("b.txt")
	assert.True(t, ok, "index entry must survive a forwarded DELETE failure")
}

// TestADDAccessRollbackOnNetworkFailure exercises spec.md §8's scenario 3:
// a network failure mid-ADDACCESS must restore the pre-call ACL exactly.
func TestADDAccessRollbackOnNetworkFailure(t *testing.T) {
	s, sender := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "c.txt").Status)
	require.Equal(t, wire.StatusOK, s.handleAddAccess("alice", "c.txt", "bob", 1 /*PermRead*/).Status)

	entry, ok := s.idx.Find("c.txt")
	require.True(t, ok)
	require.Len(t, entry.Meta.ACL, 2)

	sender.fail[wire.CmdUpdateACL.String()] = assert.AnError
	resp := s.handleAddAccess("alice", "c.txt", "charlie", 1)
	assert.Equal(t, wire.StatusNetwork, resp.Status)

	entry, ok = s.idx.Find("c.txt")
	require.True(t, ok)
	require.Len(t, entry.Meta.ACL, 2, "rollback must discard the in-flight charlie grant")
	assert.Equal(t, "bob", entry.Meta.ACL[1].Username)
}

func TestREMAccessCannotTargetOwner(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "owner.txt").Status)

	resp := s.handleRemAccess("alice", "owner.txt", "alice")
	assert.Equal(t, wire.StatusInvalidOperation, resp.Status)
}

func TestNonOwnerCannotMutateACL(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "d.txt").Status)

	resp := s.handleAddAccess("bob", "d.txt", "carol", 1)
	assert.Equal(t, wire.StatusOwnerRequired, resp.Status)
}

// TestLRUCacheHitMissSequence exercises spec.md §8's scenario 6.
func TestLRUCacheHitMissSequence(t *testing.T) {
	s, _ := newTestServer(t)
	for _, f := range []string{"f1.txt", "f2.txt", "f3.txt", "f4.txt"} {
		require.Equal(t, wire.StatusOK, s.handleCreate("alice", f).Status)
	}

	seq := []string{"f1.txt", "f2.txt", "f3.txt", "f1.txt", "f4.txt", "f2.txt"}
	wantHit := []bool{false, false, false, true, false, true}

	for i, f := range seq {
		before, beforeMiss := s.idx.HitMissCounts()
		resp := s.handleInfo("alice", f)
		require.Equal(t, wire.StatusOK, resp.Status)
		after, afterMiss := s.idx.HitMissCounts()

		gotHit := after > before
		gotMiss := afterMiss > beforeMiss
		assert.Equal(t, wantHit[i], gotHit, "step %d (%s): hit", i, f)
		assert.Equal(t, !wantHit[i], gotMiss, "step %d (%s): miss", i, f)
	}

	require.Equal(t, wire.StatusOK, s.handleDelete("alice", "f1.txt").Status)
	resp := s.handleInfo("alice", "f1.txt")
	assert.Equal(t, wire.StatusNotFound, resp.Status)
}

func TestReadRedirectDeniedWithoutPermission(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "e.txt").Status)

	resp := s.handleReadRedirect("mallory", "e.txt")
	assert.Equal(t, wire.StatusReadPermission, resp.Status)
}

func TestExecDisabledByDefault(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate("alice", "exec.txt").Status)

	resp := s.handleExec("alice", "exec.txt")
	assert.Equal(t, wire.StatusInvalidOperation, resp.Status)
}
