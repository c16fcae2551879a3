package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/wire"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(Config{Dir: t.TempDir()}, metrics.NewStorage())
	require.NoError(t, err)
	return srv
}

// TestCreateThenDuplicateCreate exercises spec.md §8's scenario 1.
func TestCreateThenDuplicateCreate(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleCreate(wire.Request{Username: "alice", Args: "a.txt"})
	require.Equal(t, wire.StatusOK, resp.Status)

	resp = s.handleCreate(wire.Request{Username: "alice", Args: "a.txt"})
	assert.Equal(t, wire.StatusFileExists, resp.Status)

	meta, err := s.store.ReadMeta("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alice", meta.Owner)
	require.Len(t, meta.ACL, 1)
	assert.Equal(t, "alice", meta.ACL[0].Username)
	assert.True(t, meta.ACL[0].Permission.CanWrite())
}

// TestNonOwnerDeleteFails exercises spec.md §8's scenario 2.
func TestNonOwnerDeleteFails(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate(wire.Request{Username: "alice", Args: "b.txt"}).Status)

	resp := s.handleDelete(wire.Request{Username: "bob", Args: "b.txt"})
	assert.Equal(t, wire.StatusOwnerRequired, resp.Status)
	assert.True(t, s.store.Exists("b.txt"))
}

// TestUpdateACLPreservesOtherFields exercises spec.md §8's scenario 3's
// successful half (the rollback half lives at the coordinator, which owns
// the snapshot-mutate-push-rollback protocol).
func TestUpdateACLPreservesOtherFields(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate(wire.Request{Username: "alice", Args: "c.txt"}).Status)

	resp := s.handleUpdateACL(wire.Request{Args: "c.txt alice:RW,bob:R"})
	require.Equal(t, wire.StatusOK, resp.Status)

	meta, err := s.store.ReadMeta("c.txt")
	require.NoError(t, err)
	require.Len(t, meta.ACL, 2)
	assert.Equal(t, "bob", meta.ACL[1].Username)
	assert.Equal(t, "alice", meta.Owner)
}

// TestSentenceLockExclusionAndCommit exercises spec.md §8's scenario 4.
func TestSentenceLockExclusionAndCommit(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, wire.StatusOK, s.handleCreate(wire.Request{Username: "alice", Args: "d.txt"}).Status)
	require.NoError(t, s.store.CommitWrite("d.txt", []byte("one. two. three.")))
	// CommitWrite leaves a .bak; scenario 4 starts from a clean file with
	// no prior backup, so remove it before the scenario begins.
	s.store.Delete("d.txt.bak")
	// Scenario 4 has bob contend for the lock, so bob needs WRITE access;
	// the permission check runs before the lock is tried.
	require.Equal(t, wire.StatusOK, s.handleUpdateACL(wire.Request{Args: "d.txt alice:RW,bob:RW"}).Status)

	aliceSess, resp := s.beginWriteSession(wire.Request{Username: "alice", Args: "d.txt 0"})
	require.Equal(t, wire.StatusOK, resp.Status)
	require.NotNil(t, aliceSess)

	_, resp = s.beginWriteSession(wire.Request{Username: "bob", Args: "d.txt 0"})
	assert.Equal(t, wire.StatusLocked, resp.Status)

	bobSess, resp := s.beginWriteSession(wire.Request{Username: "bob", Args: "d.txt 1"})
	require.Equal(t, wire.StatusOK, resp.Status)
	require.NotNil(t, bobSess)

	resp = s.applyWordUpdate(aliceSess, wire.Request{Args: "0 ONE"})
	require.Equal(t, wire.StatusOK, resp.Status)

	resp = s.commitSession(aliceSess)
	require.Equal(t, wire.StatusOK, resp.Status)

	data, err := s.store.ReadFile("d.txt")
	require.NoError(t, err)
	assert.Equal(t, "ONE. two. three.", string(data))

	bak, err := s.store.ReadFile("d.txt.bak")
	require.NoError(t, err)
	assert.Equal(t, "one. two. three.", string(bak))
}

// TestUndoAfterWrite exercises spec.md §8's scenario 5.
func TestUndoAfterWrite(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateEmpty("e.txt", "alice", 0))
	require.NoError(t, s.store.CommitWrite("e.txt", []byte("one. two. three.")))
	s.store.Delete("e.txt.bak")

	sess, resp := s.beginWriteSession(wire.Request{Username: "alice", Args: "e.txt 0"})
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Equal(t, wire.StatusOK, s.applyWordUpdate(sess, wire.Request{Args: "0 ONE"}).Status)
	require.Equal(t, wire.StatusOK, s.commitSession(sess).Status)

	resp = s.handleUndo(wire.Request{Args: "e.txt"})
	require.Equal(t, wire.StatusOK, resp.Status)

	data, err := s.store.ReadFile("e.txt")
	require.NoError(t, err)
	assert.Equal(t, "one. two. three.", string(data))
	assert.False(t, s.store.Exists("e.txt.bak"))
}

// TestWriteOnEmptyFileAppendsFirstWord exercises spec.md §8's "Empty file:
// WRITE sentence 1 word 1 succeeds and produces a one-word file" boundary.
func TestWriteOnEmptyFileAppendsFirstWord(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateEmpty("f.txt", "alice", 0))

	sess, resp := s.beginWriteSession(wire.Request{Username: "alice", Args: "f.txt 0"})
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Equal(t, 0, sess.Sentence)

	resp = s.applyWordUpdate(sess, wire.Request{Args: "0 hello"})
	require.Equal(t, wire.StatusOK, resp.Status)
	require.Equal(t, wire.StatusOK, s.commitSession(sess).Status)

	data, err := s.store.ReadFile("f.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

// TestWriteWithoutPermissionDenied checks that WRITE is refused with
// WRITE_PERMISSION for a user who has no ACL entry on the file.
func TestWriteWithoutPermissionDenied(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.CreateEmpty("g.txt", "alice", 0))

	_, resp := s.beginWriteSession(wire.Request{Username: "mallory", Args: "g.txt 0"})
	assert.Equal(t, wire.StatusWritePermission, resp.Status)
}

func TestDeleteMissingFileNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleDelete(wire.Request{Username: "alice", Args: "missing.txt"})
	assert.Equal(t, wire.StatusNotFound, resp.Status)
}
