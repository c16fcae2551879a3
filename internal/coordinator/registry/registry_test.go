package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.tsv")

	r, err := Load(path)
	require.NoError(t, err)

	_, err = r.Register("alice", "10.0.0.5", 1000)
	require.NoError(t, err)

	r2, err := Load(path)
	require.NoError(t, err)
	rec := r2.Get("alice")
	require.NotNil(t, rec)
	assert.Equal(t, "10.0.0.5", rec.LastIP)
	assert.True(t, rec.Online)
	assert.EqualValues(t, 1000, rec.FirstConnectedAt)
}

func TestReconnectReoccupiesSameRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.tsv")
	r, err := Load(path)
	require.NoError(t, err)

	_, err = r.Register("alice", "10.0.0.5", 1000)
	require.NoError(t, err)
	require.NoError(t, r.Disconnect("alice"))

	rec, err := r.Register("alice", "10.0.0.6", 2000)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, rec.FirstConnectedAt, "first-connected timestamp must not change on reconnect")
	assert.Equal(t, "10.0.0.6", rec.LastIP)
	assert.True(t, rec.Online)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "does-not-exist.tsv"))
	require.NoError(t, err)
	assert.Empty(t, r.All())
}

func TestDisconnectMarksOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clients.tsv")
	r, err := Load(path)
	require.NoError(t, err)

	_, err = r.Register("bob", "10.0.0.7", 500)
	require.NoError(t, err)
	require.NoError(t, r.Disconnect("bob"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bob\t10.0.0.7\t500\t0")
}
