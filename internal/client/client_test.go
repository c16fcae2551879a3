package client_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opendocstore/docstore/internal/client/protocol"
	"github.com/opendocstore/docstore/internal/client/repl"
	"github.com/opendocstore/docstore/internal/coordinator"
	"github.com/opendocstore/docstore/internal/metrics"
	"github.com/opendocstore/docstore/internal/storage"
)

// waitForListener retries dialing addr until it accepts a connection or the
// deadline passes, so the test doesn't race the coordinator/storage node's
// own startup goroutines.
func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("nothing listening on %s after 5s", addr)
}

// startCluster brings up one coordinator and one storage node on fixed
// loopback ports and tears both down when the test completes.
func startCluster(t *testing.T) (coordAddr string) {
	t.Helper()
	coordAddr = "127.0.0.1:19600"
	storageAddr := "127.0.0.1:19601"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	coordSrv, err := coordinator.NewServer(coordinator.Config{
		ListenAddr:   coordAddr,
		RegistryPath: t.TempDir() + "/clients.db",
	}, metrics.NewCoordinator())
	require.NoError(t, err)
	go coordSrv.Run(ctx)
	waitForListener(t, coordAddr)

	storageSrv, err := storage.NewServer(storage.Config{
		NodeID:     "s1",
		Dir:        t.TempDir(),
		CoordAddr:  coordAddr,
		ClientAddr: storageAddr,
	}, metrics.NewStorage())
	require.NoError(t, err)
	go storageSrv.Run(ctx)
	waitForListener(t, storageAddr)

	// Give the SS_INIT handshake a moment to register before a client
	// issues its first CREATE (which needs a node in the pool).
	time.Sleep(100 * time.Millisecond)
	return coordAddr
}

func TestEndToEndCreateWriteReadUndo(t *testing.T) {
	coordAddr := startCluster(t)

	alice, err := protocol.Dial(coordAddr, "alice")
	require.NoError(t, err)
	defer alice.Close()

	var out bytes.Buffer
	r := repl.New(alice, strings.NewReader(""), &out)

	r.Dispatch("CREATE d.txt")
	require.Contains(t, out.String(), "created")
	out.Reset()

	// WRITE needs its own sub-loop; drive it via a fed-in reader instead of
	// Dispatch's single-line form.
	sess, msg, err := alice.BeginWrite("d.txt", 0)
	require.NoError(t, err)
	require.Contains(t, msg, "Lock acquired")

	_, err = sess.ReplaceWord(0, "Hello")
	require.NoError(t, err)
	_, err = sess.Commit()
	require.NoError(t, err)

	data, err := alice.Read("d.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello", data)

	_, err = alice.Undo("d.txt")
	require.NoError(t, err)
	data, err = alice.Read("d.txt")
	require.NoError(t, err)
	require.Equal(t, "", data)
}

func TestEndToEndACLEnforcement(t *testing.T) {
	coordAddr := startCluster(t)

	alice, err := protocol.Dial(coordAddr, "alice")
	require.NoError(t, err)
	defer alice.Close()
	bob, err := protocol.Dial(coordAddr, "bob")
	require.NoError(t, err)
	defer bob.Close()

	_, err = alice.Create("e.txt")
	require.NoError(t, err)

	_, err = bob.Read("e.txt")
	require.Error(t, err)
	var rerr *protocol.ResponseError
	require.ErrorAs(t, err, &rerr)

	_, err = alice.AddAccess("-R", "e.txt", "bob")
	require.NoError(t, err)

	_, err = bob.Read("e.txt")
	require.NoError(t, err)

	_, err = bob.Delete("e.txt")
	require.Error(t, err)
}

func TestREPLHelpAndUnknownCommand(t *testing.T) {
	coordAddr := startCluster(t)

	alice, err := protocol.Dial(coordAddr, "alice")
	require.NoError(t, err)
	defer alice.Close()

	var out bytes.Buffer
	r := repl.New(alice, strings.NewReader(""), &out)

	exit := r.Dispatch("HELP")
	require.False(t, exit)
	require.Contains(t, out.String(), "CREATE <file>")

	out.Reset()
	exit = r.Dispatch("BOGUS")
	require.False(t, exit)
	require.Contains(t, out.String(), "unknown command")

	exit = r.Dispatch("QUIT")
	require.True(t, exit)
}
