package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLineHandlerFormat(t *testing.T) {
	var buf fakeWriter
	h := NewFileLineHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, "name_server")
	logger := slog.New(h)
	logger.Info("storage node registered", "node", "10.0.0.1:9000")

	line := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z\] \[INFO\] \[name_server\] storage node registered node=10\.0\.0\.1:9000\n$`, line)
}

func TestFanoutHandlerDispatchesToBoth(t *testing.T) {
	var a, b fakeWriter
	h := newFanoutHandler([]slog.Handler{
		NewFileLineHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}, "storage_server"),
		NewColorTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelInfo}, false),
	})
	logger := slog.New(h)
	logger.Warn("lock timed out")

	require.Contains(t, a.String(), "[storage_server] lock timed out")
	require.Contains(t, b.String(), "lock timed out")
}

func TestSetLevelStoresLevel(t *testing.T) {
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

// fakeWriter is a tiny io.Writer collecting everything written to it,
// avoiding a bytes.Buffer import cycle concern in multiple test funcs.
type fakeWriter struct {
	data []byte
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *fakeWriter) String() string { return string(w.data) }
