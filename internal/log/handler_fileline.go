package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// FileLineHandler renders the fixed on-disk line format:
// "[<iso_timestamp>] [<LEVEL>] [<component>] <message>", followed by
// " key=value" pairs for any attached attrs. There is no teacher
// equivalent of this literal format (the teacher's file sink reuses
// ColorTextHandler with color off); this is a small, deliberately minimal
// sibling handler built the same way ColorTextHandler is built.
type FileLineHandler struct {
	opts      *slog.HandlerOptions
	w         io.Writer
	mu        *sync.Mutex
	attrs     []slog.Attr
	component string
}

func NewFileLineHandler(w io.Writer, opts *slog.HandlerOptions, component string) *FileLineHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &FileLineHandler{opts: opts, w: w, mu: &sync.Mutex{}, component: component}
}

func (h *FileLineHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *FileLineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] [%s] [%s] %s", r.Time.UTC().Format(time.RFC3339), levelName(r.Level), h.component, r.Message)

	for _, attr := range h.attrs {
		appendFileAttr(&buf, attr)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendFileAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	_, err := h.w.Write(buf.Bytes())
	h.mu.Unlock()
	return err
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func appendFileAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	a.Value = a.Value.Resolve()
	fmt.Fprintf(buf, " %s=%s", a.Key, formatValue(a.Value))
}

func (h *FileLineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FileLineHandler{
		opts:      h.opts,
		w:         h.w,
		mu:        h.mu,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
		component: h.component,
	}
}

func (h *FileLineHandler) WithGroup(_ string) slog.Handler {
	return h
}
