// Package log is the shared structured-logging facade used by the
// coordinator, storage node, and client binaries: a swappable slog.Handler
// behind small package-level helpers, an atomic runtime-adjustable level,
// and a colored text handler for interactive terminals.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level is a logging severity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	currentLevel atomic.Int32

	mu           sync.RWMutex
	slogger      *slog.Logger
	handlerLevel *slog.LevelVar
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	reconfigure(os.Stdout, isTerminalFile(os.Stdout), "")
}

// Config is the process-wide logging configuration, bound from pkg/config.
type Config struct {
	Level Level
	// Component names this process in the on-disk file-line format —
	// "name_server" for the coordinator, "storage_server" for a storage
	// node.
	Component string
	// FilePath, if non-empty, is opened for append and fed the
	// "[<iso_timestamp>] [<LEVEL>] [<component>] <message>" line format,
	// in addition to the colored stdout stream.
	FilePath string
}

// Init (re)configures the package-level logger, fanning out to a file
// handler as well as the colored stdout handler when FilePath is set.
func Init(cfg Config) error {
	currentLevel.Store(int32(cfg.Level))

	var fileWriter io.Writer
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.FilePath, err)
		}
		fileWriter = f
	}

	reconfigureWithFile(os.Stdout, isTerminalFile(os.Stdout), cfg.Component, fileWriter)
	return nil
}

func reconfigure(w io.Writer, useColor bool, component string) {
	reconfigureWithFile(w, useColor, component, nil)
}

func reconfigureWithFile(w io.Writer, useColor bool, component string, fileWriter io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	handlerLevel = new(slog.LevelVar)
	handlerLevel.Set(toSlogLevel(Level(currentLevel.Load())))
	opts := &slog.HandlerOptions{Level: handlerLevel}

	handlers := []slog.Handler{NewColorTextHandler(w, opts, useColor)}
	if fileWriter != nil {
		handlers = append(handlers, NewFileLineHandler(fileWriter, opts, component))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = newFanoutHandler(handlers)
	}
	slogger = slog.New(handler)
}

// SetLevel changes the minimum level at runtime, for both the package-level
// helpers and the installed handlers. The binaries set the level once at
// startup through Init; nothing in them calls SetLevel afterwards.
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
	mu.RLock()
	handlerLevel.Set(toSlogLevel(l))
	mu.RUnlock()
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

func Debug(msg string, args ...any) {
	if LevelDebug < Level(currentLevel.Load()) {
		return
	}
	getLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if LevelInfo < Level(currentLevel.Load()) {
		return
	}
	getLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if LevelWarn < Level(currentLevel.Load()) {
		return
	}
	getLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	getLogger().Error(msg, args...)
}

// With returns a *slog.Logger pre-bound with args, for call sites that log
// many lines under the same correlation fields (e.g. a connection ID).
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// ParseLevel converts a config string ("debug"/"info"/"warn"/"error") to a
// Level, defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func isTerminalFile(f *os.File) bool {
	return isTerminal(f.Fd())
}

// ctxKey correlates log lines to a connection/request via a context value,
// scoped to this system's one correlation field.
type ctxKey struct{}

// WithCorrelationID returns ctx carrying id, retrievable by
// CorrelationID(ctx) and automatically attached by InfoCtx/WarnCtx/etc.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	Info(msg, withCorrelation(ctx, args)...)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	Warn(msg, withCorrelation(ctx, args)...)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	Error(msg, withCorrelation(ctx, args)...)
}

func withCorrelation(ctx context.Context, args []any) []any {
	id := CorrelationID(ctx)
	if id == "" {
		return args
	}
	return append([]any{"correlation_id", id}, args...)
}
