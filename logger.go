package imdraw

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/imdraw/gizmo"
	"github.com/gogpu/imdraw/internal/stream"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for imdraw and its sub-packages.
// By default, imdraw produces no log output. Pass nil to restore the
// silent default.
//
// Log levels used by imdraw:
//   - [slog.LevelDebug]: arena creation, growth and rotation, gizmo grabs, pipeline creation
//   - [slog.LevelInfo]: context lifecycle
//   - [slog.LevelWarn]: arena soft overflow, dropped text
//
// Example:
//
//	imdraw.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	stream.SetLogger(l)
	gizmo.SetLogger(l)
}

// Logger returns the current logger used by imdraw.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger, such as
// backend/wgpu.Backend.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a device if it accepts one.
func propagateLogger(v any, l *slog.Logger) {
	if ls, ok := v.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
