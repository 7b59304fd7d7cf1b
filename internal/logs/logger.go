// Package logs builds the slog loggers used by the command line and keeps
// an in-memory log pane for callers that want to inspect messages.
package logs

import (
	"io"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Level is the process-wide level of loggers built by New.
var Level = new(slog.LevelVar)

// ParseLevel maps debug, info, warn and error to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New returns a logger writing text records to w and fanning out to every
// extra handler. A nil level means Level.
func New(w io.Writer, level slog.Leveler, extra ...slog.Handler) *slog.Logger {
	if level == nil {
		level = Level
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
	handlers = append(handlers, extra...)
	return slog.New(slogmulti.Fanout(handlers...))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
