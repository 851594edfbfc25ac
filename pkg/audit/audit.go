// Package audit emits structured audit records for authentication attempts
// and state-changing or authorization-relevant calls. Records carry the
// best-effort resolved actor, an action tag, and contextual detail.
package audit

import (
	"context"
	"log/slog"
)

// UnknownActor is logged when the acting username could not be resolved.
const UnknownActor = "unknown"

// Logger writes audit records through a structured logger.
type Logger struct {
	log *slog.Logger
}

// New creates an audit logger on top of the given slog.Logger.
// Passing nil uses slog.Default().
func New(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log.With(slog.String("log", "audit"))}
}

// Record emits an audit record. An empty actor is logged as "unknown".
func (l *Logger) Record(ctx context.Context, actor, action, detail string) {
	if actor == "" {
		actor = UnknownActor
	}
	l.log.InfoContext(ctx, "audit",
		slog.String("actor", actor),
		slog.String("action", action),
		slog.String("detail", detail),
	)
}

// Alert emits an audit record at warning level. Used for signals stronger
// than ordinary denial, such as identity mismatches.
func (l *Logger) Alert(ctx context.Context, actor, action, detail string) {
	if actor == "" {
		actor = UnknownActor
	}
	l.log.WarnContext(ctx, "audit",
		slog.String("actor", actor),
		slog.String("action", action),
		slog.String("detail", detail),
	)
}
