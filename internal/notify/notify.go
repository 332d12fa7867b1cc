// Package notify delivers user-facing messages produced by the sync layer.
// Delivery is fire-and-forget: sinks log their own failures.
package notify

import (
	"context"
	"log/slog"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Notice struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, userID, message string, severity Severity)
}

// Log writes notices to the process log.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notify")}
}

func (l *Log) Notify(ctx context.Context, userID, message string, severity Severity) {
	level := slog.LevelInfo
	switch severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	l.logger.Log(ctx, level, message, "user_id", userID, "severity", severity)
}

// Multi fans a notice out to every sink.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID, message string, severity Severity) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, userID, message, severity)
		}
	}
}

// Nop drops every notice.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, Severity) {}
