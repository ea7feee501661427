// Package activity records human-readable narration of agent decisions.
// It is a side-effect sink: the core writes to it and never reads it
// back for decisions.
package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/talgya/health-grid/internal/store"
)

// Logger writes activity records fire-and-forget. A nil Logger is a
// valid no-op. Failures are logged at debug and swallowed; logging must
// never break an agent's tick.
type Logger struct {
	sink    store.ActivityLog
	timeout time.Duration
}

// New builds a Logger over a sink. Returns nil for a nil sink.
func New(sink store.ActivityLog) *Logger {
	if sink == nil {
		return nil
	}
	return &Logger{sink: sink, timeout: 3 * time.Second}
}

// Log records one activity. Safe to call on a nil Logger.
func (l *Logger) Log(entityID, entityName, agentType, activityType, message string, metadata map[string]any) {
	slog.Info(message, "agent", agentType, "type", activityType, "entity", entityID)
	if l == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	err := l.sink.AppendActivity(ctx, store.Activity{
		EntityID:     entityID,
		EntityName:   entityName,
		AgentType:    agentType,
		ActivityType: activityType,
		Message:      message,
		Metadata:     metadata,
	})
	if err != nil {
		slog.Debug("activity append failed", "entity", entityID, "error", err)
	}
}
