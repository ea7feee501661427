// Package metrics records structured per-tick telemetry for the
// dashboard graphs. Like activity narration, it is write-only from the
// core's point of view.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/talgya/health-grid/internal/store"
)

// Recorder writes metric records fire-and-forget. A nil Recorder is a
// valid no-op.
type Recorder struct {
	sink    store.MetricsLog
	timeout time.Duration
}

// New builds a Recorder over a sink. Returns nil for a nil sink.
func New(sink store.MetricsLog) *Recorder {
	if sink == nil {
		return nil
	}
	return &Recorder{sink: sink, timeout: 3 * time.Second}
}

// Record persists one telemetry snapshot. Safe to call on a nil
// Recorder; errors are logged at debug and swallowed.
func (r *Recorder) Record(entityID, entityType, zone string, data map[string]any) {
	if r == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	err := r.sink.AppendMetric(ctx, store.Metric{
		EntityID:   entityID,
		EntityType: entityType,
		Zone:       zone,
		Data:       data,
	})
	if err != nil {
		slog.Debug("metric append failed", "entity", entityID, "error", err)
	}
}
