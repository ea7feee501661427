package agents

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/health-grid/internal/activity"
	"github.com/talgya/health-grid/internal/bus"
	"github.com/talgya/health-grid/internal/entity"
	"github.com/talgya/health-grid/internal/metrics"
	"github.com/talgya/health-grid/internal/store"
)

// Deps is everything an agent needs besides its own identity. The bus
// is injected; there is no package-level singleton.
type Deps struct {
	Store    store.Store
	Bus      *bus.Bus
	Activity *activity.Logger
	Metrics  *metrics.Recorder
}

// base carries the plumbing shared by every agent type.
//
// The reference system ran all agent code on one event loop; here ticks
// and event handlers are real goroutines, so each agent serializes its
// own load-mutate-save cycles with mu. Cross-agent consistency is still
// only the store's last-writer-wins protocol — no global locks.
type base struct {
	id   string
	name string
	deps Deps
	mu   sync.Mutex
}

// loadOwn re-reads the agent's own record. Agents call this at the top
// of every tick and handler rather than trusting in-memory state.
func (b *base) loadOwn(ctx context.Context) (*entity.Entity, bool) {
	e, err := b.deps.Store.Load(ctx, b.id)
	if err != nil {
		slog.Warn("agent could not load own entity", "entity", b.id, "error", err)
		return nil, false
	}
	if b.name == "" {
		b.name = e.Name
	}
	return e, true
}

// saveOwn writes the record back. A failed save is logged and the tick
// continues with in-memory state for this cycle; the next tick re-reads
// from the store anyway.
func (b *base) saveOwn(ctx context.Context, e *entity.Entity) {
	if err := b.deps.Store.Save(ctx, e); err != nil {
		slog.Warn("state save failed, continuing", "entity", b.id, "error", err)
	}
}

// runTicks drives tick on its own timer until ctx is canceled. Each
// agent's timer is independent; nothing orders ticks across agents.
func runTicks(ctx context.Context, period time.Duration, tick func(context.Context)) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				tick(ctx)
			}
		}
	}()
}
