// Package store provides entity, activity, and metrics storage. The
// coordination core only needs load-by-id and save-back semantics plus
// a zone/type lookup; everything else here serves the API surface.
//
// Concurrency contract: agents read their full state at tick start,
// mutate a local copy, and write it back at tick end. Writes are
// last-writer-wins per entity — acceptable because each entity's state
// is owned by exactly one agent.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/talgya/health-grid/internal/entity"
)

// ErrNotFound is returned when no entity has the requested ID.
var ErrNotFound = errors.New("entity not found")

// Store is the entity record storage the agents run against.
type Store interface {
	// Load returns the entity with the given ID, or ErrNotFound.
	Load(ctx context.Context, id string) (*entity.Entity, error)
	// Save writes the full entity record, replacing any previous state.
	Save(ctx context.Context, e *entity.Entity) error
	// FindByZoneAndType returns entities of one type in one zone.
	FindByZoneAndType(ctx context.Context, zone string, t entity.Type) ([]*entity.Entity, error)
	// FindByType returns every entity of one type, all zones.
	FindByType(ctx context.Context, t entity.Type) ([]*entity.Entity, error)
	// All returns every entity record.
	All(ctx context.Context) ([]*entity.Entity, error)
}

// Activity is one narrated agent decision, persisted for the dashboard.
type Activity struct {
	ID           int64          `db:"id" json:"id"`
	EntityID     string         `db:"entity_id" json:"entityId"`
	EntityName   string         `db:"entity_name" json:"entityName"`
	AgentType    string         `db:"agent_type" json:"agentType"`
	ActivityType string         `db:"activity_type" json:"activityType"`
	Message      string         `db:"message" json:"message"`
	Metadata     map[string]any `db:"-" json:"metadata,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// Metric is one structured telemetry record emitted by an agent tick.
type Metric struct {
	ID         int64          `db:"id" json:"id"`
	EntityID   string         `db:"entity_id" json:"entityId"`
	EntityType string         `db:"entity_type" json:"entityType"`
	Zone       string         `db:"zone" json:"zone,omitempty"`
	Data       map[string]any `db:"-" json:"data"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// ActivityLog is the sink for agent narration. Implementations must be
// safe for concurrent use.
type ActivityLog interface {
	AppendActivity(ctx context.Context, a Activity) error
	RecentActivities(ctx context.Context, entityID string, limit int) ([]Activity, error)
}

// MetricsLog is the sink for per-tick telemetry.
type MetricsLog interface {
	AppendMetric(ctx context.Context, m Metric) error
	RecentMetrics(ctx context.Context, entityID string, limit int) ([]Metric, error)
}
