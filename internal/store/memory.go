package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/talgya/health-grid/internal/entity"
)

// Memory is an in-memory Store for tests and ephemeral runs. Load and
// Save deep-copy records, so callers get the same isolation the SQLite
// store provides: mutating a loaded entity changes nothing until it is
// saved back.
type Memory struct {
	mu         sync.RWMutex
	entities   map[string]*entity.Entity
	activities []Activity
	metrics    []Metric
	nextID     int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entities: make(map[string]*entity.Entity)}
}

func cloneEntity(e *entity.Entity) (*entity.Entity, error) {
	out := &entity.Entity{
		ID:   e.ID,
		Name: e.Name,
		Type: e.Type,
		Zone: e.Zone,
	}

	profileJSON, err := json.Marshal(e.Profile)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(profileJSON, &out.Profile); err != nil {
		return nil, err
	}

	stateJSON, err := entity.MarshalState(e.State)
	if err != nil {
		return nil, err
	}
	out.State, err = entity.UnmarshalState(stateJSON)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Load returns a deep copy of the entity with the given ID.
func (m *Memory) Load(ctx context.Context, id string) (*entity.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntity(e)
}

// Save stores a deep copy of the entity, replacing any previous record.
func (m *Memory) Save(ctx context.Context, e *entity.Entity) error {
	clone, err := cloneEntity(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = clone
	return nil
}

func (m *Memory) selectEntities(match func(*entity.Entity) bool) ([]*entity.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []*entity.Entity
	for _, id := range ids {
		e := m.entities[id]
		if !match(e) {
			continue
		}
		clone, err := cloneEntity(e)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

// FindByZoneAndType returns entities of one type in one zone.
func (m *Memory) FindByZoneAndType(ctx context.Context, zone string, t entity.Type) ([]*entity.Entity, error) {
	return m.selectEntities(func(e *entity.Entity) bool {
		return e.Zone == zone && e.Type == t
	})
}

// FindByType returns every entity of one type.
func (m *Memory) FindByType(ctx context.Context, t entity.Type) ([]*entity.Entity, error) {
	return m.selectEntities(func(e *entity.Entity) bool { return e.Type == t })
}

// All returns every entity record.
func (m *Memory) All(ctx context.Context) ([]*entity.Entity, error) {
	return m.selectEntities(func(*entity.Entity) bool { return true })
}

// AppendActivity records one activity row.
func (m *Memory) AppendActivity(ctx context.Context, a Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.activities = append(m.activities, a)
	return nil
}

// RecentActivities returns the newest activities, newest first.
func (m *Memory) RecentActivities(ctx context.Context, entityID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Activity
	for i := len(m.activities) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.activities[i]
		if entityID != "" && a.EntityID != entityID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// AppendMetric records one metric row.
func (m *Memory) AppendMetric(ctx context.Context, rec Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.metrics = append(m.metrics, rec)
	return nil
}

// RecentMetrics returns the newest metrics for one entity, newest first.
func (m *Memory) RecentMetrics(ctx context.Context, entityID string, limit int) ([]Metric, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Metric
	for i := len(m.metrics) - 1; i >= 0 && len(out) < limit; i-- {
		if m.metrics[i].EntityID != entityID {
			continue
		}
		out = append(out, m.metrics[i])
	}
	return out, nil
}
