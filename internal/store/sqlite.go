package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/health-grid/internal/entity"
)

// DB is the SQLite-backed store. Entity profile and state are kept as
// JSON document columns; the relational shape only carries what queries
// filter on.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		zone TEXT NOT NULL DEFAULT '',
		profile_json TEXT NOT NULL,
		state_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		entity_name TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		zone TEXT NOT NULL DEFAULT '',
		data_json TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_zone_type ON entities(zone, entity_type);
	CREATE INDEX IF NOT EXISTS idx_activities_entity ON activities(entity_id, id);
	CREATE INDEX IF NOT EXISTS idx_metrics_entity ON metrics(entity_id, id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type entityRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	EntityType  string `db:"entity_type"`
	Zone        string `db:"zone"`
	ProfileJSON string `db:"profile_json"`
	StateJSON   string `db:"state_json"`
}

func (r entityRow) toEntity() (*entity.Entity, error) {
	var profile entity.Profile
	if err := json.Unmarshal([]byte(r.ProfileJSON), &profile); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", r.ID, err)
	}
	state, err := entity.UnmarshalState([]byte(r.StateJSON))
	if err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", r.ID, err)
	}
	return &entity.Entity{
		ID:      r.ID,
		Name:    r.Name,
		Type:    entity.Type(r.EntityType),
		Zone:    r.Zone,
		Profile: profile,
		State:   state,
	}, nil
}

// Load returns the entity with the given ID.
func (db *DB) Load(ctx context.Context, id string) (*entity.Entity, error) {
	var row entityRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM entities WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load entity %s: %w", id, err)
	}
	return row.toEntity()
}

// Save writes the full entity record (insert or replace).
func (db *DB) Save(ctx context.Context, e *entity.Entity) error {
	profileJSON, err := json.Marshal(e.Profile)
	if err != nil {
		return fmt.Errorf("encode profile for %s: %w", e.ID, err)
	}
	stateJSON, err := entity.MarshalState(e.State)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", e.ID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO entities (id, name, entity_type, zone, profile_json, state_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, string(e.Type), e.Zone, string(profileJSON), string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("save entity %s: %w", e.ID, err)
	}
	return nil
}

func (db *DB) selectEntities(ctx context.Context, query string, args ...any) ([]*entity.Entity, error) {
	var rows []entityRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*entity.Entity, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FindByZoneAndType returns entities of one type in one zone.
func (db *DB) FindByZoneAndType(ctx context.Context, zone string, t entity.Type) ([]*entity.Entity, error) {
	return db.selectEntities(ctx,
		"SELECT * FROM entities WHERE zone = ? AND entity_type = ? ORDER BY id", zone, string(t))
}

// FindByType returns every entity of one type.
func (db *DB) FindByType(ctx context.Context, t entity.Type) ([]*entity.Entity, error) {
	return db.selectEntities(ctx,
		"SELECT * FROM entities WHERE entity_type = ? ORDER BY id", string(t))
}

// All returns every entity record.
func (db *DB) All(ctx context.Context) ([]*entity.Entity, error) {
	return db.selectEntities(ctx, "SELECT * FROM entities ORDER BY id")
}

// AppendActivity inserts one activity row.
func (db *DB) AppendActivity(ctx context.Context, a Activity) error {
	metaJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO activities (entity_id, entity_name, agent_type, activity_type, message, metadata_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.EntityID, a.EntityName, a.AgentType, a.ActivityType, a.Message, string(metaJSON), a.CreatedAt,
	)
	return err
}

// RecentActivities returns the newest activities, newest first. An
// empty entityID returns activities across all entities.
func (db *DB) RecentActivities(ctx context.Context, entityID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	type activityRow struct {
		Activity
		MetadataJSON string `db:"metadata_json"`
	}

	query := "SELECT * FROM activities ORDER BY id DESC LIMIT ?"
	args := []any{limit}
	if entityID != "" {
		query = "SELECT * FROM activities WHERE entity_id = ? ORDER BY id DESC LIMIT ?"
		args = []any{entityID, limit}
	}

	var rows []activityRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]Activity, 0, len(rows))
	for _, r := range rows {
		a := r.Activity
		if r.MetadataJSON != "" {
			_ = json.Unmarshal([]byte(r.MetadataJSON), &a.Metadata)
		}
		out = append(out, a)
	}
	return out, nil
}

// AppendMetric inserts one metric row.
func (db *DB) AppendMetric(ctx context.Context, m Metric) error {
	dataJSON, err := json.Marshal(m.Data)
	if err != nil {
		return fmt.Errorf("encode metric data: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO metrics (entity_id, entity_type, zone, data_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.EntityID, m.EntityType, m.Zone, string(dataJSON), m.CreatedAt,
	)
	return err
}

// RecentMetrics returns the newest metrics for one entity, newest first.
func (db *DB) RecentMetrics(ctx context.Context, entityID string, limit int) ([]Metric, error) {
	if limit <= 0 {
		limit = 50
	}

	type metricRow struct {
		Metric
		DataJSON string `db:"data_json"`
	}

	var rows []metricRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM metrics WHERE entity_id = ? ORDER BY id DESC LIMIT ?", entityID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Metric, 0, len(rows))
	for _, r := range rows {
		m := r.Metric
		if r.DataJSON != "" {
			_ = json.Unmarshal([]byte(r.DataJSON), &m.Data)
		}
		out = append(out, m)
	}
	return out, nil
}
