package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"venue-pulse/internal/forecast/application"
)

const defaultConfigTable = "venue_config_revisions"

// DBTX is the subset of *sql.DB and *sql.Tx the repository uses.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConfigRepository stores venue config as append-only JSON revisions.
type ConfigRepository struct {
	db         DBTX
	table      string
	locationID string
	fallback   application.VenueConfig
}

// ConfigOption configures the repository.
type ConfigOption func(*ConfigRepository)

// WithConfigTable overrides the default table name.
func WithConfigTable(table string) ConfigOption {
	return func(repo *ConfigRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithFallbackConfig sets the config returned before any revision is saved.
func WithFallbackConfig(cfg application.VenueConfig) ConfigOption {
	return func(repo *ConfigRepository) {
		repo.fallback = cfg
	}
}

// NewConfigRepository constructs a repository scoped to one location.
func NewConfigRepository(db DBTX, locationID string, opts ...ConfigOption) *ConfigRepository {
	repo := &ConfigRepository{
		db:         db,
		table:      defaultConfigTable,
		locationID: locationID,
		fallback:   application.DefaultVenueConfig(),
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the revisions table when missing.
func (r *ConfigRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("config repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	location_id TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, r.table))
	return err
}

// Load returns the latest revision, or the fallback config when none exists.
func (r *ConfigRepository) Load(ctx context.Context) (application.VenueConfig, error) {
	if r == nil || r.db == nil {
		return application.VenueConfig{}, errors.New("config repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT payload
FROM %s
WHERE location_id = $1
ORDER BY id DESC
LIMIT 1`, r.table)

	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, r.locationID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.fallback, nil
		}
		return application.VenueConfig{}, err
	}
	var cfg application.VenueConfig
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return application.VenueConfig{}, fmt.Errorf("config repo: decode revision: %w", err)
	}
	return application.NormalizeVenueConfig(cfg)
}

// Save appends a new revision.
func (r *ConfigRepository) Save(ctx context.Context, cfg application.VenueConfig) error {
	if r == nil || r.db == nil {
		return errors.New("config repo: nil db")
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (location_id, payload)
VALUES ($1, $2)`, r.table)
	_, err = r.db.ExecContext(ctx, query, r.locationID, payload)
	return err
}
