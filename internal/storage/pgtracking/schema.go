package pgtracking

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// migrationLockKey serializes schema setup between track-api and track-worker
// starting against the same database.
const migrationLockKey int64 = 0x7570737472616b

type migration struct {
	version int
	stmts   []string
}

// migrations are applied in order. Never edit an applied one, append a new version.
var migrations = []migration{
	{version: 1, stmts: []string{`
CREATE TABLE IF NOT EXISTS trackings (
  id BIGSERIAL PRIMARY KEY,
  track_number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL,
  status_raw TEXT NOT NULL DEFAULT '',
  status_description TEXT NOT NULL DEFAULT '',
  flags JSONB NOT NULL DEFAULT '{}'::jsonb,
  status_at TIMESTAMPTZ NULL,
  last_checked_at TIMESTAMPTZ NULL,
  next_check_at TIMESTAMPTZ NOT NULL,
  check_fail_count INT NOT NULL DEFAULT 0,
  last_error TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_trackings_next_check_at ON trackings(next_check_at)`,
	}},
	{version: 2, stmts: []string{`
CREATE TABLE IF NOT EXISTS tracking_events (
  id BIGSERIAL PRIMARY KEY,
  tracking_id BIGINT NOT NULL REFERENCES trackings(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  status_raw TEXT NOT NULL,
  event_time TIMESTAMPTZ NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  payload JSONB NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_tracking_id_event_time ON tracking_events(tracking_id, event_time DESC)`,
		// UPS repeats the same activity on every check
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_tracking_events_dedup ON tracking_events(tracking_id, status_raw, event_time, location, message)`,
	}},
	{version: 3, stmts: []string{
		// Kafka delivers at least once, so applied message ids are recorded.
		`
CREATE TABLE IF NOT EXISTS applied_updates (
  message_id UUID PRIMARY KEY,
  tracking_id BIGINT NOT NULL REFERENCES trackings(id) ON DELETE CASCADE,
  applied_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_applied_updates_applied_at ON applied_updates(applied_at)`,
	}},
}

func (s *Storage) initSchema(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "init schema: begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return errors.Wrap(err, "init schema: lock")
	}
	if _, err := tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return errors.Wrap(err, "init schema: migrations table")
	}

	current, err := schemaVersion(ctx, tx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, q := range m.stmts {
			if _, err := tx.Exec(ctx, q); err != nil {
				return errors.Wrapf(err, "init schema: migration %d", m.version)
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			return errors.Wrapf(err, "init schema: record migration %d", m.version)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "init schema: commit")
}

func schemaVersion(ctx context.Context, q pgx.Tx) (int, error) {
	var v int
	if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, errors.Wrap(err, "init schema: read version")
	}
	return v, nil
}

// SchemaVersion reports the latest applied migration.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	return v, errors.Wrap(err, "read schema version")
}
