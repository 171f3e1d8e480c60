package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS customer_events (
		event_id      TEXT PRIMARY KEY,
		customer_id   TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		product_id    TEXT NOT NULL DEFAULT '',
		event_time    TIMESTAMPTZ NOT NULL,
		amount        DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
		quantity      INTEGER NOT NULL CHECK (quantity >= 1),
		tier_at_event TEXT NOT NULL DEFAULT 'New',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS customer_events_customer_type_time_idx
		ON customer_events (customer_id, event_type, event_time)`,
	`CREATE TABLE IF NOT EXISTS feature_vectors (
		customer_id TEXT PRIMARY KEY,
		l           INTEGER NOT NULL DEFAULT 0,
		r           INTEGER NOT NULL DEFAULT 0,
		f           INTEGER NOT NULL DEFAULT 0,
		m           DOUBLE PRECISION NOT NULL DEFAULT 0,
		s           DOUBLE PRECISION NOT NULL DEFAULT 0.2,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tier_assignments (
		customer_id TEXT PRIMARY KEY,
		tier        TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tier_transitions (
		seq             BIGSERIAL PRIMARY KEY,
		id              TEXT NOT NULL UNIQUE,
		customer_id     TEXT NOT NULL,
		old_tier        TEXT NOT NULL,
		new_tier        TEXT NOT NULL,
		confidence      DOUBLE PRECISION NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		event_count     INTEGER NOT NULL,
		monetary_sum    DOUBLE PRECISION NOT NULL,
		reason          TEXT NOT NULL DEFAULT '',
		transition_time TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tier_transitions_customer_time_idx
		ON tier_transitions (customer_id, transition_time DESC, seq DESC)`,
	`CREATE TABLE IF NOT EXISTS customer_profiles (
		customer_id     TEXT PRIMARY KEY,
		tier            TEXT NOT NULL,
		risk_flag       TEXT NOT NULL,
		stability_score DOUBLE PRECISION NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	return r.InTx(ctx, func(ctx context.Context) error {
		for i, stmt := range schema {
			if _, err := r.runner(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", i, err)
			}
		}
		return nil
	})
}
