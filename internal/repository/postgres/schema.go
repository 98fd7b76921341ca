package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the tables used by the PostgreSQL repositories.
const Schema = `
CREATE TABLE IF NOT EXISTS ride_requests (
	id                  TEXT PRIMARY KEY,
	rider_id            TEXT NOT NULL,
	status              TEXT NOT NULL,
	version             BIGINT NOT NULL DEFAULT 0,
	dispatched_drivers  TEXT[] NOT NULL DEFAULT '{}',
	declined_drivers    TEXT[] NOT NULL DEFAULT '{}',
	location_sequence   BIGINT NOT NULL DEFAULT 0,
	pickup_lat          DOUBLE PRECISION NOT NULL,
	pickup_lng          DOUBLE PRECISION NOT NULL,
	pickup_address      TEXT NOT NULL DEFAULT '',
	dropoff_lat         DOUBLE PRECISION NOT NULL,
	dropoff_lng         DOUBLE PRECISION NOT NULL,
	dropoff_address     TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL,
	passenger_count     INTEGER NOT NULL DEFAULT 1,
	estimated_fare      DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency            TEXT NOT NULL DEFAULT 'INR',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	location_updated_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS ride_request_audit_log (
	id               TEXT PRIMARY KEY,
	ride_request_id  TEXT NOT NULL REFERENCES ride_requests (id),
	kind             TEXT NOT NULL,
	actor_id         TEXT NOT NULL,
	idempotency_key  TEXT NOT NULL UNIQUE,
	previous_version BIGINT NOT NULL,
	version          BIGINT NOT NULL,
	reason           TEXT NOT NULL DEFAULT '',
	lat              DOUBLE PRECISION,
	lng              DOUBLE PRECISION,
	address          TEXT NOT NULL DEFAULT '',
	sequence         BIGINT NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL,
	UNIQUE (ride_request_id, version)
);

CREATE TABLE IF NOT EXISTS pricing_config (
	id               SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	base_fares       JSONB NOT NULL DEFAULT '{}',
	surge_multiplier DOUBLE PRECISION,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate applies Schema. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
