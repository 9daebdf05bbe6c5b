package database

import (
	"context"
	"database/sql"
)

// schema is idempotent DDL applied at startup. Production deployments run the
// same statements through migration tooling; this keeps dev and test
// databases bootstrapped.
const schema = `
CREATE TABLE IF NOT EXISTS packages (
    id                          BIGSERIAL PRIMARY KEY,
    name                        TEXT NOT NULL,
    description                 TEXT NOT NULL DEFAULT '',
    base_daily_price            BIGINT NOT NULL CHECK (base_daily_price > 0),
    max_concurrent_reservations INT NOT NULL CHECK (max_concurrent_reservations >= 1),
    active                      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bookings (
    id           BIGSERIAL PRIMARY KEY,
    code         TEXT NOT NULL UNIQUE,
    user_id      BIGINT NOT NULL,
    package_id   BIGINT NOT NULL REFERENCES packages(id),
    pickup_date  DATE NOT NULL,
    return_date  DATE NOT NULL CHECK (return_date >= pickup_date),
    pickup_time  TEXT NOT NULL DEFAULT '',
    return_time  TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'pending',
    total_price  BIGINT NOT NULL DEFAULT 0,
    location     TEXT,
    notes        TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    cancelled_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings (status);

CREATE TABLE IF NOT EXISTS availability_ledger (
    id           BIGSERIAL PRIMARY KEY,
    package_id   BIGINT NOT NULL REFERENCES packages(id),
    booking_id   BIGINT,
    reserve_date DATE NOT NULL,
    status       TEXT NOT NULL DEFAULT 'reserved',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_pkg_date ON availability_ledger (package_id, reserve_date, status);
CREATE INDEX IF NOT EXISTS idx_ledger_booking ON availability_ledger (booking_id);
`

// EnsureSchema creates the tables the booking core owns if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
