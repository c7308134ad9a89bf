package storage

import "context"

// Migrate creates the schema on startup. Statements are idempotent so a
// restart against an existing database is a no-op.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name     TEXT NOT NULL,
			phone_number  TEXT NOT NULL DEFAULT '',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			is_barber     BOOLEAN NOT NULL DEFAULT FALSE,
			bio           TEXT NOT NULL DEFAULT '',
			shop_name     TEXT NOT NULL DEFAULT '',
			shop_address  TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS services (
			id            TEXT PRIMARY KEY,
			barber_id     TEXT NOT NULL REFERENCES users(id),
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
			price         NUMERIC(10,2) NOT NULL CHECK (price >= 0),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_services_barber ON services (barber_id)`,
		`CREATE TABLE IF NOT EXISTS working_hours (
			barber_id    TEXT NOT NULL REFERENCES users(id),
			day_of_week  INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
			start_minute INTEGER NOT NULL,
			end_minute   INTEGER NOT NULL,
			is_working   BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (barber_id, day_of_week)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id             TEXT PRIMARY KEY,
			barber_id      TEXT NOT NULL REFERENCES users(id),
			service_id     TEXT NOT NULL REFERENCES services(id),
			customer_name  TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_phone TEXT NOT NULL DEFAULT '',
			start_time     TIMESTAMPTZ NOT NULL,
			end_time       TIMESTAMPTZ NOT NULL,
			status         TEXT NOT NULL DEFAULT 'confirmed',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (end_time > start_time),
			CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
				barber_id WITH =,
				tstzrange(start_time, end_time) WITH &&
			) WHERE (status = 'confirmed')
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_barber_start ON bookings (barber_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_customer_email ON bookings (lower(customer_email))`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
			id             BIGSERIAL PRIMARY KEY,
			event_id       TEXT NOT NULL DEFAULT gen_random_uuid()::text,
			aggregate_type TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			event_type     TEXT NOT NULL,
			payload        JSONB NOT NULL,
			traceparent    TEXT NOT NULL DEFAULT '',
			tracestate     TEXT NOT NULL DEFAULT '',
			published_at   TIMESTAMPTZ,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox_events (id) WHERE published_at IS NULL`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
