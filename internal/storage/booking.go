package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"barberbook/internal/apperr"
	"barberbook/internal/booking"
	"barberbook/internal/model"
	"barberbook/internal/outbox"
)

const bookingColumns = `id, barber_id, service_id, customer_name, customer_email, customer_phone,
	start_time, end_time, status, notes, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.BarberID, &b.ServiceID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.StartTime, &b.EndTime, &b.Status, &b.Notes, &b.CreatedAt)
	return b, err
}

func (s *Store) ListConfirmedBookings(ctx context.Context, barberID string, from, to time.Time) ([]model.Booking, error) {
	return s.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
			AND status = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, barberID, from, to)
}

func (s *Store) ListBookingsByBarber(ctx context.Context, barberID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, barberID, limit)
}

func (s *Store) ListBookingsByCustomer(ctx context.Context, email string) ([]model.Booking, error) {
	return s.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE lower(customer_email) = lower($1)
		ORDER BY start_time DESC
	`, email)
}

func (s *Store) queryBookings(ctx context.Context, sql string, args ...any) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InTx runs fn in a single transaction. The bookings table carries an
// exclusion constraint over (barber_id, tsrange(start_time, end_time)) for
// confirmed rows, so of two racing overlapping inserts exactly one commits;
// the other fails here and surfaces as a conflict.
func (s *Store) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx, outbox: s.outbox}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *txStore) ConfirmedOverlapping(ctx context.Context, barberID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
			AND status = 'confirmed'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
		FOR UPDATE
	`, barberID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (t *txStore) InsertBooking(ctx context.Context, b model.Booking) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bookings
			(id, barber_id, service_id, customer_name, customer_email, customer_phone, start_time, end_time, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, b.ID, b.BarberID, b.ServiceID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.StartTime, b.EndTime, b.Status, b.Notes, b.CreatedAt)
	if pgCode(err) == codeExclusionViolation {
		return apperr.Conflict("time slot already booked")
	}
	return err
}

func (t *txStore) BookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return model.Booking{}, notFound(err, "booking not found")
	}
	return b, nil
}

func (t *txStore) UpdateBookingStatus(ctx context.Context, id, status string) (model.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE id = $1
		RETURNING `+bookingColumns+`
	`, id, status))
	if err != nil {
		return model.Booking{}, notFound(err, "booking not found")
	}
	return b, nil
}

func (t *txStore) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
