package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"barberbook/internal/apperr"
	"barberbook/internal/model"
)

func (s *Store) InsertService(ctx context.Context, svc model.Service) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (id, barber_id, name, description, duration_minutes, price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, svc.ID, svc.BarberID, svc.Name, svc.Description, svc.DurationMins, svc.Price)
	return err
}

func (s *Store) ListServices(ctx context.Context, barberID string) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, barber_id, name, description, duration_minutes, price, created_at
		FROM services
		WHERE barber_id = $1
		ORDER BY created_at DESC
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.BarberID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) GetService(ctx context.Context, barberID, serviceID string) (model.Service, error) {
	var svc model.Service
	err := s.pool.QueryRow(ctx, `
		SELECT id, barber_id, name, description, duration_minutes, price, created_at
		FROM services
		WHERE barber_id = $1 AND id = $2
	`, barberID, serviceID).Scan(&svc.ID, &svc.BarberID, &svc.Name, &svc.Description, &svc.DurationMins, &svc.Price, &svc.CreatedAt)
	if err != nil {
		return model.Service{}, notFound(err, "service not found")
	}
	return svc, nil
}

func (s *Store) DeleteService(ctx context.Context, barberID, serviceID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM services
		WHERE barber_id = $1 AND id = $2
	`, barberID, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("service not found")
	}
	return nil
}

func (s *Store) CountConfirmedBookingsForService(ctx context.Context, serviceID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE service_id = $1 AND status = 'confirmed'
	`, serviceID).Scan(&n)
	return n, err
}

func (s *Store) ReplaceWorkingHours(ctx context.Context, barberID string, entries []model.WorkingHoursEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM working_hours WHERE barber_id = $1
	`, barberID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx, `
			INSERT INTO working_hours (barber_id, day_of_week, start_minute, end_minute, is_working)
			VALUES ($1, $2, $3, $4, $5)
		`, barberID, e.DayOfWeek, e.StartMinute, e.EndMinute, e.IsWorking); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListWorkingHours(ctx context.Context, barberID string) ([]model.WorkingHoursEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT barber_id, day_of_week, start_minute, end_minute, is_working
		FROM working_hours
		WHERE barber_id = $1
		ORDER BY day_of_week ASC
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkingHoursEntry
	for rows.Next() {
		var e model.WorkingHoursEntry
		if err := rows.Scan(&e.BarberID, &e.DayOfWeek, &e.StartMinute, &e.EndMinute, &e.IsWorking); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) GetWorkingHours(ctx context.Context, barberID string, dayOfWeek int) (*model.WorkingHoursEntry, error) {
	var e model.WorkingHoursEntry
	err := s.pool.QueryRow(ctx, `
		SELECT barber_id, day_of_week, start_minute, end_minute, is_working
		FROM working_hours
		WHERE barber_id = $1 AND day_of_week = $2
	`, barberID, dayOfWeek).Scan(&e.BarberID, &e.DayOfWeek, &e.StartMinute, &e.EndMinute, &e.IsWorking)
	if err != nil {
		// No entry means the barber never set hours for this weekday.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
