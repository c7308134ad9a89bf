// Package storage is the Postgres implementation of the Store boundaries the
// domain packages define. All SQL lives here; the domain packages see only
// model values and apperr errors.
package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"barberbook/internal/apperr"
	"barberbook/internal/model"
	"barberbook/internal/outbox"
	"barberbook/libs/db"
)

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func New(pool *db.Pool) *Store {
	return &Store{pool: pool, outbox: outbox.NewRepository(pool)}
}

func notFound(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(msg)
	}
	return err
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

func (s *Store) CreateUser(ctx context.Context, u model.User, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone_number, is_active, is_barber, bio, shop_name, shop_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, u.ID, u.Email, passwordHash, u.FullName, u.PhoneNumber, u.IsActive, u.IsBarber, u.Bio, u.ShopName, u.ShopAddress)
	if pgCode(err) == codeUniqueViolation {
		return apperr.Conflict("email already registered")
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, string, error) {
	var u model.User
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, phone_number, is_active, is_barber, bio, shop_name, shop_address, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &hash, &u.FullName, &u.PhoneNumber, &u.IsActive, &u.IsBarber, &u.Bio, &u.ShopName, &u.ShopAddress, &u.CreatedAt)
	if err != nil {
		return model.User{}, "", notFound(err, "user not found")
	}
	return u, hash, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, phone_number, is_active, is_barber, bio, shop_name, shop_address, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.FullName, &u.PhoneNumber, &u.IsActive, &u.IsBarber, &u.Bio, &u.ShopName, &u.ShopAddress, &u.CreatedAt)
	if err != nil {
		return model.User{}, notFound(err, "user not found")
	}
	return u, nil
}

func (s *Store) GetBarber(ctx context.Context, id string) (model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return model.User{}, apperr.NotFound("barber not found")
		}
		return model.User{}, err
	}
	if !u.IsBarber {
		return model.User{}, apperr.NotFound("barber not found")
	}
	return u, nil
}

func (s *Store) ListBarbers(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, full_name, phone_number, is_active, is_barber, bio, shop_name, shop_address, created_at
		FROM users
		WHERE is_barber AND is_active
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PhoneNumber, &u.IsActive, &u.IsBarber, &u.Bio, &u.ShopName, &u.ShopAddress, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) UpdateBarberProfile(ctx context.Context, id, bio, shopName, shopAddress string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		UPDATE users
		SET bio = $2, shop_name = $3, shop_address = $4
		WHERE id = $1 AND is_barber
		RETURNING id, email, full_name, phone_number, is_active, is_barber, bio, shop_name, shop_address, created_at
	`, id, bio, shopName, shopAddress).Scan(&u.ID, &u.Email, &u.FullName, &u.PhoneNumber, &u.IsActive, &u.IsBarber, &u.Bio, &u.ShopName, &u.ShopAddress, &u.CreatedAt)
	if err != nil {
		return model.User{}, notFound(err, "barber not found")
	}
	return u, nil
}
