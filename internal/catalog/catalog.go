// Package catalog manages a barber's offered services and weekly schedule.
// It feeds the availability computation but carries no booking logic itself.
package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"barberbook/internal/apperr"
	"barberbook/internal/model"
)

// Store is the persistence boundary for barbers, services and schedules.
// Lookup methods report missing rows as apperr not-found values.
type Store interface {
	GetBarber(ctx context.Context, id string) (model.User, error)
	ListBarbers(ctx context.Context, limit int) ([]model.User, error)
	UpdateBarberProfile(ctx context.Context, id, bio, shopName, shopAddress string) (model.User, error)

	InsertService(ctx context.Context, svc model.Service) error
	ListServices(ctx context.Context, barberID string) ([]model.Service, error)
	GetService(ctx context.Context, barberID, serviceID string) (model.Service, error)
	DeleteService(ctx context.Context, barberID, serviceID string) error
	CountConfirmedBookingsForService(ctx context.Context, serviceID string) (int, error)

	// ReplaceWorkingHours deletes the barber's whole week and inserts the
	// given set in one transaction, so concurrent readers see either the old
	// schedule or the new one, never a half-applied mix.
	ReplaceWorkingHours(ctx context.Context, barberID string, entries []model.WorkingHoursEntry) error
	ListWorkingHours(ctx context.Context, barberID string) ([]model.WorkingHoursEntry, error)
}

type Catalog struct {
	store Store
}

func New(store Store) *Catalog {
	return &Catalog{store: store}
}

type ServiceSpec struct {
	Name         string
	Description  string
	DurationMins int
	Price        float64
}

func (c *Catalog) AddService(ctx context.Context, barberID string, spec ServiceSpec) (model.Service, error) {
	if _, err := c.requireBarber(ctx, barberID); err != nil {
		return model.Service{}, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		return model.Service{}, apperr.Validation("service name is required")
	}
	if spec.DurationMins <= 0 {
		return model.Service{}, apperr.Validation("service duration must be a positive number of minutes")
	}
	if spec.Price < 0 {
		return model.Service{}, apperr.Validation("service price must not be negative")
	}

	svc := model.Service{
		ID:           uuid.NewString(),
		BarberID:     barberID,
		Name:         strings.TrimSpace(spec.Name),
		Description:  strings.TrimSpace(spec.Description),
		DurationMins: spec.DurationMins,
		Price:        spec.Price,
	}
	if err := c.store.InsertService(ctx, svc); err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (c *Catalog) ListServices(ctx context.Context, barberID string) ([]model.Service, error) {
	if _, err := c.requireBarber(ctx, barberID); err != nil {
		return nil, err
	}
	return c.store.ListServices(ctx, barberID)
}

// DeleteService refuses to remove a service that confirmed bookings still
// reference; those bookings would otherwise dangle.
func (c *Catalog) DeleteService(ctx context.Context, barberID, serviceID string) error {
	if _, err := c.store.GetService(ctx, barberID, serviceID); err != nil {
		return err
	}
	n, err := c.store.CountConfirmedBookingsForService(ctx, serviceID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("service has confirmed bookings and cannot be deleted")
	}
	return c.store.DeleteService(ctx, barberID, serviceID)
}

// ReplaceWorkingHours swaps the barber's full weekly schedule. The input is
// the complete new week: at most one entry per weekday, partial patches are
// not supported.
func (c *Catalog) ReplaceWorkingHours(ctx context.Context, barberID string, entries []model.WorkingHoursEntry) ([]model.WorkingHoursEntry, error) {
	if _, err := c.requireBarber(ctx, barberID); err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	for _, e := range entries {
		if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
			return nil, apperr.Validationf("day_of_week %d is out of range 0..6", e.DayOfWeek)
		}
		if seen[e.DayOfWeek] {
			return nil, apperr.Validationf("duplicate day_of_week %d", e.DayOfWeek)
		}
		seen[e.DayOfWeek] = true
		if e.StartMinute < 0 || e.EndMinute > 24*60 {
			return nil, apperr.Validation("working hours must fall within the day")
		}
		if e.IsWorking && e.StartMinute >= e.EndMinute {
			return nil, apperr.Validation("start_time must be before end_time on working days")
		}
	}

	normalized := make([]model.WorkingHoursEntry, len(entries))
	for i, e := range entries {
		e.BarberID = barberID
		normalized[i] = e
	}
	if err := c.store.ReplaceWorkingHours(ctx, barberID, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (c *Catalog) ListWorkingHours(ctx context.Context, barberID string) ([]model.WorkingHoursEntry, error) {
	if _, err := c.requireBarber(ctx, barberID); err != nil {
		return nil, err
	}
	return c.store.ListWorkingHours(ctx, barberID)
}

func (c *Catalog) UpdateProfile(ctx context.Context, barberID, bio, shopName, shopAddress string) (model.User, error) {
	if _, err := c.requireBarber(ctx, barberID); err != nil {
		return model.User{}, err
	}
	return c.store.UpdateBarberProfile(ctx, barberID, bio, shopName, shopAddress)
}

func (c *Catalog) GetBarber(ctx context.Context, barberID string) (model.User, error) {
	return c.requireBarber(ctx, barberID)
}

func (c *Catalog) ListBarbers(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return c.store.ListBarbers(ctx, limit)
}

func (c *Catalog) requireBarber(ctx context.Context, barberID string) (model.User, error) {
	u, err := c.store.GetBarber(ctx, barberID)
	if err != nil {
		return model.User{}, err
	}
	if !u.IsBarber {
		return model.User{}, apperr.NotFound("barber not found")
	}
	return u, nil
}
