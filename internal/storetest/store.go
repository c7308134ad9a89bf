// Package storetest provides an in-memory Store used by ledger, catalog and
// handler tests. InTx is serialized with a mutex, and InsertBooking rejects
// overlapping confirmed bookings the way the database exclusion constraint
// does, so concurrency tests observe the same outcomes as the real store.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"barberbook/internal/apperr"
	"barberbook/internal/availability"
	"barberbook/internal/booking"
	"barberbook/internal/model"
	"barberbook/internal/outbox"
)

type Store struct {
	mu           sync.Mutex
	Users        map[string]model.User
	Passwords    map[string]string // user ID -> bcrypt hash
	Services     map[string]model.Service
	WorkingHours map[string][]model.WorkingHoursEntry // barber ID -> entries
	Bookings     map[string]model.Booking
	Events       []outbox.Event
}

func New() *Store {
	return &Store{
		Users:        make(map[string]model.User),
		Passwords:    make(map[string]string),
		Services:     make(map[string]model.Service),
		WorkingHours: make(map[string][]model.WorkingHoursEntry),
		Bookings:     make(map[string]model.Booking),
	}
}

func (s *Store) CreateUser(ctx context.Context, u model.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	s.Users[u.ID] = u
	s.Passwords[u.ID] = passwordHash
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if strings.EqualFold(u.Email, email) {
			return u, s.Passwords[u.ID], nil
		}
	}
	return model.User{}, "", apperr.NotFound("user not found")
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return model.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *Store) GetBarber(ctx context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok || !u.IsBarber {
		return model.User{}, apperr.NotFound("barber not found")
	}
	return u, nil
}

func (s *Store) ListBarbers(ctx context.Context, limit int) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.Users {
		if u.IsBarber {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateBarberProfile(ctx context.Context, id, bio, shopName, shopAddress string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok || !u.IsBarber {
		return model.User{}, apperr.NotFound("barber not found")
	}
	u.Bio, u.ShopName, u.ShopAddress = bio, shopName, shopAddress
	s.Users[id] = u
	return u, nil
}

func (s *Store) InsertService(ctx context.Context, svc model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Services[svc.ID] = svc
	return nil
}

func (s *Store) ListServices(ctx context.Context, barberID string) ([]model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Service
	for _, svc := range s.Services {
		if svc.BarberID == barberID {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetService(ctx context.Context, barberID, serviceID string) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.Services[serviceID]
	if !ok || svc.BarberID != barberID {
		return model.Service{}, apperr.NotFound("service not found")
	}
	return svc, nil
}

func (s *Store) DeleteService(ctx context.Context, barberID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.Services[serviceID]
	if !ok || svc.BarberID != barberID {
		return apperr.NotFound("service not found")
	}
	delete(s.Services, serviceID)
	return nil
}

func (s *Store) CountConfirmedBookingsForService(ctx context.Context, serviceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.Bookings {
		if b.ServiceID == serviceID && b.Status == model.BookingConfirmed {
			n++
		}
	}
	return n, nil
}

func (s *Store) ReplaceWorkingHours(ctx context.Context, barberID string, entries []model.WorkingHoursEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]model.WorkingHoursEntry, len(entries))
	copy(cp, entries)
	s.WorkingHours[barberID] = cp
	return nil
}

func (s *Store) ListWorkingHours(ctx context.Context, barberID string) ([]model.WorkingHoursEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.WorkingHours[barberID]
	out := make([]model.WorkingHoursEntry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (s *Store) GetWorkingHours(ctx context.Context, barberID string, dayOfWeek int) (*model.WorkingHoursEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.WorkingHours[barberID] {
		if e.DayOfWeek == dayOfWeek {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListConfirmedBookings(ctx context.Context, barberID string, from, to time.Time) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmedOverlappingLocked(barberID, from, to), nil
}

func (s *Store) ListBookingsByBarber(ctx context.Context, barberID string, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.Bookings {
		if b.BarberID == barberID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListBookingsByCustomer(ctx context.Context, email string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.Bookings {
		if strings.EqualFold(b.CustomerEmail, email) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shadow := &tx{
		store:    s,
		bookings: make(map[string]model.Booking, len(s.Bookings)),
	}
	for id, b := range s.Bookings {
		shadow.bookings[id] = b
	}
	if err := fn(shadow); err != nil {
		return err
	}
	s.Bookings = shadow.bookings
	s.Events = append(s.Events, shadow.events...)
	return nil
}

func (s *Store) confirmedOverlappingLocked(barberID string, from, to time.Time) []model.Booking {
	var out []model.Booking
	for _, b := range s.Bookings {
		if b.BarberID == barberID && b.Status == model.BookingConfirmed &&
			availability.Overlaps(b.StartTime, b.EndTime, from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

type tx struct {
	store    *Store
	bookings map[string]model.Booking
	events   []outbox.Event
}

func (t *tx) ConfirmedOverlapping(ctx context.Context, barberID string, start, end time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range t.bookings {
		if b.BarberID == barberID && b.Status == model.BookingConfirmed &&
			availability.Overlaps(b.StartTime, b.EndTime, start, end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (t *tx) InsertBooking(ctx context.Context, b model.Booking) error {
	// Mirrors the database exclusion constraint on confirmed rows.
	if b.Status == model.BookingConfirmed {
		for _, other := range t.bookings {
			if other.BarberID == b.BarberID && other.Status == model.BookingConfirmed &&
				availability.Overlaps(other.StartTime, other.EndTime, b.StartTime, b.EndTime) {
				return apperr.Conflict("time slot already booked")
			}
		}
	}
	t.bookings[b.ID] = b
	return nil
}

func (t *tx) BookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return model.Booking{}, apperr.NotFound("booking not found")
	}
	return b, nil
}

func (t *tx) UpdateBookingStatus(ctx context.Context, id, status string) (model.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return model.Booking{}, apperr.NotFound("booking not found")
	}
	b.Status = status
	t.bookings[id] = b
	return b, nil
}

func (t *tx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}
