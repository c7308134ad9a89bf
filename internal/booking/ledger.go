// Package booking owns the one hard invariant in the system: for a given
// barber, no two confirmed bookings may overlap in time. Reads used to render
// slot lists are advisory; the authoritative overlap check runs inside the
// Store transaction that writes the booking.
package booking

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"barberbook/internal/apperr"
	"barberbook/internal/availability"
	"barberbook/internal/model"
	"barberbook/internal/outbox"
)

// Store is the transactional persistence boundary the ledger runs against.
// Lookup methods report missing rows as apperr not-found values.
type Store interface {
	GetBarber(ctx context.Context, id string) (model.User, error)
	GetService(ctx context.Context, barberID, serviceID string) (model.Service, error)
	// GetWorkingHours returns nil (no error) when the weekday has no entry.
	GetWorkingHours(ctx context.Context, barberID string, dayOfWeek int) (*model.WorkingHoursEntry, error)
	ListConfirmedBookings(ctx context.Context, barberID string, from, to time.Time) ([]model.Booking, error)
	ListBookingsByBarber(ctx context.Context, barberID string, limit int) ([]model.Booking, error)
	ListBookingsByCustomer(ctx context.Context, email string) ([]model.Booking, error)

	// InTx runs fn inside one transaction; either every write in fn becomes
	// visible or none does. Concurrent transactions inserting overlapping
	// confirmed bookings for the same barber must not both commit — the
	// loser's insert fails with an apperr conflict value.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the transaction-scoped view of the Store.
type Tx interface {
	ConfirmedOverlapping(ctx context.Context, barberID string, start, end time.Time) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b model.Booking) error
	BookingForUpdate(ctx context.Context, id string) (model.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) (model.Booking, error)
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

type CreateRequest struct {
	BarberID      string
	ServiceID     string
	StartTime     time.Time
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
}

// Create books a slot. The end time is computed from the service duration
// here and stored; later changes to the service leave the booking untouched.
// The overlap re-check and the insert share one transaction, so a stale slot
// list can never produce a double booking: the slower of two racing requests
// gets a conflict error, not a row.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	barber, err := l.store.GetBarber(ctx, req.BarberID)
	if err != nil {
		return model.Booking{}, err
	}
	if !barber.IsBarber {
		return model.Booking{}, apperr.NotFound("barber not found")
	}

	svc, err := l.store.GetService(ctx, req.BarberID, req.ServiceID)
	if err != nil {
		return model.Booking{}, err
	}

	start := req.StartTime
	end := start.Add(time.Duration(svc.DurationMins) * time.Minute)

	if err := l.checkWithinWorkingHours(ctx, req.BarberID, start, end); err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{
		ID:            uuid.NewString(),
		BarberID:      req.BarberID,
		ServiceID:     req.ServiceID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		StartTime:     start,
		EndTime:       end,
		Status:        model.BookingConfirmed,
		Notes:         req.Notes,
		CreatedAt:     l.now().UTC(),
	}

	err = l.store.InTx(ctx, func(tx Tx) error {
		existing, err := tx.ConfirmedOverlapping(ctx, req.BarberID, start, end)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if availability.Overlaps(start, end, other.StartTime, other.EndTime) {
				return apperr.Conflict("time slot already booked")
			}
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		return l.appendBookingEvent(ctx, tx, outbox.EventBookingConfirmed, b)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// Cancel flips a booking to cancelled and frees its interval. Only the owning
// barber or the original customer may cancel. Cancelling an already-cancelled
// booking succeeds without changing anything, so client retries stay cheap.
func (l *Ledger) Cancel(ctx context.Context, bookingID string, ident model.Identity) (model.Booking, error) {
	var out model.Booking
	err := l.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if ident.UserID != b.BarberID && !strings.EqualFold(ident.Email, b.CustomerEmail) {
			return apperr.Forbidden("only the barber or the booking customer may cancel")
		}
		if b.Status == model.BookingCancelled {
			out = b
			return nil
		}
		if b.Status == model.BookingCompleted {
			return apperr.Conflict("completed booking cannot be cancelled")
		}

		updated, err := tx.UpdateBookingStatus(ctx, bookingID, model.BookingCancelled)
		if err != nil {
			return err
		}
		out = updated
		return l.appendBookingEvent(ctx, tx, outbox.EventBookingCancelled, updated)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return out, nil
}

// AvailableSlots resolves the inputs for one barber/service/date and runs the
// availability computation over them.
func (l *Ledger) AvailableSlots(ctx context.Context, barberID, serviceID string, day time.Time) (availability.AvailableSlots, error) {
	svc, err := l.store.GetService(ctx, barberID, serviceID)
	if err != nil {
		return availability.AvailableSlots{}, err
	}

	entry, err := l.store.GetWorkingHours(ctx, barberID, availability.DayOfWeek(day))
	if err != nil {
		return availability.AvailableSlots{}, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	booked, err := l.store.ListConfirmedBookings(ctx, barberID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return availability.AvailableSlots{}, err
	}

	return availability.ComputeAvailableSlots(entry, svc.DurationMins, dayStart, booked), nil
}

func (l *Ledger) ListByBarber(ctx context.Context, barberID string, limit int) ([]model.Booking, error) {
	return l.store.ListBookingsByBarber(ctx, barberID, limit)
}

func (l *Ledger) ListByCustomer(ctx context.Context, email string) ([]model.Booking, error) {
	return l.store.ListBookingsByCustomer(ctx, email)
}

func (l *Ledger) checkWithinWorkingHours(ctx context.Context, barberID string, start, end time.Time) error {
	entry, err := l.store.GetWorkingHours(ctx, barberID, availability.DayOfWeek(start))
	if err != nil {
		return err
	}
	if entry == nil || !entry.IsWorking {
		return apperr.Validation("barber does not work on the requested day")
	}

	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	workStart := midnight.Add(time.Duration(entry.StartMinute) * time.Minute)
	workEnd := midnight.Add(time.Duration(entry.EndMinute) * time.Minute)
	if start.Before(workStart) || end.After(workEnd) {
		return apperr.Validation("requested time is outside working hours")
	}
	return nil
}

func (l *Ledger) appendBookingEvent(ctx context.Context, tx Tx, eventType string, b model.Booking) error {
	payload, err := json.Marshal(map[string]any{
		"booking_id":     b.ID,
		"barber_id":      b.BarberID,
		"service_id":     b.ServiceID,
		"customer_email": b.CustomerEmail,
		"start_time":     b.StartTime.UTC().Format(time.RFC3339),
		"end_time":       b.EndTime.UTC().Format(time.RFC3339),
		"status":         b.Status,
	})
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
