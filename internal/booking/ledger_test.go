package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"barberbook/internal/apperr"
	"barberbook/internal/booking"
	"barberbook/internal/model"
	"barberbook/internal/outbox"
	"barberbook/internal/storetest"
)

// monday is a Monday so weekday 0 entries apply.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func seedBarber(store *storetest.Store) (barberID, serviceID string) {
	barberID = "barber-1"
	serviceID = "svc-1"
	store.Users[barberID] = model.User{
		ID: barberID, Email: "cuts@example.com", FullName: "Sam Cutter",
		IsActive: true, IsBarber: true,
	}
	store.Services[serviceID] = model.Service{
		ID: serviceID, BarberID: barberID, Name: "Haircut", DurationMins: 30, Price: 25,
	}
	store.WorkingHours[barberID] = []model.WorkingHoursEntry{
		{BarberID: barberID, DayOfWeek: 0, StartMinute: 9 * 60, EndMinute: 17 * 60, IsWorking: true},
	}
	return barberID, serviceID
}

func TestCreate_Success(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	start := monday.Add(10 * time.Hour)
	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID:      barberID,
		ServiceID:     serviceID,
		StartTime:     start,
		CustomerName:  "Pat",
		CustomerEmail: "pat@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Status != model.BookingConfirmed {
		t.Fatalf("expected confirmed status, got %q", b.Status)
	}
	if !b.EndTime.Equal(start.Add(30 * time.Minute)) {
		t.Fatalf("expected end 30m after start, got %s", b.EndTime)
	}
	if len(store.Events) != 1 || store.Events[0].EventType != outbox.EventBookingConfirmed {
		t.Fatalf("expected one confirmed event, got %+v", store.Events)
	}
}

func TestCreate_UnknownBarberAndService(t *testing.T) {
	store := storetest.New()
	barberID, _ := seedBarber(store)
	ledger := booking.NewLedger(store)

	_, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: "nope", ServiceID: "svc-1", StartTime: monday.Add(10 * time.Hour),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown barber, got %v", err)
	}

	_, err = ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: "nope", StartTime: monday.Add(10 * time.Hour),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown service, got %v", err)
	}
}

func TestCreate_OutsideWorkingHours(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	// Tuesday has no schedule entry.
	_, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.AddDate(0, 0, 1).Add(10 * time.Hour),
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error on a day off, got %v", err)
	}

	// 16:45 + 30m runs past 17:00.
	_, err = ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(16*time.Hour + 45*time.Minute),
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error past closing, got %v", err)
	}
}

func TestCreate_OverlapConflict(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	first, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10 * time.Hour),
		CustomerEmail: "a@example.com",
	})
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// 10:15 overlaps [10:00, 10:30).
	_, err = ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10*time.Hour + 15*time.Minute),
		CustomerEmail: "b@example.com",
	})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict for overlapping booking, got %v", err)
	}

	// 10:30 touches the first booking's end and must succeed.
	second, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10*time.Hour + 30*time.Minute),
		CustomerEmail: "b@example.com",
	})
	if err != nil {
		t.Fatalf("adjacent booking failed: %v", err)
	}
	if second.StartTime.Before(first.EndTime) {
		t.Fatalf("adjacent booking starts before previous end")
	}
}

func TestCreate_ConcurrentRace(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	start := monday.Add(11 * time.Hour)
	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Create(context.Background(), booking.CreateRequest{
				BarberID: barberID, ServiceID: serviceID, StartTime: start,
				CustomerEmail: "racer@example.com",
			})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if wins != 1 || conflicts != racers-1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d conflicts", wins, conflicts)
	}
}

func TestCreate_EndTimeSurvivesServiceChange(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	start := monday.Add(14 * time.Hour)
	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: start,
		CustomerEmail: "pat@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	svc := store.Services[serviceID]
	svc.DurationMins = 45
	store.Services[serviceID] = svc

	stored := store.Bookings[b.ID]
	if !stored.EndTime.Equal(start.Add(30 * time.Minute)) {
		t.Fatalf("booking end changed after service edit: %s", stored.EndTime)
	}
}

func TestCancel_ByBarberAndNoOpRepeat(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10 * time.Hour),
		CustomerEmail: "pat@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	barber := model.Identity{UserID: barberID, Email: "cuts@example.com"}
	cancelled, err := ledger.Cancel(context.Background(), b.ID, barber)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != model.BookingCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}

	events := len(store.Events)
	again, err := ledger.Cancel(context.Background(), b.ID, barber)
	if err != nil {
		t.Fatalf("repeat Cancel should be a no-op success, got %v", err)
	}
	if again.Status != model.BookingCancelled {
		t.Fatalf("repeat Cancel changed status to %q", again.Status)
	}
	if len(store.Events) != events {
		t.Fatalf("repeat Cancel emitted an event")
	}
}

func TestCancel_ByCustomerEmail(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10 * time.Hour),
		CustomerEmail: "Pat@Example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Email comparison is case-insensitive.
	customer := model.Identity{UserID: "someone-else", Email: "pat@example.com"}
	if _, err := ledger.Cancel(context.Background(), b.ID, customer); err != nil {
		t.Fatalf("customer Cancel failed: %v", err)
	}
}

func TestCancel_ForbiddenForStranger(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10 * time.Hour),
		CustomerEmail: "pat@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stranger := model.Identity{UserID: "intruder", Email: "intruder@example.com"}
	_, err = ledger.Cancel(context.Background(), b.ID, stranger)
	if !apperr.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if store.Bookings[b.ID].Status != model.BookingConfirmed {
		t.Fatalf("forbidden cancel changed the booking")
	}
}

func TestCancel_MissingBooking(t *testing.T) {
	store := storetest.New()
	seedBarber(store)
	ledger := booking.NewLedger(store)

	_, err := ledger.Cancel(context.Background(), "missing", model.Identity{UserID: "x"})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestCancel_FreesTheSlot(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	start := monday.Add(10 * time.Hour)
	b, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: start,
		CustomerEmail: "pat@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := ledger.Cancel(context.Background(), b.ID, model.Identity{UserID: barberID}); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if _, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: start,
		CustomerEmail: "next@example.com",
	}); err != nil {
		t.Fatalf("rebooking a cancelled slot failed: %v", err)
	}
}

func TestAvailableSlots_EndToEnd(t *testing.T) {
	store := storetest.New()
	barberID, serviceID := seedBarber(store)
	ledger := booking.NewLedger(store)

	slots, err := ledger.AvailableSlots(context.Background(), barberID, serviceID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots.Starts) != 31 {
		t.Fatalf("expected 31 slots, got %d", len(slots.Starts))
	}

	if _, err := ledger.Create(context.Background(), booking.CreateRequest{
		BarberID: barberID, ServiceID: serviceID, StartTime: monday.Add(10 * time.Hour),
		CustomerEmail: "pat@example.com",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	slots, err = ledger.AvailableSlots(context.Background(), barberID, serviceID, monday)
	if err != nil {
		t.Fatalf("AvailableSlots failed: %v", err)
	}
	if len(slots.Starts) != 28 {
		t.Fatalf("expected 28 slots after booking, got %d", len(slots.Starts))
	}

	// A day with no schedule entry is an empty list, not an error.
	slots, err = ledger.AvailableSlots(context.Background(), barberID, serviceID, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("AvailableSlots on a day off failed: %v", err)
	}
	if len(slots.Starts) != 0 {
		t.Fatalf("expected no slots on a day off, got %d", len(slots.Starts))
	}
}
