package availability

import (
	"time"

	"barberbook/internal/model"
)

// AvailableSlots is the derived slot view for one date. It is never persisted.
type AvailableSlots struct {
	Date   time.Time
	Starts []time.Time
}

// ComputeAvailableSlots produces the ordered candidate start times for a
// service of durationMins on the given day, from the barber's schedule entry
// for that weekday and the day's already-confirmed bookings.
//
// A nil entry or a non-working day yields an empty list, not an error. The
// computation is pure: inputs are Store-provided snapshots, so the result may
// be stale by the time a booking is attempted — the ledger re-checks inside
// its transaction.
func ComputeAvailableSlots(entry *model.WorkingHoursEntry, durationMins int, day time.Time, booked []model.Booking) AvailableSlots {
	slots := AvailableSlots{Date: day}
	if entry == nil || !entry.IsWorking || durationMins <= 0 {
		return slots
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	workStart := midnight.Add(time.Duration(entry.StartMinute) * time.Minute)
	workEnd := midnight.Add(time.Duration(entry.EndMinute) * time.Minute)
	duration := time.Duration(durationMins) * time.Minute

	for _, start := range EnumerateSlots(workStart, workEnd, duration, SlotStep) {
		if overlapsAny(start, start.Add(duration), booked) {
			continue
		}
		slots.Starts = append(slots.Starts, start)
	}
	return slots
}

func overlapsAny(start, end time.Time, booked []model.Booking) bool {
	for _, b := range booked {
		if b.Status != model.BookingConfirmed {
			continue
		}
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
