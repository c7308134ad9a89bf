package availability

import "time"

// SlotStep is the spacing between candidate booking start times.
const SlotStep = 15 * time.Minute

// EnumerateSlots returns every start time t in [workStart, workEnd] such that
// t+slotDuration <= workEnd, beginning at workStart and advancing by step.
// Candidates are independent of each other; callers filter, never re-pack.
func EnumerateSlots(workStart, workEnd time.Time, slotDuration, step time.Duration) []time.Time {
	if slotDuration <= 0 || step <= 0 {
		return nil
	}
	if !workEnd.After(workStart) {
		return nil
	}

	var slots []time.Time
	for t := workStart; !t.Add(slotDuration).After(workEnd); t = t.Add(step) {
		slots = append(slots, t)
	}
	return slots
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not count: a booking
// ending at 10:00 does not conflict with one starting at 10:00.
//
// Every conflict decision in the codebase goes through this predicate.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DayOfWeek maps t onto the schedule convention 0=Monday .. 6=Sunday.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
