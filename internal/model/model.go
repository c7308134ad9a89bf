package model

import "time"

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// User covers both customers and barbers; barbers additionally carry the
// shop profile fields and own services and working hours.
type User struct {
	ID          string
	Email       string
	FullName    string
	PhoneNumber string
	IsActive    bool
	IsBarber    bool
	Bio         string
	ShopName    string
	ShopAddress string
	CreatedAt   time.Time
}

type Service struct {
	ID           string
	BarberID     string
	Name         string
	Description  string
	DurationMins int
	Price        float64
	CreatedAt    time.Time
}

// WorkingHoursEntry is one weekday of a barber's recurring schedule.
// DayOfWeek runs 0=Monday .. 6=Sunday. Start/End are minutes from midnight.
type WorkingHoursEntry struct {
	BarberID    string
	DayOfWeek   int
	StartMinute int
	EndMinute   int
	IsWorking   bool
}

type Booking struct {
	ID            string
	BarberID      string
	ServiceID     string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StartTime     time.Time
	// EndTime is fixed at creation from the service duration; later edits to
	// the service do not move it.
	EndTime   time.Time
	Status    string
	Notes     string
	CreatedAt time.Time
}

// Identity is a verified caller, as resolved from an access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}
