package model

import "time"

// Service is a bookable salon offering. Duration drives the computed booking
// end time; a service referenced by a booking is never recomputed.
type Service struct {
	ID              string
	TenantID        string
	Name            string
	DurationMinutes int
	Price           string
	IsActive        bool
	CreatedAt       time.Time
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type Staff struct {
	ID        string
	TenantID  string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// Schedule is one recurring weekly working window for a staff member.
// Several rows per weekday express split shifts. Weekday follows time.Weekday
// (Sunday = 0). Invariant: StartMinute < EndMinute.
type Schedule struct {
	StaffID     string
	Weekday     int
	StartMinute int
	EndMinute   int
}

// TimeOff is a full-day unavailability range, inclusive on both ends,
// independent of the weekly schedule.
type TimeOff struct {
	ID       string
	StaffID  string
	DateFrom time.Time
	DateTo   time.Time
	Reason   string
}

// CustomerBan blocks self-service bookings for an email within one tenant.
type CustomerBan struct {
	TenantID string
	Email    string
	Reason   string
}

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// Booking lifecycle: created CONFIRMED, transitions only to CANCELLED,
// never reversed, never deleted. EndAt is derived from the service duration
// at creation time and stored, not recomputed on read.
type Booking struct {
	ID            string
	TenantID      string
	ServiceID     string
	StaffID       string
	CustomerEmail string
	StartAt       time.Time
	EndAt         time.Time
	Status        BookingStatus
	CreatedBy     string
	CancelledBy   string
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

// BookingDetail is a booking joined with the display fields customers see.
type BookingDetail struct {
	Booking
	ServiceName            string
	ServiceDurationMinutes int
	StaffName              string
}
