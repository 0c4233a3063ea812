package booking

import (
	"context"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
)

// ListFilter narrows the tenant-wide booking listing.
type ListFilter struct {
	From    *time.Time
	To      *time.Time
	StaffID string
	Status  string
	Page    int
	Limit   int
}

// Store is the persistence boundary of the rules engine. Every method is
// scoped by tenant id; implementations must never leak rows across tenants.
//
// CreateBooking and CancelBooking are the two writes. CreateBooking must be
// atomic with respect to concurrent inserts for the same staff member and
// return ErrSlotTaken when another CONFIRMED booking overlaps. CancelBooking
// must only transition CONFIRMED rows and report ok=false otherwise.
type Store interface {
	GetService(ctx context.Context, tenantID, serviceID string) (model.Service, bool, error)
	GetStaff(ctx context.Context, tenantID, staffID string) (model.Staff, bool, error)
	IsCustomerBanned(ctx context.Context, tenantID, email string) (bool, error)
	ListSchedules(ctx context.Context, tenantID, staffID string, weekday time.Weekday) ([]model.Schedule, error)
	HasTimeOff(ctx context.Context, tenantID, staffID string, date time.Time) (bool, error)
	ListConfirmedOverlapping(ctx context.Context, tenantID, staffID string, start, end time.Time) ([]model.Booking, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, tenantID, bookingID string) (model.Booking, bool, error)
	CancelBooking(ctx context.Context, tenantID, bookingID, cancelledBy string) (model.Booking, bool, error)

	ListCustomerBookings(ctx context.Context, tenantID, email string, from time.Time) ([]model.BookingDetail, error)
	ListBookings(ctx context.Context, tenantID string, f ListFilter) ([]model.Booking, int, error)
}
