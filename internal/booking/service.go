package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/availability"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
)

// CancelCutoff is the customer-facing cancellation deadline: a booking may
// only be cancelled by its customer while at least this much time remains
// before it starts. Admins are not bound by it.
const CancelCutoff = 24 * time.Hour

const DefaultSlotStep = 15 * time.Minute

// Service implements the availability resolver, the booking writer and the
// cancellation policy on top of a tenant-scoped Store.
type Service struct {
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	slotStep time.Duration
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		now:      time.Now,
		slotStep: DefaultSlotStep,
	}
}

// WithSlotStep overrides the slot granularity used by Slots.
func (s *Service) WithSlotStep(step time.Duration) *Service {
	if step > 0 {
		s.slotStep = step
	}
	return s
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

type CreateInput struct {
	ServiceID     string
	StaffID       string
	CustomerEmail string
	StartAt       time.Time
}

// Create runs the availability resolver and, on success, writes the booking.
// The two steps deliberately share no lock: the database's exclusion
// constraint closes the race between concurrent requests for the same slot,
// surfacing as ErrConflict from the write.
func (s *Service) Create(ctx context.Context, tenantID string, actor model.Actor, in CreateInput) (model.Booking, error) {
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))

	if !actor.IsAdmin() {
		// Customers book for themselves only.
		if in.CustomerEmail == "" {
			in.CustomerEmail = strings.ToLower(actor.Email)
		} else if in.CustomerEmail != strings.ToLower(actor.Email) {
			return model.Booking{}, fmt.Errorf("cannot book for another customer: %w", ErrForbidden)
		}
	}

	if err := s.validateCreate(tenantID, actor, in); err != nil {
		return model.Booking{}, err
	}

	svc, err := s.resolve(ctx, tenantID, actor, in)
	if err != nil {
		return model.Booking{}, err
	}

	createdBy := actor.Email
	if createdBy == "" {
		createdBy = "admin"
	}

	b := model.Booking{
		TenantID:      tenantID,
		ServiceID:     in.ServiceID,
		StaffID:       in.StaffID,
		CustomerEmail: in.CustomerEmail,
		StartAt:       in.StartAt,
		EndAt:         in.StartAt.Add(svc.Duration()),
		Status:        model.StatusConfirmed,
		CreatedBy:     createdBy,
	}
	if err := s.store.CreateBooking(ctx, &b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return model.Booking{}, fmt.Errorf("slot is no longer available: %w", ErrConflict)
		}
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("booking created",
		"tenant_id", tenantID,
		"booking_id", b.ID,
		"staff_id", b.StaffID,
		"start_at", b.StartAt.Format(time.RFC3339),
		"created_by", b.CreatedBy,
	)
	return b, nil
}

func (s *Service) validateCreate(tenantID string, actor model.Actor, in CreateInput) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required: %w", ErrValidation)
	}
	if in.ServiceID == "" || in.StaffID == "" {
		return fmt.Errorf("serviceId and staffId are required: %w", ErrValidation)
	}
	if in.CustomerEmail == "" || !strings.Contains(in.CustomerEmail, "@") {
		return fmt.Errorf("a valid customerEmail is required: %w", ErrValidation)
	}
	if in.StartAt.IsZero() {
		return fmt.Errorf("start is required: %w", ErrValidation)
	}
	if !actor.IsAdmin() && in.StartAt.Before(s.now()) {
		return fmt.Errorf("start must be in the future: %w", ErrValidation)
	}
	return nil
}

// resolve checks, in order and short-circuiting on the first failure, that
// the requested slot is bookable. The admin path relaxes the active-flag
// checks, skips the ban list (an admin may serve a banned customer in
// person) and may book outside working hours; overlap and time-off are
// enforced for everyone.
func (s *Service) resolve(ctx context.Context, tenantID string, actor model.Actor, in CreateInput) (model.Service, error) {
	svc, found, err := s.store.GetService(ctx, tenantID, in.ServiceID)
	if err != nil {
		return model.Service{}, fmt.Errorf("load service: %w", err)
	}
	if !found || (!actor.IsAdmin() && !svc.IsActive) {
		return model.Service{}, fmt.Errorf("service not found: %w", ErrNotFound)
	}

	staff, found, err := s.store.GetStaff(ctx, tenantID, in.StaffID)
	if err != nil {
		return model.Service{}, fmt.Errorf("load staff: %w", err)
	}
	if !found || (!actor.IsAdmin() && !staff.IsActive) {
		return model.Service{}, fmt.Errorf("staff not found: %w", ErrNotFound)
	}

	startAt := in.StartAt
	endAt := startAt.Add(svc.Duration())

	if !actor.IsAdmin() {
		banned, err := s.store.IsCustomerBanned(ctx, tenantID, in.CustomerEmail)
		if err != nil {
			return model.Service{}, fmt.Errorf("check ban list: %w", err)
		}
		if banned {
			return model.Service{}, fmt.Errorf("customer is not allowed to book: %w", ErrForbidden)
		}

		windows, err := s.store.ListSchedules(ctx, tenantID, staff.ID, startAt.Weekday())
		if err != nil {
			return model.Service{}, fmt.Errorf("load schedule: %w", err)
		}
		if !availability.FitsWindows(startAt, endAt, windows) {
			return model.Service{}, fmt.Errorf("outside working hours: %w", ErrConflict)
		}
	}

	overlapping, err := s.store.ListConfirmedOverlapping(ctx, tenantID, staff.ID, startAt, endAt)
	if err != nil {
		return model.Service{}, fmt.Errorf("check overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return model.Service{}, fmt.Errorf("slot overlaps an existing booking: %w", ErrConflict)
	}

	off, err := s.store.HasTimeOff(ctx, tenantID, staff.ID, startAt)
	if err != nil {
		return model.Service{}, fmt.Errorf("check time off: %w", err)
	}
	if off {
		return model.Service{}, fmt.Errorf("staff is unavailable on that date: %w", ErrConflict)
	}

	return svc, nil
}

// Cancel applies the cancellation policy. Customers may cancel their own
// CONFIRMED bookings no later than CancelCutoff before start; admins bypass
// everything except existence. CANCELLED is terminal.
func (s *Service) Cancel(ctx context.Context, tenantID string, actor model.Actor, bookingID string) error {
	b, found, err := s.store.GetBooking(ctx, tenantID, bookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if !found {
		return fmt.Errorf("booking not found: %w", ErrNotFound)
	}

	if !actor.IsAdmin() {
		if !strings.EqualFold(actor.Email, b.CustomerEmail) {
			return fmt.Errorf("booking belongs to another customer: %w", ErrForbidden)
		}
		if b.Status != model.StatusConfirmed {
			return fmt.Errorf("already cancelled: %w", ErrValidation)
		}
		if b.StartAt.Sub(s.now()) < CancelCutoff {
			return fmt.Errorf("too late to cancel: %w", ErrValidation)
		}
	}

	cancelledBy := actor.Email
	if cancelledBy == "" {
		cancelledBy = "admin"
	}

	_, ok, err := s.store.CancelBooking(ctx, tenantID, bookingID, cancelledBy)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	if !ok {
		return fmt.Errorf("already cancelled: %w", ErrValidation)
	}

	s.logger.Info("booking cancelled",
		"tenant_id", tenantID,
		"booking_id", bookingID,
		"cancelled_by", cancelledBy,
	)
	return nil
}

// ListMine returns the customer's upcoming CONFIRMED bookings.
func (s *Service) ListMine(ctx context.Context, tenantID, email string) ([]model.BookingDetail, error) {
	if email == "" {
		return nil, fmt.Errorf("customer email is required: %w", ErrValidation)
	}
	return s.store.ListCustomerBookings(ctx, tenantID, strings.ToLower(email), s.now())
}

// List returns the tenant-wide, filtered and paginated booking listing.
func (s *Service) List(ctx context.Context, tenantID string, f ListFilter) ([]model.Booking, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Status != "" &&
		f.Status != string(model.StatusConfirmed) &&
		f.Status != string(model.StatusCancelled) {
		return nil, 0, fmt.Errorf("unknown status %q: %w", f.Status, ErrValidation)
	}
	return s.store.ListBookings(ctx, tenantID, f)
}

// Slots lists the free start times for one staff member, service and day:
// the weekday schedule windows minus confirmed bookings, empty when the day
// is covered by time-off. Past slots are skipped.
func (s *Service) Slots(ctx context.Context, tenantID, staffID, serviceID string, day time.Time) ([]time.Time, error) {
	svc, found, err := s.store.GetService(ctx, tenantID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if !found || !svc.IsActive {
		return nil, fmt.Errorf("service not found: %w", ErrNotFound)
	}
	staff, found, err := s.store.GetStaff(ctx, tenantID, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !found || !staff.IsActive {
		return nil, fmt.Errorf("staff not found: %w", ErrNotFound)
	}

	off, err := s.store.HasTimeOff(ctx, tenantID, staffID, day)
	if err != nil {
		return nil, fmt.Errorf("check time off: %w", err)
	}
	if off {
		return nil, nil
	}

	windows, err := s.store.ListSchedules(ctx, tenantID, staffID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}

	dayStart := availability.DateOf(day)
	busyBookings, err := s.store.ListConfirmedOverlapping(ctx, tenantID, staffID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	busy := make([]availability.Interval, 0, len(busyBookings))
	for _, b := range busyBookings {
		busy = append(busy, availability.Interval{Start: b.StartAt, End: b.EndAt})
	}

	var slots []time.Time
	for _, w := range windows {
		iv := availability.WindowInterval(dayStart, w)
		slots = append(slots, availability.AvailableSlots(iv.Start, iv.End, svc.Duration(), s.slotStep, busy, s.now())...)
	}
	return slots, nil
}
