package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/availability"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/booking"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/outbox"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/libs/db"
)

// Repository implements booking.Store on Postgres. The bookings table
// carries an exclusion constraint on (staff_id, tstzrange(start_at, end_at))
// filtered to CONFIRMED rows; it is the authority on slot conflicts under
// concurrent inserts.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

// IsConflict reports whether err is an exclusion-constraint violation.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *Repository) GetService(ctx context.Context, tenantID, serviceID string) (model.Service, bool, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, name, duration_minutes, price::text, is_active, created_at
		FROM services
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, serviceID).Scan(&s.ID, &s.TenantID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt)
	if IsNotFound(err) {
		return model.Service{}, false, nil
	}
	if err != nil {
		return model.Service{}, false, err
	}
	return s, true, nil
}

func (r *Repository) GetStaff(ctx context.Context, tenantID, staffID string) (model.Staff, bool, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, tenant_id::text, name, is_active, created_at
		FROM staff
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, staffID).Scan(&s.ID, &s.TenantID, &s.Name, &s.IsActive, &s.CreatedAt)
	if IsNotFound(err) {
		return model.Staff{}, false, nil
	}
	if err != nil {
		return model.Staff{}, false, err
	}
	return s, true, nil
}

func (r *Repository) IsCustomerBanned(ctx context.Context, tenantID, email string) (bool, error) {
	var banned bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM customer_bans
			WHERE tenant_id = $1 AND email = lower($2)
		)
	`, tenantID, email).Scan(&banned)
	return banned, err
}

func (r *Repository) ListSchedules(ctx context.Context, tenantID, staffID string, weekday time.Weekday) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.staff_id::text, h.weekday, h.start_minute, h.end_minute
		FROM staff_schedules h
		JOIN staff s ON s.id = h.staff_id
		WHERE s.tenant_id = $1 AND h.staff_id = $2 AND h.weekday = $3
		ORDER BY h.start_minute ASC
	`, tenantID, staffID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Schedule
	for rows.Next() {
		var sc model.Schedule
		if err := rows.Scan(&sc.StaffID, &sc.Weekday, &sc.StartMinute, &sc.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) HasTimeOff(ctx context.Context, tenantID, staffID string, date time.Time) (bool, error) {
	var off bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM staff_time_off t
			JOIN staff s ON s.id = t.staff_id
			WHERE s.tenant_id = $1
				AND t.staff_id = $2
				AND $3::date BETWEEN t.date_from AND t.date_to
		)
	`, tenantID, staffID, availability.DateOf(date)).Scan(&off)
	return off, err
}

const bookingColumns = `
	id::text, tenant_id::text, service_id::text, staff_id::text, customer_email,
	start_at, end_at, status, created_by, COALESCE(cancelled_by, ''), cancelled_at, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.ServiceID,
		&b.StaffID,
		&b.CustomerEmail,
		&b.StartAt,
		&b.EndAt,
		&b.Status,
		&b.CreatedBy,
		&b.CancelledBy,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

func (r *Repository) ListConfirmedOverlapping(ctx context.Context, tenantID, staffID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1
			AND staff_id = $2
			AND status = 'CONFIRMED'
			AND start_at < $4
			AND end_at > $3
		ORDER BY start_at ASC
	`, tenantID, staffID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// CreateBooking inserts the row and its booking.created.v1 event in one
// transaction. An exclusion-constraint violation means another CONFIRMED
// booking won the slot.
func (r *Repository) CreateBooking(ctx context.Context, b *model.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b.ID = uuid.NewString()
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(id, tenant_id, service_id, staff_id, customer_email, start_at, end_at, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, b.ID, b.TenantID, b.ServiceID, b.StaffID, b.CustomerEmail, b.StartAt, b.EndAt, b.Status, b.CreatedBy).
		Scan(&b.CreatedAt)
	if err != nil {
		if IsConflict(err) {
			return fmt.Errorf("%w: staff %s at %s", booking.ErrSlotTaken, b.StaffID, b.StartAt.Format(time.RFC3339))
		}
		return err
	}

	payload, err := bookingEventPayload(*b)
	if err != nil {
		return err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingCreated,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetBooking(ctx context.Context, tenantID, bookingID string) (model.Booking, bool, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, bookingID))
	if IsNotFound(err) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

// CancelBooking transitions a CONFIRMED booking to CANCELLED and writes the
// booking.cancelled.v1 event in the same transaction. ok is false when the
// row was not CONFIRMED (the conditional UPDATE keeps the state terminal
// even under concurrent cancels).
func (r *Repository) CancelBooking(ctx context.Context, tenantID, bookingID, cancelledBy string) (model.Booking, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := scanBooking(tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'CANCELLED',
			cancelled_at = now(),
			cancelled_by = $3
		WHERE tenant_id = $1 AND id = $2 AND status = 'CONFIRMED'
		RETURNING `+bookingColumns+`
	`, tenantID, bookingID, cancelledBy))
	if IsNotFound(err) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}

	payload, err := bookingEventPayload(b)
	if err != nil {
		return model.Booking{}, false, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     outbox.EventBookingCancelled,
		Payload:       payload,
	}); err != nil {
		return model.Booking{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func (r *Repository) ListCustomerBookings(ctx context.Context, tenantID, email string, from time.Time) ([]model.BookingDetail, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id::text, b.tenant_id::text, b.service_id::text, b.staff_id::text, b.customer_email,
			b.start_at, b.end_at, b.status, b.created_by, COALESCE(b.cancelled_by, ''), b.cancelled_at, b.created_at,
			sv.name, sv.duration_minutes, st.name
		FROM bookings b
		JOIN services sv ON sv.id = b.service_id
		JOIN staff st ON st.id = b.staff_id
		WHERE b.tenant_id = $1
			AND b.customer_email = lower($2)
			AND b.status = 'CONFIRMED'
			AND b.start_at > $3
		ORDER BY b.start_at ASC
	`, tenantID, email, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookingDetail
	for rows.Next() {
		var d model.BookingDetail
		var cancelledAt *time.Time
		if err := rows.Scan(
			&d.ID, &d.TenantID, &d.ServiceID, &d.StaffID, &d.CustomerEmail,
			&d.StartAt, &d.EndAt, &d.Status, &d.CreatedBy, &d.CancelledBy, &cancelledAt, &d.CreatedAt,
			&d.ServiceName, &d.ServiceDurationMinutes, &d.StaffName,
		); err != nil {
			return nil, err
		}
		d.CancelledAt = cancelledAt
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListBookings(ctx context.Context, tenantID string, f booking.ListFilter) ([]model.Booking, int, error) {
	where := "WHERE tenant_id = $1"
	args := []any{tenantID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.From != nil {
		where += " AND start_at >= " + arg(*f.From)
	}
	if f.To != nil {
		where += " AND start_at < " + arg(*f.To)
	}
	if f.StaffID != "" {
		where += " AND staff_id = " + arg(f.StaffID)
	}
	if f.Status != "" {
		where += " AND status = " + arg(f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM bookings "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + bookingColumns + " FROM bookings " + where +
		" ORDER BY start_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg((f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return out, total, nil
}

func bookingEventPayload(b model.Booking) ([]byte, error) {
	return json.Marshal(map[string]any{
		"booking_id":     b.ID,
		"tenant_id":      b.TenantID,
		"service_id":     b.ServiceID,
		"staff_id":       b.StaffID,
		"customer_email": b.CustomerEmail,
		"start_at":       b.StartAt.Format(time.RFC3339),
		"end_at":         b.EndAt.Format(time.RFC3339),
		"status":         string(b.Status),
	})
}
