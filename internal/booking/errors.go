package booking

import "errors"

// Error taxonomy surfaced to callers. Handlers map these onto HTTP statuses
// (404, 403, 409, 400); anything else is a 500-class failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("invalid request")
)

// ErrSlotTaken is returned by Store.CreateBooking when the database rejects
// the insert because another CONFIRMED booking overlaps the slot. The
// exclusion constraint, not the resolver's pre-check, is what guarantees at
// most one CONFIRMED booking per staff-member-instant under concurrency.
var ErrSlotTaken = errors.New("slot taken")
