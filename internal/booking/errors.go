// Package booking implements the reservation core: tenant scope
// resolution, opening-hours validation, conflict detection, the
// cancellation refund policy and the lifecycle manager that runs them in
// order.  The package is storage-agnostic; persistence is injected
// through the interfaces in stores.go so tests can substitute in-memory
// fakes.
package booking

import "errors"

// Sentinel errors of the booking core.  Handlers translate these into
// HTTP statuses: ErrNotFound -> 404, ErrForbidden -> 403, ErrConflict ->
// 409, ErrWithinWindowNoPolicy -> 400.  Credit shortages surface as
// credit.InsufficientCreditsError and validation failures as
// *ValidationError; anything else is an internal error that must be
// logged server-side and reported generically.
var (
	// ErrNotFound covers clients, services, trainers and bookings that are
	// absent from the caller's resolvable scope.  Cross-tenant resources
	// are reported as not found, not as forbidden, so their existence does
	// not leak.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller identity is known but the
	// operation is not permitted: self-booking disabled, trainer-led
	// studio, or an operator acting on someone else's booking.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals an overlapping booking for the trainer, or a
	// state-machine transition that is not allowed.
	ErrConflict = errors.New("conflict")

	// ErrWithinWindowNoPolicy rejects a cancellation inside the window of
	// a studio that configured no refund tiers.
	ErrWithinWindowNoPolicy = errors.New("cancellation window passed and no refund policy configured")
)

// ValidationError carries a human-readable reason for a rejected request,
// e.g. "outside studio operating hours (Mon 09:00-17:00)".  Handlers map
// it to HTTP 400 and may show the reason verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
