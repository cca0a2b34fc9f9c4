package model

import "time"

// Booking statuses.  A booking is created as CONFIRMED (direct booking)
// or SOFT_HOLD (provisional reservation pending confirmation).  CANCELLED,
// COMPLETED, NO_SHOW and LATE are terminal.
const (
	StatusConfirmed = "CONFIRMED"
	StatusSoftHold  = "SOFT_HOLD"
	StatusCheckedIn = "CHECKED_IN"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
	StatusLate      = "LATE"
)

// transitions is the booking state machine.  Creation is handled
// separately; this table only answers "may status X become status Y".
var transitions = map[string][]string{
	StatusSoftHold:  {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow, StatusLate},
	StatusCheckedIn: {StatusCompleted, StatusCancelled, StatusNoShow, StatusLate},
}

// CanTransition reports whether a booking in status from may move to
// status to.  Terminal statuses allow nothing.
func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Booking is a reservation of a trainer's time for one client and
// service, stored in the `bookings` table.  A cancelled booking is kept
// (soft delete); only an explicit operator request removes the row.
//
// Fields:
//  ID            – primary key identifier.
//  ClientID      – booking client.
//  TrainerID     – trainer delivering the session.
//  ServiceID     – service being delivered.
//  StudioID      – governing studio (nullable for solo practitioners).
//  ScheduledAt   – session start, UTC.
//  DurationMin   – session length in minutes.
//  CreditsUsed   – credits the booking consumes when confirmed.
//  Status        – state machine position, see constants above.
//  HoldExpiresAt – when a SOFT_HOLD stops blocking other bookings.
type Booking struct {
	ID            uint64     // bookings.id
	ClientID      uint64     // bookings.client_id
	TrainerID     uint64     // bookings.trainer_id
	ServiceID     uint64     // bookings.service_id
	StudioID      *uint64    // bookings.studio_id (nullable)
	ScheduledAt   time.Time  // bookings.scheduled_at
	DurationMin   int        // bookings.duration_min
	CreditsUsed   int        // bookings.credits_used
	Status        string     // bookings.status
	HoldExpiresAt *time.Time // bookings.hold_expires_at (nullable)
	CreatedAt     time.Time  // bookings.created_at
	UpdatedAt     time.Time  // bookings.updated_at
}

// End returns the exclusive end instant of the session interval.
func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMin) * time.Minute)
}

// Blocking reports whether this booking occupies the trainer for conflict
// purposes: CONFIRMED always does, a SOFT_HOLD only until its expiry.  An
// expired hold must never block a legitimate new booking.
func (b *Booking) Blocking(now time.Time) bool {
	switch b.Status {
	case StatusConfirmed:
		return true
	case StatusSoftHold:
		return b.HoldExpiresAt == nil || b.HoldExpiresAt.After(now)
	}
	return false
}
