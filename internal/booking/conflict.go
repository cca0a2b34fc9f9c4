package booking

import (
	"context"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// ConflictWindow is how far back the coarse pre-filter reaches: a booking
// starting up to two hours before the candidate may still run into it.
// The window is a pre-filter only; the exact overlap test below is the
// authority.
const ConflictWindow = 2 * time.Hour

// Overlaps tests true interval overlap under half-open semantics:
// [aStart, aEnd) and [bStart, bEnd) conflict iff aStart < bEnd and
// bStart < aEnd.  Two intervals that merely touch at an endpoint do not
// overlap.
func Overlaps(aStart time.Time, aDurMin int, bStart time.Time, bDurMin int) bool {
	aEnd := aStart.Add(time.Duration(aDurMin) * time.Minute)
	bEnd := bStart.Add(time.Duration(bDurMin) * time.Minute)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// BookingSource yields a trainer's potentially blocking bookings whose
// scheduled_at falls inside [from, to).  Implementations fetch CONFIRMED
// and SOFT_HOLD rows; the detector filters expired holds itself.
type BookingSource interface {
	ActiveInWindow(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error)
}

// Detector answers "is this trainer free for the candidate interval".
// It is best-effort pre-validation: the serializing re-check lives inside
// the booking insert transaction, because two concurrent writers can both
// pass a read-only check.
type Detector struct {
	Bookings BookingSource
	Now      func() time.Time
}

func NewDetector(src BookingSource, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{Bookings: src, Now: now}
}

// HasConflict fetches candidates in a generous window around the
// requested interval and tests each for exact half-open overlap.  A
// SOFT_HOLD past its expiry never blocks.
func (d *Detector) HasConflict(ctx context.Context, trainerID uint64, start time.Time, durationMin int) (bool, error) {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	rows, err := d.Bookings.ActiveInWindow(ctx, trainerID, start.Add(-ConflictWindow), end)
	if err != nil {
		return false, err
	}
	now := d.Now().UTC()
	for i := range rows {
		b := &rows[i]
		if !b.Blocking(now) {
			continue
		}
		if Overlaps(start, durationMin, b.ScheduledAt, b.DurationMin) {
			return true, nil
		}
	}
	return false, nil
}
