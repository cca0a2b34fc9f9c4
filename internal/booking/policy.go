package booking

import (
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// HoursUntil returns the fractional number of hours between now and the
// session start.  Negative when the session has already started.
func HoursUntil(now, scheduledAt time.Time) float64 {
	return scheduledAt.Sub(now).Hours()
}

// MatchRefundTier picks the tier whose hours_before_session is the
// smallest value still >= the actual hours remaining, i.e. the nearest
// tier at or above how close the cancellation is.  No matching tier
// means 0%.
//
// With sparse tiers this can refund more for a closer cancellation than
// for a farther one; the rule is preserved as configured rather than
// corrected.
func MatchRefundTier(tiers []model.RefundTier, hoursRemaining float64) int {
	best := -1
	bestHours := 0
	for _, t := range tiers {
		if float64(t.HoursBefore) < hoursRemaining {
			continue
		}
		if best == -1 || t.HoursBefore < bestHours {
			best = t.RefundPercent
			bestHours = t.HoursBefore
		}
	}
	if best == -1 {
		return 0
	}
	return best
}

// RefundPercent applies the full cancellation policy.  At or beyond the
// window the refund is 100%.  Inside the window the tiers decide; a
// studio with no tiers configured rejects the cancellation outright with
// ErrWithinWindowNoPolicy.
func RefundPercent(p model.CancellationPolicy, hoursRemaining float64) (int, error) {
	if hoursRemaining >= float64(p.WindowHours) {
		return 100, nil
	}
	if len(p.Tiers) == 0 {
		return 0, ErrWithinWindowNoPolicy
	}
	return MatchRefundTier(p.Tiers, hoursRemaining), nil
}
