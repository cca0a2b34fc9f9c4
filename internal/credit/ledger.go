package credit

import (
	"sort"
	"time"
)

// Credit health buckets for display.  Derived from the current total,
// never stored.
const (
	HealthGood   = "good"   // more than 5 credits
	HealthMedium = "medium" // 3 to 5
	HealthLow    = "low"    // 1 or 2
	HealthNone   = "none"   // 0
)

// LotView is the minimal projection of a credit lot the planner needs.
// Callers build it from locked database rows so the plan stays valid for
// the duration of the transaction.
type LotView struct {
	ID        uint64
	Remaining int
	ExpiresAt time.Time
}

// Draw instructs the caller to consume Amount credits from one lot.
type Draw struct {
	LotID  uint64
	Amount int
}

// eligible filters lots that may participate in a debit: positive
// remainder and not yet expired at the reference instant.
func eligible(lots []LotView, now time.Time) []LotView {
	out := make([]LotView, 0, len(lots))
	for _, l := range lots {
		if l.Remaining > 0 && l.ExpiresAt.After(now) {
			out = append(out, l)
		}
	}
	return out
}

// PlanDebit computes a FIFO-by-nearest-expiry consumption plan: credits
// are drawn from the soonest-to-expire eligible lot first until amount is
// satisfied.  The plan is all-or-nothing: when the total available balance
// is short, an InsufficientCreditsError is returned and no draws are
// produced.
func PlanDebit(lots []LotView, amount int, now time.Time) ([]Draw, error) {
	pool := eligible(lots, now)
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ExpiresAt.Before(pool[j].ExpiresAt) })

	available := 0
	for _, l := range pool {
		available += l.Remaining
	}
	if available < amount {
		return nil, &InsufficientCreditsError{Required: amount, Available: available}
	}

	draws := make([]Draw, 0, 2)
	left := amount
	for _, l := range pool {
		if left == 0 {
			break
		}
		take := l.Remaining
		if take > left {
			take = left
		}
		draws = append(draws, Draw{LotID: l.ID, Amount: take})
		left -= take
	}
	return draws, nil
}

// Available sums the spendable balance across eligible lots.
func Available(lots []LotView, now time.Time) int {
	total := 0
	for _, l := range eligible(lots, now) {
		total += l.Remaining
	}
	return total
}

// NearestExpiry returns the soonest expiry among eligible lots, or nil
// when no lot is eligible.
func NearestExpiry(lots []LotView, now time.Time) *time.Time {
	var nearest *time.Time
	for _, l := range eligible(lots, now) {
		exp := l.ExpiresAt
		if nearest == nil || exp.Before(*nearest) {
			nearest = &exp
		}
	}
	return nearest
}

// RefundAmount computes round(original * percent / 100) with half-up
// rounding, in pure integer arithmetic.
func RefundAmount(original, percent int) int {
	if original <= 0 || percent <= 0 {
		return 0
	}
	return (original*percent + 50) / 100
}

// Health buckets a credit total for display.
func Health(total int) string {
	switch {
	case total > 5:
		return HealthGood
	case total >= 3:
		return HealthMedium
	case total >= 1:
		return HealthLow
	default:
		return HealthNone
	}
}
