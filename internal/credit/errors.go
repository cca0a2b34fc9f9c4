// Package credit holds the pure domain logic of the session-credit
// ledger: FIFO debit planning across expiring lots, refund arithmetic and
// the display health buckets.  It performs no I/O; the repository layer
// applies the plans this package produces inside a single database
// transaction.
package credit

import (
	"errors"
	"fmt"
)

// ErrInsufficientCredits is the sentinel behind InsufficientCreditsError.
// Use errors.Is to detect the condition regardless of wrapping.
var ErrInsufficientCredits = errors.New("insufficient credits")

// InsufficientCreditsError reports a debit that cannot be satisfied.  It
// carries the counts the UI needs to tell the client how many credits are
// missing.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }
