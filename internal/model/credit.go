package model

import "time"

// Credit lot statuses.  A lot is ACTIVE while it still has spendable
// credits, becomes EXHAUSTED when sessions_remaining hits zero, and
// EXPIRED once past its expiry.  Only ACTIVE, unexpired lots are eligible
// for debits.
const (
	LotActive    = "ACTIVE"
	LotExpired   = "EXPIRED"
	LotExhausted = "EXHAUSTED"
)

// Usage entry reason tags.  Positive deltas consume credits, negative
// deltas add them.
const (
	ReasonBooking   = "booking"
	ReasonRefund    = "refund"
	ReasonManualAdd = "manual_addition"
)

// CreditLot is a purchased or granted bundle of prepaid session credits
// with its own expiry, stored in the `credit_lots` table.  The invariant
// SessionsRemaining == SessionsTotal - SessionsUsed holds at all times and
// SessionsRemaining never goes negative.  Only the credit repository may
// mutate these counters, always inside the atomic debit/credit operation.
type CreditLot struct {
	ID                uint64    // credit_lots.id
	ClientID          uint64    // credit_lots.client_id
	SessionsTotal     int       // credit_lots.sessions_total
	SessionsUsed      int       // credit_lots.sessions_used
	SessionsRemaining int       // credit_lots.sessions_remaining
	ExpiresAt         time.Time // credit_lots.expires_at
	Status            string    // credit_lots.status
	CreatedAt         time.Time // credit_lots.created_at
	UpdatedAt         time.Time // credit_lots.updated_at
}

// CreditUsageEntry is one row of the append-only usage ledger.  Entries
// are never updated or deleted; refunds are recorded as new negative-delta
// entries referencing the same booking.  BalanceAfter snapshots the
// client's spendable total right after the entry was applied.
type CreditUsageEntry struct {
	ID           uint64    // credit_usage_entries.id
	ClientID     uint64    // credit_usage_entries.client_id
	LotID        *uint64   // credit_usage_entries.lot_id (nullable, nil = legacy counter)
	BookingID    *uint64   // credit_usage_entries.booking_id (nullable)
	Delta        int       // credit_usage_entries.delta (positive = consumption)
	BalanceAfter int       // credit_usage_entries.balance_after
	Reason       string    // credit_usage_entries.reason
	Note         string    // credit_usage_entries.note
	CreatedAt    time.Time // credit_usage_entries.created_at
}
