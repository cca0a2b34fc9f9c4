package booking

import (
	"context"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Collaborator interfaces of the booking core.  The MySQL repositories
// implement them in production; tests substitute in-memory fakes.  A
// missing row is reported as sql.ErrNoRows or ErrNotFound; the manager
// accepts either.

// ClientDirectory looks up and repairs client identities.
type ClientDirectory interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.Client, error)
	GetByID(ctx context.Context, id uint64) (*model.Client, error)
	// SetStudioID back-fills a missing studio scope.  Implementations
	// must be idempotent: an already-set studio_id is left untouched.
	SetStudioID(ctx context.Context, clientID, studioID uint64) error
}

// ProfileDirectory is the identity lookup treated as a black box: which
// role an account has and which studio it is affiliated with.
type ProfileDirectory interface {
	ResolveProfile(ctx context.Context, userID uint64) (*model.Profile, error)
}

// StudioDirectory resolves a studio to its owning account.
type StudioDirectory interface {
	OwnerID(ctx context.Context, studioID uint64) (uint64, error)
}

// StudioStore adds full studio loading on top of owner resolution.
type StudioStore interface {
	StudioDirectory
	GetByID(ctx context.Context, id uint64) (*model.Studio, error)
}

// ServiceStore loads bookable offerings.
type ServiceStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Service, error)
}

// TrainerStore answers scope membership: a trainer belongs to the scope
// when its account id is a lookup id (solo practitioner), its studio is a
// lookup id (staff) or its account owns a studio in the scope.
type TrainerStore interface {
	InScope(ctx context.Context, trainerID uint64, lookupIDs []uint64) (bool, error)
}

// BookingStore persists bookings.  CreateWithDebit and ConfirmHold are
// atomic: the conflict re-check, the row write and the FIFO credit debit
// commit together or not at all.  They return ErrConflict on overlap and
// a credit.InsufficientCreditsError on shortage.
type BookingStore interface {
	BookingSource
	// CreateWithDebit inserts a CONFIRMED booking and debits its credits
	// in one transaction, returning the client's remaining total.
	CreateWithDebit(ctx context.Context, b *model.Booking) (int, error)
	// CreateHold inserts a SOFT_HOLD after the same serializing conflict
	// re-check.  No credits are consumed until the hold is confirmed.
	CreateHold(ctx context.Context, b *model.Booking) error
	// ConfirmHold debits credits and promotes a SOFT_HOLD to CONFIRMED.
	// Confirming an already-confirmed booking is a no-op returning the
	// current state, so duplicate confirm calls never double-debit.
	ConfirmHold(ctx context.Context, bookingID, clientID uint64) (*model.Booking, int, error)
	GetForClient(ctx context.Context, bookingID, clientID uint64) (*model.Booking, error)
	// CancelWithRefund marks the booking cancelled and, for a positive
	// refund percent, credits back round(original * percent / 100) to the
	// originating lot, at most once per booking.  Returns the credits
	// actually refunded.
	CancelWithRefund(ctx context.Context, bookingID, clientID uint64, refundPercent int) (int, error)
}

// CreditStore exposes the client's credit lots.  All balance math happens
// in the credit package; mutation happens only inside the repository's
// atomic debit/credit operations.
type CreditStore interface {
	Lots(ctx context.Context, clientID uint64) ([]model.CreditLot, error)
}

// RequestStore persists trainer-led booking requests.
type RequestStore interface {
	Create(ctx context.Context, req *model.BookingRequest) error
	// GetForTrainerUser loads a request addressed to a trainer owned by
	// the given user account, enforcing ownership in the lookup.
	GetForTrainerUser(ctx context.Context, requestID, trainerUserID uint64) (*model.BookingRequest, error)
	// MarkAccepted flips a PENDING request to ACCEPTED and links the
	// created booking.  Fails with ErrConflict when the request is no
	// longer pending.
	MarkAccepted(ctx context.Context, requestID, bookingID uint64) error
	MarkDeclined(ctx context.Context, requestID uint64) error
}

// Notifier is the fire-and-forget notification dispatcher.  Failures are
// the implementation's problem (log and move on) and must never roll back
// a booking or refund, hence no error returns.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b *model.Booking)
	BookingCancelled(ctx context.Context, b *model.Booking, creditsRefunded int)
}
