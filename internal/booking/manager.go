package booking

import (
	"context"
	"time"

	"github.com/iliyamo/studio-booking/internal/credit"
	"github.com/iliyamo/studio-booking/internal/model"
)

// Default lifetimes for provisional state.  A soft hold stops blocking
// other bookings after HoldTTL; a trainer-led request waits RequestTTL
// for the trainer before expiring.
const (
	DefaultHoldTTL    = 15 * time.Minute
	DefaultRequestTTL = 48 * time.Hour
)

// Deps wires the lifecycle manager.  Notify may be nil when no message
// broker is configured; Now defaults to time.Now.
type Deps struct {
	Clients  ClientDirectory
	Profiles ProfileDirectory
	Studios  StudioStore
	Services ServiceStore
	Trainers TrainerStore
	Bookings BookingStore
	Credits  CreditStore
	Requests RequestStore
	Notify   Notifier

	HoldTTL    time.Duration
	RequestTTL time.Duration
	Now        func() time.Time
}

// Manager orchestrates booking creation and cancellation: it runs the
// scope resolver, the opening-hours validator, the conflict detector and
// the credit checks in order, then hands the atomic write to the booking
// store.  Every gate is hard: the first failure aborts with no side
// effects (the scope back-fill is the one exception).
type Manager struct {
	deps     Deps
	resolver *ScopeResolver
	detector *Detector
}

func NewManager(deps Deps) *Manager {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.HoldTTL <= 0 {
		deps.HoldTTL = DefaultHoldTTL
	}
	if deps.RequestTTL <= 0 {
		deps.RequestTTL = DefaultRequestTTL
	}
	return &Manager{
		deps:     deps,
		resolver: &ScopeResolver{Clients: deps.Clients, Profiles: deps.Profiles, Studios: deps.Studios},
		detector: NewDetector(deps.Bookings, deps.Now),
	}
}

// CreateInput carries the client-supplied parameters of a booking.
type CreateInput struct {
	ServiceID   uint64
	TrainerID   uint64
	ScheduledAt time.Time
}

// CreditSummary is the client-visible credit state: current total, a
// display health bucket and the soonest lot expiry (nil when the balance
// comes from the legacy counter or no lot is eligible).
type CreditSummary struct {
	Total         int
	Status        string
	NearestExpiry *time.Time
}

// Create books a session directly: all gates, then one atomic
// insert+debit.  Returns the created booking and the client's remaining
// credit total.
func (m *Manager) Create(ctx context.Context, userID uint64, in CreateInput) (*model.Booking, int, error) {
	client, svc, studioID, err := m.prepare(ctx, userID, in, true)
	if err != nil {
		return nil, 0, err
	}
	b := m.newBooking(client, svc, studioID, in, model.StatusConfirmed)
	remaining, err := m.deps.Bookings.CreateWithDebit(ctx, b)
	if err != nil {
		return nil, 0, err
	}
	if m.deps.Notify != nil {
		m.deps.Notify.BookingConfirmed(ctx, b)
	}
	return b, remaining, nil
}

// Hold reserves the slot provisionally without consuming credits.  The
// hold carries an expiry after which it no longer blocks the trainer.
func (m *Manager) Hold(ctx context.Context, userID uint64, in CreateInput) (*model.Booking, error) {
	client, svc, studioID, err := m.prepare(ctx, userID, in, true)
	if err != nil {
		return nil, err
	}
	b := m.newBooking(client, svc, studioID, in, model.StatusSoftHold)
	exp := m.deps.Now().UTC().Add(m.deps.HoldTTL)
	b.HoldExpiresAt = &exp
	if err := m.deps.Bookings.CreateHold(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConfirmHold promotes a soft hold to a confirmed booking, debiting its
// credits.  Duplicate confirms are tolerated without a second debit.
func (m *Manager) ConfirmHold(ctx context.Context, userID, bookingID uint64) (*model.Booking, int, error) {
	client, err := m.deps.Clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, 0, asNotFound(err)
	}
	b, remaining, err := m.deps.Bookings.ConfirmHold(ctx, bookingID, client.ID)
	if err != nil {
		return nil, 0, asNotFound(err)
	}
	if m.deps.Notify != nil {
		m.deps.Notify.BookingConfirmed(ctx, b)
	}
	return b, remaining, nil
}

// Cancel cancels a booking owned by the caller and refunds credits per
// the governing studio's cancellation policy.  Cancelling an already
// cancelled booking succeeds with zero refund; the usage ledger guards
// against double refunds regardless.
func (m *Manager) Cancel(ctx context.Context, userID, bookingID uint64) (int, error) {
	client, err := m.deps.Clients.GetByUserID(ctx, userID)
	if err != nil {
		return 0, asNotFound(err)
	}
	b, err := m.deps.Bookings.GetForClient(ctx, bookingID, client.ID)
	if err != nil {
		return 0, asNotFound(err)
	}
	if b.Status == model.StatusCancelled {
		return 0, nil
	}
	if !model.CanTransition(b.Status, model.StatusCancelled) {
		return 0, ErrConflict
	}

	var policy model.CancellationPolicy
	if b.StudioID != nil {
		studio, err := m.deps.Studios.GetByID(ctx, *b.StudioID)
		if err != nil && !isNotFound(err) {
			return 0, err
		}
		if studio != nil {
			policy = studio.CancelPolicy
		}
	}
	pct, err := RefundPercent(policy, HoursUntil(m.deps.Now().UTC(), b.ScheduledAt))
	if err != nil {
		return 0, err
	}

	refunded, err := m.deps.Bookings.CancelWithRefund(ctx, b.ID, client.ID, pct)
	if err != nil {
		return 0, asNotFound(err)
	}
	b.Status = model.StatusCancelled
	if m.deps.Notify != nil {
		m.deps.Notify.BookingCancelled(ctx, b, refunded)
	}
	return refunded, nil
}

// Credits reports the caller's spendable balance.  Clients without any
// credit lots fall back to the simple non-expiring counter.
func (m *Manager) Credits(ctx context.Context, userID uint64) (*CreditSummary, error) {
	client, err := m.deps.Clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, asNotFound(err)
	}
	total, nearest, err := m.balance(ctx, client)
	if err != nil {
		return nil, err
	}
	return &CreditSummary{Total: total, Status: credit.Health(total), NearestExpiry: nearest}, nil
}

// RequestInput carries the parameters of a trainer-led booking request.
type RequestInput struct {
	ServiceID uint64
	TrainerID uint64
	Windows   []model.CandidateWindow
}

// Request files a trainer-led booking request with client-proposed
// candidate windows.  The same scope gates apply as for a direct
// booking; the credit and conflict checks wait until acceptance.
func (m *Manager) Request(ctx context.Context, userID uint64, in RequestInput) (*model.BookingRequest, error) {
	if len(in.Windows) == 0 {
		return nil, &ValidationError{Reason: "at least one candidate window is required"}
	}
	now := m.deps.Now().UTC()
	for _, w := range in.Windows {
		if !w.StartsAt.After(now) {
			return nil, &ValidationError{Reason: "candidate windows must be in the future"}
		}
	}
	client, err := m.deps.Clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, asNotFound(err)
	}
	scope, err := m.resolver.Resolve(ctx, client)
	if err != nil {
		return nil, err
	}
	svc, err := m.lookupService(ctx, in.ServiceID, scope)
	if err != nil {
		return nil, err
	}
	if ok, err := m.deps.Trainers.InScope(ctx, in.TrainerID, scope); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	req := &model.BookingRequest{
		ClientID:  client.ID,
		TrainerID: in.TrainerID,
		ServiceID: svc.ID,
		StudioID:  governingStudio(svc, client),
		Windows:   in.Windows,
		Status:    model.RequestPending,
		ExpiresAt: now.Add(m.deps.RequestTTL),
	}
	if err := m.deps.Requests.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// AcceptRequest lets a trainer turn a pending request into a confirmed
// booking at one of the proposed windows.  The full gate pipeline runs
// again at acceptance time: the slot may have been taken and the credits
// spent since the request was filed.
func (m *Manager) AcceptRequest(ctx context.Context, trainerUserID, requestID uint64, windowIndex int) (*model.Booking, error) {
	req, err := m.deps.Requests.GetForTrainerUser(ctx, requestID, trainerUserID)
	if err != nil {
		return nil, asNotFound(err)
	}
	now := m.deps.Now().UTC()
	if req.Status != model.RequestPending {
		return nil, ErrConflict
	}
	if !req.ExpiresAt.After(now) {
		return nil, &ValidationError{Reason: "booking request has expired"}
	}
	if windowIndex < 0 || windowIndex >= len(req.Windows) {
		return nil, &ValidationError{Reason: "invalid candidate window"}
	}
	start := req.Windows[windowIndex].StartsAt.UTC()

	client, err := m.deps.Clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, asNotFound(err)
	}
	svc, err := m.deps.Services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if !svc.Active {
		return nil, ErrNotFound
	}
	if err := m.checkBalance(ctx, client, svc.CreditsRequired); err != nil {
		return nil, err
	}
	if req.StudioID != nil {
		studio, err := m.deps.Studios.GetByID(ctx, *req.StudioID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if studio != nil {
			if err := CheckOpeningHours(studio.OpeningHours, start, svc.DurationMin); err != nil {
				return nil, err
			}
		}
	}
	if conflict, err := m.detector.HasConflict(ctx, req.TrainerID, start, svc.DurationMin); err != nil {
		return nil, err
	} else if conflict {
		return nil, ErrConflict
	}

	b := &model.Booking{
		ClientID:    client.ID,
		TrainerID:   req.TrainerID,
		ServiceID:   svc.ID,
		StudioID:    req.StudioID,
		ScheduledAt: start,
		DurationMin: svc.DurationMin,
		CreditsUsed: svc.CreditsRequired,
		Status:      model.StatusConfirmed,
	}
	if _, err := m.deps.Bookings.CreateWithDebit(ctx, b); err != nil {
		return nil, err
	}
	if err := m.deps.Requests.MarkAccepted(ctx, req.ID, b.ID); err != nil {
		return nil, err
	}
	if m.deps.Notify != nil {
		m.deps.Notify.BookingConfirmed(ctx, b)
	}
	return b, nil
}

// DeclineRequest lets a trainer decline a pending request.
func (m *Manager) DeclineRequest(ctx context.Context, trainerUserID, requestID uint64) error {
	req, err := m.deps.Requests.GetForTrainerUser(ctx, requestID, trainerUserID)
	if err != nil {
		return asNotFound(err)
	}
	if req.Status != model.RequestPending {
		return ErrConflict
	}
	return m.deps.Requests.MarkDeclined(ctx, req.ID)
}

// prepare runs the creation gates shared by Create and Hold, in order:
// client lookup and self-booking flag, scope resolution and booking-model
// check, service and trainer scope validation, read-only balance check,
// opening hours and conflict detection.
func (m *Manager) prepare(ctx context.Context, userID uint64, in CreateInput, selfService bool) (*model.Client, *model.Service, *uint64, error) {
	now := m.deps.Now().UTC()
	if !in.ScheduledAt.After(now) {
		return nil, nil, nil, &ValidationError{Reason: "scheduled time must be in the future"}
	}

	client, err := m.deps.Clients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, nil, nil, asNotFound(err)
	}
	if selfService && !client.AllowSelfBook {
		return nil, nil, nil, ErrForbidden
	}

	scope, err := m.resolver.Resolve(ctx, client)
	if err != nil {
		return nil, nil, nil, err
	}

	var studio *model.Studio
	if client.StudioID != nil {
		studio, err = m.deps.Studios.GetByID(ctx, *client.StudioID)
		if err != nil && !isNotFound(err) {
			return nil, nil, nil, err
		}
	}
	if selfService && studio != nil && studio.BookingModel == model.BookingModelTrainerLed {
		return nil, nil, nil, ErrForbidden
	}

	svc, err := m.lookupService(ctx, in.ServiceID, scope)
	if err != nil {
		return nil, nil, nil, err
	}
	if ok, err := m.deps.Trainers.InScope(ctx, in.TrainerID, scope); err != nil {
		return nil, nil, nil, err
	} else if !ok {
		return nil, nil, nil, ErrNotFound
	}

	// Read-only here: the actual debit happens inside the insert
	// transaction so a failed insert never consumes credits.
	if err := m.checkBalance(ctx, client, svc.CreditsRequired); err != nil {
		return nil, nil, nil, err
	}

	if studio != nil {
		if err := CheckOpeningHours(studio.OpeningHours, in.ScheduledAt, svc.DurationMin); err != nil {
			return nil, nil, nil, err
		}
	}
	if conflict, err := m.detector.HasConflict(ctx, in.TrainerID, in.ScheduledAt, svc.DurationMin); err != nil {
		return nil, nil, nil, err
	} else if conflict {
		return nil, nil, nil, ErrConflict
	}
	return client, svc, governingStudio(svc, client), nil
}

// lookupService loads a service and verifies it is active, public and
// inside the resolved scope.  Anything else reads as not found so
// cross-tenant offerings stay invisible.
func (m *Manager) lookupService(ctx context.Context, serviceID uint64, scope []uint64) (*model.Service, error) {
	svc, err := m.deps.Services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, asNotFound(err)
	}
	if !svc.Active || !svc.Public {
		return nil, ErrNotFound
	}
	in := func(id *uint64) bool {
		if id == nil {
			return false
		}
		for _, s := range scope {
			if s == *id {
				return true
			}
		}
		return false
	}
	if !in(svc.StudioID) && !in(svc.CreatedBy) {
		return nil, ErrNotFound
	}
	return svc, nil
}

// balance returns the client's spendable total and nearest expiry,
// falling back to the legacy counter when no lots exist at all.
func (m *Manager) balance(ctx context.Context, client *model.Client) (int, *time.Time, error) {
	lots, err := m.deps.Credits.Lots(ctx, client.ID)
	if err != nil {
		return 0, nil, err
	}
	if len(lots) == 0 {
		return client.Credits, nil, nil
	}
	views := lotViews(lots)
	now := m.deps.Now().UTC()
	return credit.Available(views, now), credit.NearestExpiry(views, now), nil
}

func (m *Manager) checkBalance(ctx context.Context, client *model.Client, required int) error {
	total, _, err := m.balance(ctx, client)
	if err != nil {
		return err
	}
	if total < required {
		return &credit.InsufficientCreditsError{Required: required, Available: total}
	}
	return nil
}

func (m *Manager) newBooking(client *model.Client, svc *model.Service, studioID *uint64, in CreateInput, status string) *model.Booking {
	return &model.Booking{
		ClientID:    client.ID,
		TrainerID:   in.TrainerID,
		ServiceID:   svc.ID,
		StudioID:    studioID,
		ScheduledAt: in.ScheduledAt.UTC(),
		DurationMin: svc.DurationMin,
		CreditsUsed: svc.CreditsRequired,
		Status:      status,
	}
}

// governingStudio picks the tenant a booking is recorded under: the
// service's studio when it has one, otherwise the client's.
func governingStudio(svc *model.Service, client *model.Client) *uint64 {
	if svc.StudioID != nil {
		return svc.StudioID
	}
	return client.StudioID
}

// lotViews projects ACTIVE lots for the credit planner.  Expiry
// filtering happens inside the credit package against the clock.
func lotViews(lots []model.CreditLot) []credit.LotView {
	views := make([]credit.LotView, 0, len(lots))
	for _, l := range lots {
		if l.Status != model.LotActive {
			continue
		}
		views = append(views, credit.LotView{ID: l.ID, Remaining: l.SessionsRemaining, ExpiresAt: l.ExpiresAt})
	}
	return views
}

// asNotFound maps a driver-level missing row onto the domain sentinel
// and passes every other error through untouched.
func asNotFound(err error) error {
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}
