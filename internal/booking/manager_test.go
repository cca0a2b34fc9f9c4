package booking

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/credit"
	"github.com/iliyamo/studio-booking/internal/model"
)

// testNow is a Monday, 09:00 UTC.
var testNow = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func u64(v uint64) *uint64 { return &v }

// ----- fakes -----

type fakeClients struct {
	byUser  map[uint64]*model.Client
	repairs []uint64
}

func (f *fakeClients) GetByUserID(_ context.Context, userID uint64) (*model.Client, error) {
	c, ok := f.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeClients) GetByID(_ context.Context, id uint64) (*model.Client, error) {
	for _, c := range f.byUser {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeClients) SetStudioID(_ context.Context, clientID, studioID uint64) error {
	f.repairs = append(f.repairs, studioID)
	for _, c := range f.byUser {
		if c.ID == clientID && c.StudioID == nil {
			sid := studioID
			c.StudioID = &sid
		}
	}
	return nil
}

type fakeProfiles struct {
	profiles map[uint64]*model.Profile
	err      error
}

func (f *fakeProfiles) ResolveProfile(_ context.Context, userID uint64) (*model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

type fakeStudios struct{ studios map[uint64]*model.Studio }

func (f *fakeStudios) OwnerID(_ context.Context, id uint64) (uint64, error) {
	s, ok := f.studios[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return s.OwnerID, nil
}

func (f *fakeStudios) GetByID(_ context.Context, id uint64) (*model.Studio, error) {
	s, ok := f.studios[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type fakeServices struct{ services map[uint64]*model.Service }

func (f *fakeServices) GetByID(_ context.Context, id uint64) (*model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type fakeTrainers struct{ scopeKeys map[uint64][]uint64 }

func (f *fakeTrainers) InScope(_ context.Context, trainerID uint64, lookupIDs []uint64) (bool, error) {
	for _, key := range f.scopeKeys[trainerID] {
		for _, id := range lookupIDs {
			if id == key {
				return true, nil
			}
		}
	}
	return false, nil
}

// fakeStore plays both BookingStore and CreditStore, mirroring the real
// repository where bookings and the wallet mutate in one transaction.
type fakeStore struct {
	now      func() time.Time
	lots     []model.CreditLot
	bookings []*model.Booking
	nextID   uint64
	debited  map[uint64]int    // bookingID -> credits taken
	debitLot map[uint64]uint64 // bookingID -> first drawn lot
	refunded map[uint64]bool
}

func (s *fakeStore) Lots(_ context.Context, clientID uint64) ([]model.CreditLot, error) {
	var out []model.CreditLot
	for _, l := range s.lots {
		if l.ClientID == clientID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeStore) views(clientID uint64) []credit.LotView {
	var out []credit.LotView
	for _, l := range s.lots {
		if l.ClientID == clientID && l.Status == model.LotActive {
			out = append(out, credit.LotView{ID: l.ID, Remaining: l.SessionsRemaining, ExpiresAt: l.ExpiresAt})
		}
	}
	return out
}

func (s *fakeStore) balance(clientID uint64) int {
	return credit.Available(s.views(clientID), s.now())
}

func (s *fakeStore) debit(clientID, bookingID uint64, amount int) (int, error) {
	draws, err := credit.PlanDebit(s.views(clientID), amount, s.now())
	if err != nil {
		return 0, err
	}
	for _, d := range draws {
		for i := range s.lots {
			if s.lots[i].ID == d.LotID {
				s.lots[i].SessionsUsed += d.Amount
				s.lots[i].SessionsRemaining -= d.Amount
			}
		}
	}
	s.debited[bookingID] = amount
	s.debitLot[bookingID] = draws[0].LotID
	return s.balance(clientID), nil
}

func (s *fakeStore) ActiveInWindow(_ context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.TrainerID != trainerID {
			continue
		}
		if b.Status != model.StatusConfirmed && b.Status != model.StatusSoftHold {
			continue
		}
		if !b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeStore) insert(b *model.Booking) {
	s.nextID++
	b.ID = s.nextID
	s.bookings = append(s.bookings, b)
}

func (s *fakeStore) CreateWithDebit(_ context.Context, b *model.Booking) (int, error) {
	s.insert(b)
	return s.debit(b.ClientID, b.ID, b.CreditsUsed)
}

func (s *fakeStore) CreateHold(_ context.Context, b *model.Booking) error {
	s.insert(b)
	return nil
}

func (s *fakeStore) find(bookingID, clientID uint64) (*model.Booking, error) {
	for _, b := range s.bookings {
		if b.ID == bookingID && b.ClientID == clientID {
			return b, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) ConfirmHold(_ context.Context, bookingID, clientID uint64) (*model.Booking, int, error) {
	b, err := s.find(bookingID, clientID)
	if err != nil {
		return nil, 0, err
	}
	if b.Status == model.StatusConfirmed {
		return b, s.balance(clientID), nil
	}
	if b.Status != model.StatusSoftHold {
		return nil, 0, ErrConflict
	}
	if b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(s.now()) {
		return nil, 0, &ValidationError{Reason: "hold has expired"}
	}
	remaining, err := s.debit(clientID, b.ID, b.CreditsUsed)
	if err != nil {
		return nil, 0, err
	}
	b.Status = model.StatusConfirmed
	b.HoldExpiresAt = nil
	return b, remaining, nil
}

func (s *fakeStore) GetForClient(_ context.Context, bookingID, clientID uint64) (*model.Booking, error) {
	return s.find(bookingID, clientID)
}

func (s *fakeStore) CancelWithRefund(_ context.Context, bookingID, clientID uint64, refundPercent int) (int, error) {
	b, err := s.find(bookingID, clientID)
	if err != nil {
		return 0, err
	}
	if b.Status == model.StatusCancelled {
		return 0, nil
	}
	if !model.CanTransition(b.Status, model.StatusCancelled) {
		return 0, ErrConflict
	}
	b.Status = model.StatusCancelled
	if refundPercent <= 0 || s.refunded[b.ID] || s.debited[b.ID] == 0 {
		return 0, nil
	}
	amount := credit.RefundAmount(s.debited[b.ID], refundPercent)
	if amount == 0 {
		return 0, nil
	}
	for i := range s.lots {
		if s.lots[i].ID == s.debitLot[b.ID] {
			s.lots[i].SessionsUsed -= amount
			s.lots[i].SessionsRemaining += amount
		}
	}
	s.refunded[b.ID] = true
	return amount, nil
}

type fakeRequests struct {
	reqs         map[uint64]*model.BookingRequest
	trainerUsers map[uint64]uint64 // trainer id -> user id
}

func (f *fakeRequests) Create(_ context.Context, r *model.BookingRequest) error {
	r.ID = uint64(len(f.reqs) + 1)
	f.reqs[r.ID] = r
	return nil
}

func (f *fakeRequests) GetForTrainerUser(_ context.Context, requestID, trainerUserID uint64) (*model.BookingRequest, error) {
	r, ok := f.reqs[requestID]
	if !ok || f.trainerUsers[r.TrainerID] != trainerUserID {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

func (f *fakeRequests) MarkAccepted(_ context.Context, requestID, bookingID uint64) error {
	r := f.reqs[requestID]
	if r.Status != model.RequestPending {
		return ErrConflict
	}
	r.Status = model.RequestAccepted
	r.BookingID = &bookingID
	return nil
}

func (f *fakeRequests) MarkDeclined(_ context.Context, requestID uint64) error {
	r := f.reqs[requestID]
	if r.Status != model.RequestPending {
		return ErrConflict
	}
	r.Status = model.RequestDeclined
	return nil
}

type fakeNotify struct {
	confirmed  int
	cancelled  int
	lastRefund int
}

func (f *fakeNotify) BookingConfirmed(context.Context, *model.Booking) { f.confirmed++ }
func (f *fakeNotify) BookingCancelled(_ context.Context, _ *model.Booking, refunded int) {
	f.cancelled++
	f.lastRefund = refunded
}

// ----- fixture -----

type fixture struct {
	clients  *fakeClients
	profiles *fakeProfiles
	studios  *fakeStudios
	services *fakeServices
	trainers *fakeTrainers
	store    *fakeStore
	requests *fakeRequests
	notify   *fakeNotify
	mgr      *Manager
}

func newFixture() *fixture {
	f := &fixture{
		clients: &fakeClients{byUser: map[uint64]*model.Client{
			1: {ID: 1, UserID: 1, StudioID: u64(10), AllowSelfBook: true},
		}},
		profiles: &fakeProfiles{profiles: map[uint64]*model.Profile{
			100: {UserID: 100, Role: model.RoleOwner, StudioID: u64(10)},
		}},
		studios: &fakeStudios{studios: map[uint64]*model.Studio{
			10: {
				ID: 10, OwnerID: 100, Name: "Iron Loft",
				BookingModel: model.BookingModelSelfService,
				CancelPolicy: model.CancellationPolicy{
					WindowHours: 24,
					Tiers: []model.RefundTier{
						{HoursBefore: 12, RefundPercent: 50},
						{HoursBefore: 24, RefundPercent: 100},
					},
				},
			},
		}},
		services: &fakeServices{services: map[uint64]*model.Service{
			5: {ID: 5, StudioID: u64(10), Name: "Personal Training", DurationMin: 60, CreditsRequired: 2, Active: true, Public: true},
		}},
		trainers: &fakeTrainers{scopeKeys: map[uint64][]uint64{7: {10, 100}}},
		store: &fakeStore{
			now: func() time.Time { return testNow },
			lots: []model.CreditLot{
				{ID: 1, ClientID: 1, SessionsTotal: 3, SessionsRemaining: 3, ExpiresAt: testNow.Add(5 * 24 * time.Hour), Status: model.LotActive},
				{ID: 2, ClientID: 1, SessionsTotal: 2, SessionsRemaining: 2, ExpiresAt: testNow.Add(20 * 24 * time.Hour), Status: model.LotActive},
			},
			debited:  map[uint64]int{},
			debitLot: map[uint64]uint64{},
			refunded: map[uint64]bool{},
		},
		requests: &fakeRequests{reqs: map[uint64]*model.BookingRequest{}, trainerUsers: map[uint64]uint64{7: 50}},
		notify:   &fakeNotify{},
	}
	f.mgr = NewManager(Deps{
		Clients:  f.clients,
		Profiles: f.profiles,
		Studios:  f.studios,
		Services: f.services,
		Trainers: f.trainers,
		Bookings: f.store,
		Credits:  f.store,
		Requests: f.requests,
		Notify:   f.notify,
		Now:      func() time.Time { return testNow },
	})
	return f
}

func (f *fixture) input(offset time.Duration) CreateInput {
	return CreateInput{ServiceID: 5, TrainerID: 7, ScheduledAt: testNow.Add(offset)}
}

// ----- tests -----

func TestCreateBooking(t *testing.T) {
	f := newFixture()

	b, remaining, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, 2, b.CreditsUsed)
	assert.Equal(t, 60, b.DurationMin)
	require.NotNil(t, b.StudioID)
	assert.Equal(t, uint64(10), *b.StudioID)
	assert.Equal(t, 3, remaining)

	// FIFO: the nearest-expiry lot drained first.
	assert.Equal(t, 1, f.store.lots[0].SessionsRemaining)
	assert.Equal(t, 2, f.store.lots[1].SessionsRemaining)
	assert.Equal(t, 1, f.notify.confirmed)
}

func TestCreateRequiresSelfBookPermission(t *testing.T) {
	f := newFixture()
	f.clients.byUser[1].AllowSelfBook = false

	_, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRejectsTrainerLedStudio(t *testing.T) {
	f := newFixture()
	f.studios.studios[10].BookingModel = model.BookingModelTrainerLed

	_, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRejectsPastStart(t *testing.T) {
	f := newFixture()

	var verr *ValidationError
	_, _, err := f.mgr.Create(context.Background(), 1, f.input(0))
	require.ErrorAs(t, err, &verr)
}

func TestCreateInsufficientCredits(t *testing.T) {
	f := newFixture()
	f.services.services[5].CreditsRequired = 9

	_, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	var insuff *credit.InsufficientCreditsError
	require.ErrorAs(t, err, &insuff)
	assert.Equal(t, 9, insuff.Required)
	assert.Equal(t, 5, insuff.Available)
	// Nothing was written.
	assert.Empty(t, f.store.bookings)
	assert.Equal(t, 5, f.store.balance(1))
}

func TestCreateDetectsConflict(t *testing.T) {
	f := newFixture()
	start := testNow.Add(48 * time.Hour)
	f.store.bookings = append(f.store.bookings, &model.Booking{
		ID: 99, ClientID: 8, TrainerID: 7, Status: model.StatusConfirmed,
		ScheduledAt: start.Add(-30 * time.Minute), DurationMin: 60,
	})
	f.store.nextID = 99

	_, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateServiceOutOfScope(t *testing.T) {
	f := newFixture()
	f.services.services[5].StudioID = u64(99)

	_, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateHonorsOpeningHours(t *testing.T) {
	f := newFixture()
	f.studios.studios[10].OpeningHours = model.WeeklySchedule{
		"monday": {Enabled: true, Slots: []model.TimeSlot{{Start: "09:00", End: "12:00"}}},
	}

	// Next Monday 13:00 is outside the 09:00-12:00 slot.
	var verr *ValidationError
	_, _, err := f.mgr.Create(context.Background(), 1, f.input(7*24*time.Hour+4*time.Hour))
	require.ErrorAs(t, err, &verr)

	// Next Monday 10:00 fits.
	_, _, err = f.mgr.Create(context.Background(), 1, f.input(7*24*time.Hour+time.Hour))
	assert.NoError(t, err)
}

func TestCancelFullRefundOutsideWindow(t *testing.T) {
	f := newFixture()
	b, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 3, f.store.balance(1))

	refunded, err := f.mgr.Cancel(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, refunded)
	assert.Equal(t, 5, f.store.balance(1), "round trip restores the balance")
	assert.Equal(t, model.StatusCancelled, b.Status)
	assert.Equal(t, 1, f.notify.cancelled)
	assert.Equal(t, 2, f.notify.lastRefund)
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture()
	b, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)

	refunded, err := f.mgr.Cancel(context.Background(), 1, b.ID)
	require.NoError(t, err)
	require.Equal(t, 2, refunded)

	refunded, err = f.mgr.Cancel(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refunded, "second cancel refunds nothing")
	assert.Equal(t, 5, f.store.balance(1))
}

func TestCancelTieredRefundInsideWindow(t *testing.T) {
	f := newFixture()
	// 10 hours out: inside the 24h window, covered by the 12h/50% tier.
	b, _, err := f.mgr.Create(context.Background(), 1, f.input(10*time.Hour))
	require.NoError(t, err)

	refunded, err := f.mgr.Cancel(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refunded) // round(2 * 50%)
	assert.Equal(t, 4, f.store.balance(1))
}

func TestCancelCompletedRejected(t *testing.T) {
	f := newFixture()
	b, _, err := f.mgr.Create(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)
	b.Status = model.StatusCompleted

	_, err = f.mgr.Cancel(context.Background(), 1, b.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestHoldThenConfirm(t *testing.T) {
	f := newFixture()

	b, err := f.mgr.Hold(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusSoftHold, b.Status)
	require.NotNil(t, b.HoldExpiresAt)
	assert.Equal(t, testNow.Add(DefaultHoldTTL), *b.HoldExpiresAt)
	assert.Equal(t, 5, f.store.balance(1), "hold consumes nothing")

	confirmed, remaining, err := f.mgr.ConfirmHold(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, confirmed.Status)
	assert.Equal(t, 3, remaining)

	// Duplicate confirm does not debit again.
	_, remaining, err = f.mgr.ConfirmHold(context.Background(), 1, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestConfirmExpiredHold(t *testing.T) {
	f := newFixture()
	b, err := f.mgr.Hold(context.Background(), 1, f.input(48*time.Hour))
	require.NoError(t, err)
	expired := testNow.Add(-time.Minute)
	b.HoldExpiresAt = &expired

	var verr *ValidationError
	_, _, err = f.mgr.ConfirmHold(context.Background(), 1, b.ID)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 5, f.store.balance(1))
}

func TestCreditsSummary(t *testing.T) {
	f := newFixture()

	sum, err := f.mgr.Credits(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, credit.HealthMedium, sum.Status)
	require.NotNil(t, sum.NearestExpiry)
	assert.Equal(t, testNow.Add(5*24*time.Hour), *sum.NearestExpiry)
}

func TestCreditsLegacyCounterFallback(t *testing.T) {
	f := newFixture()
	f.store.lots = nil
	f.clients.byUser[1].Credits = 7

	sum, err := f.mgr.Credits(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Total)
	assert.Equal(t, credit.HealthGood, sum.Status)
	assert.Nil(t, sum.NearestExpiry)
}

func TestRequestLifecycle(t *testing.T) {
	f := newFixture()
	in := RequestInput{ServiceID: 5, TrainerID: 7, Windows: []model.CandidateWindow{
		{StartsAt: testNow.Add(48 * time.Hour)},
		{StartsAt: testNow.Add(72 * time.Hour)},
	}}

	req, err := f.mgr.Request(context.Background(), 1, in)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, req.Status)
	assert.Equal(t, testNow.Add(DefaultRequestTTL), req.ExpiresAt)

	b, err := f.mgr.AcceptRequest(context.Background(), 50, req.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(72*time.Hour), b.ScheduledAt)
	assert.Equal(t, model.RequestAccepted, req.Status)
	require.NotNil(t, req.BookingID)
	assert.Equal(t, b.ID, *req.BookingID)
	assert.Equal(t, 3, f.store.balance(1), "credits debit at acceptance")

	// The request is settled: neither accept nor decline may run again.
	_, err = f.mgr.AcceptRequest(context.Background(), 50, req.ID, 0)
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, f.mgr.DeclineRequest(context.Background(), 50, req.ID), ErrConflict)
}

func TestRequestValidatesWindows(t *testing.T) {
	f := newFixture()

	var verr *ValidationError
	_, err := f.mgr.Request(context.Background(), 1, RequestInput{ServiceID: 5, TrainerID: 7})
	require.ErrorAs(t, err, &verr)

	_, err = f.mgr.Request(context.Background(), 1, RequestInput{
		ServiceID: 5, TrainerID: 7,
		Windows: []model.CandidateWindow{{StartsAt: testNow.Add(-time.Hour)}},
	})
	require.ErrorAs(t, err, &verr)
}

func TestAcceptRequestForeignTrainer(t *testing.T) {
	f := newFixture()
	req, err := f.mgr.Request(context.Background(), 1, RequestInput{
		ServiceID: 5, TrainerID: 7,
		Windows: []model.CandidateWindow{{StartsAt: testNow.Add(48 * time.Hour)}},
	})
	require.NoError(t, err)

	// User 51 is not the account behind trainer 7.
	_, err = f.mgr.AcceptRequest(context.Background(), 51, req.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeclineRequest(t *testing.T) {
	f := newFixture()
	req, err := f.mgr.Request(context.Background(), 1, RequestInput{
		ServiceID: 5, TrainerID: 7,
		Windows: []model.CandidateWindow{{StartsAt: testNow.Add(48 * time.Hour)}},
	})
	require.NoError(t, err)

	require.NoError(t, f.mgr.DeclineRequest(context.Background(), 50, req.ID))
	assert.Equal(t, model.RequestDeclined, req.Status)
	assert.Equal(t, 5, f.store.balance(1))
}
