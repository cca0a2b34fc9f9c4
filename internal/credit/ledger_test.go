package credit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func days(n int) time.Time { return now.Add(time.Duration(n) * 24 * time.Hour) }

func TestPlanDebitDrainsNearestExpiryFirst(t *testing.T) {
	lots := []LotView{
		{ID: 2, Remaining: 2, ExpiresAt: days(20)},
		{ID: 1, Remaining: 3, ExpiresAt: days(5)},
	}

	draws, err := PlanDebit(lots, 2, now)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, uint64(1), draws[0].LotID)
	assert.Equal(t, 2, draws[0].Amount)
}

func TestPlanDebitSpansLots(t *testing.T) {
	lots := []LotView{
		{ID: 1, Remaining: 3, ExpiresAt: days(5)},
		{ID: 2, Remaining: 2, ExpiresAt: days(20)},
	}

	draws, err := PlanDebit(lots, 4, now)
	require.NoError(t, err)
	require.Len(t, draws, 2)
	assert.Equal(t, Draw{LotID: 1, Amount: 3}, draws[0])
	assert.Equal(t, Draw{LotID: 2, Amount: 1}, draws[1])
}

func TestPlanDebitSkipsExpiredAndEmptyLots(t *testing.T) {
	lots := []LotView{
		{ID: 1, Remaining: 5, ExpiresAt: days(-1)}, // expired
		{ID: 2, Remaining: 0, ExpiresAt: days(10)}, // drained
		{ID: 3, Remaining: 1, ExpiresAt: days(10)},
	}

	draws, err := PlanDebit(lots, 1, now)
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, uint64(3), draws[0].LotID)
}

func TestPlanDebitAllOrNothing(t *testing.T) {
	lots := []LotView{
		{ID: 1, Remaining: 1, ExpiresAt: days(5)},
		{ID: 2, Remaining: 1, ExpiresAt: days(20)},
	}

	draws, err := PlanDebit(lots, 3, now)
	assert.Nil(t, draws)

	var insuff *InsufficientCreditsError
	require.ErrorAs(t, err, &insuff)
	assert.Equal(t, 3, insuff.Required)
	assert.Equal(t, 2, insuff.Available)
	assert.True(t, errors.Is(err, ErrInsufficientCredits))
}

func TestPlanDebitExactBoundaryExpiry(t *testing.T) {
	// A lot expiring exactly now is no longer eligible.
	lots := []LotView{{ID: 1, Remaining: 5, ExpiresAt: now}}

	_, err := PlanDebit(lots, 1, now)
	assert.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestAvailableAndNearestExpiry(t *testing.T) {
	lots := []LotView{
		{ID: 1, Remaining: 3, ExpiresAt: days(5)},
		{ID: 2, Remaining: 2, ExpiresAt: days(20)},
		{ID: 3, Remaining: 9, ExpiresAt: days(-2)},
	}

	assert.Equal(t, 5, Available(lots, now))

	nearest := NearestExpiry(lots, now)
	require.NotNil(t, nearest)
	assert.Equal(t, days(5), *nearest)

	assert.Nil(t, NearestExpiry(nil, now))
}

func TestRefundAmountRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 1, RefundAmount(1, 100))
	assert.Equal(t, 1, RefundAmount(1, 50))  // 0.5 rounds up
	assert.Equal(t, 0, RefundAmount(1, 49))  // 0.49 rounds down
	assert.Equal(t, 2, RefundAmount(3, 50))  // 1.5 rounds up
	assert.Equal(t, 1, RefundAmount(4, 25))  // exact
	assert.Equal(t, 0, RefundAmount(0, 100)) // nothing debited
	assert.Equal(t, 0, RefundAmount(5, 0))   // no refund tier
	assert.Equal(t, 0, RefundAmount(-2, 50))
}

func TestHealthBuckets(t *testing.T) {
	assert.Equal(t, HealthNone, Health(0))
	assert.Equal(t, HealthLow, Health(1))
	assert.Equal(t, HealthLow, Health(2))
	assert.Equal(t, HealthMedium, Health(3))
	assert.Equal(t, HealthMedium, Health(5))
	assert.Equal(t, HealthGood, Health(6))
}
