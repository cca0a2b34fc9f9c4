package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/studio-booking/internal/model"
)

func TestHoursUntil(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	assert.InDelta(t, 26.0, HoursUntil(now, now.Add(26*time.Hour)), 1e-9)
	assert.InDelta(t, 0.5, HoursUntil(now, now.Add(30*time.Minute)), 1e-9)
	assert.Less(t, HoursUntil(now, now.Add(-time.Hour)), 0.0)
}

func TestMatchRefundTierPicksSmallestCoveringTier(t *testing.T) {
	tiers := []model.RefundTier{
		{HoursBefore: 24, RefundPercent: 100},
		{HoursBefore: 12, RefundPercent: 50},
	}

	// 10h out: both tiers cover, the 12h one is nearest.
	assert.Equal(t, 50, MatchRefundTier(tiers, 10))
	// 13h out: only the 24h tier covers.
	assert.Equal(t, 100, MatchRefundTier(tiers, 13))
	// Exactly at a tier boundary counts as covered by it.
	assert.Equal(t, 50, MatchRefundTier(tiers, 12))
	// Order of declaration does not matter.
	rev := []model.RefundTier{tiers[1], tiers[0]}
	assert.Equal(t, 50, MatchRefundTier(rev, 10))
}

func TestMatchRefundTierNoCoverage(t *testing.T) {
	tiers := []model.RefundTier{{HoursBefore: 2, RefundPercent: 25}}
	// 3h out with only a 2h tier: nothing covers, 0%.
	assert.Equal(t, 0, MatchRefundTier(tiers, 3))
	assert.Equal(t, 0, MatchRefundTier(nil, 3))
}

func TestRefundPercentOutsideWindowIsFull(t *testing.T) {
	p := model.CancellationPolicy{WindowHours: 24}
	got, err := RefundPercent(p, 24)
	assert.NoError(t, err)
	assert.Equal(t, 100, got)

	got, err = RefundPercent(p, 48)
	assert.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestRefundPercentInsideWindowUsesTiers(t *testing.T) {
	p := model.CancellationPolicy{
		WindowHours: 24,
		Tiers: []model.RefundTier{
			{HoursBefore: 12, RefundPercent: 50},
			{HoursBefore: 24, RefundPercent: 100},
		},
	}
	got, err := RefundPercent(p, 10)
	assert.NoError(t, err)
	assert.Equal(t, 50, got)

	got, err = RefundPercent(p, 23)
	assert.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestRefundPercentInsideWindowWithoutTiers(t *testing.T) {
	p := model.CancellationPolicy{WindowHours: 24}
	_, err := RefundPercent(p, 10)
	assert.ErrorIs(t, err, ErrWithinWindowNoPolicy)
}
