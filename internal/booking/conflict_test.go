package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

var baseTime = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func TestOverlapsHalfOpen(t *testing.T) {
	// [10:00, 11:00) vs [11:00, 12:00): touching endpoints do not overlap.
	assert.False(t, Overlaps(baseTime, 60, baseTime.Add(time.Hour), 60))
	assert.False(t, Overlaps(baseTime.Add(time.Hour), 60, baseTime, 60))

	assert.True(t, Overlaps(baseTime, 60, baseTime.Add(30*time.Minute), 60))
	assert.True(t, Overlaps(baseTime, 120, baseTime.Add(30*time.Minute), 30)) // containment
	assert.True(t, Overlaps(baseTime, 60, baseTime, 60))                      // identical
}

type stubSource struct {
	rows []model.Booking
	from time.Time
	to   time.Time
}

func (s *stubSource) ActiveInWindow(_ context.Context, _ uint64, from, to time.Time) ([]model.Booking, error) {
	s.from, s.to = from, to
	return s.rows, nil
}

func TestDetectorFindsOverlap(t *testing.T) {
	src := &stubSource{rows: []model.Booking{
		{ID: 1, Status: model.StatusConfirmed, ScheduledAt: baseTime, DurationMin: 60},
	}}
	d := NewDetector(src, func() time.Time { return baseTime })

	got, err := d.HasConflict(context.Background(), 7, baseTime.Add(30*time.Minute), 60)
	require.NoError(t, err)
	assert.True(t, got)

	// The fetch window reaches ConflictWindow back from the candidate.
	assert.Equal(t, baseTime.Add(30*time.Minute).Add(-ConflictWindow), src.from)
	assert.Equal(t, baseTime.Add(90*time.Minute), src.to)
}

func TestDetectorBackToBackIsFree(t *testing.T) {
	src := &stubSource{rows: []model.Booking{
		{ID: 1, Status: model.StatusConfirmed, ScheduledAt: baseTime, DurationMin: 60},
	}}
	d := NewDetector(src, func() time.Time { return baseTime })

	got, err := d.HasConflict(context.Background(), 7, baseTime.Add(time.Hour), 60)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestDetectorIgnoresExpiredHold(t *testing.T) {
	expired := baseTime.Add(-time.Minute)
	live := baseTime.Add(10 * time.Minute)
	mk := func(exp *time.Time) []model.Booking {
		return []model.Booking{{
			ID: 1, Status: model.StatusSoftHold,
			ScheduledAt: baseTime.Add(time.Hour), DurationMin: 60,
			HoldExpiresAt: exp,
		}}
	}

	d := NewDetector(&stubSource{rows: mk(&expired)}, func() time.Time { return baseTime })
	got, err := d.HasConflict(context.Background(), 7, baseTime.Add(time.Hour), 60)
	require.NoError(t, err)
	assert.False(t, got, "expired hold must not block")

	d = NewDetector(&stubSource{rows: mk(&live)}, func() time.Time { return baseTime })
	got, err = d.HasConflict(context.Background(), 7, baseTime.Add(time.Hour), 60)
	require.NoError(t, err)
	assert.True(t, got, "live hold blocks")
}

func TestDetectorIgnoresTerminalStatuses(t *testing.T) {
	src := &stubSource{rows: []model.Booking{
		{ID: 1, Status: model.StatusCancelled, ScheduledAt: baseTime, DurationMin: 60},
		{ID: 2, Status: model.StatusCompleted, ScheduledAt: baseTime, DurationMin: 60},
	}}
	d := NewDetector(src, func() time.Time { return baseTime })

	got, err := d.HasConflict(context.Background(), 7, baseTime, 60)
	require.NoError(t, err)
	assert.False(t, got)
}
