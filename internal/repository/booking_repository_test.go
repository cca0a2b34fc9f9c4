package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/booking"
)

func TestLockConflict(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock; try restarting transaction"}
	timeout := &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded; try restarting transaction"}

	assert.True(t, lockConflict(deadlock))
	assert.True(t, lockConflict(timeout))
	assert.True(t, lockConflict(fmt.Errorf("insert booking: %w", deadlock)))

	assert.False(t, lockConflict(nil))
	assert.False(t, lockConflict(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, lockConflict(fmt.Errorf("driver: bad connection")))
}

func TestRetryOnLockConflictRerunsOnce(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

	// Two inserts race for an empty window; the aborted one reruns and
	// its re-check sees the winner's committed row.
	calls := 0
	err := retryOnLockConflict(func() error {
		calls++
		if calls == 1 {
			return deadlock
		}
		return booking.ErrConflict
	})
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, booking.ErrConflict)
}

func TestRetryOnLockConflictPassesOtherErrorsThrough(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	calls := 0
	err := retryOnLockConflict(func() error {
		calls++
		return boom
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)

	calls = 0
	require.NoError(t, retryOnLockConflict(func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestRetryOnLockConflictGivesUpAfterSecondAbort(t *testing.T) {
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	calls := 0
	err := retryOnLockConflict(func() error {
		calls++
		return deadlock
	})
	assert.Equal(t, 2, calls, "one retry, never a loop")
	assert.ErrorIs(t, err, deadlock)
}

func TestRepoClockInjection(t *testing.T) {
	fixed := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }

	credits := NewCreditRepo(nil, clock)
	assert.Equal(t, fixed, credits.now())

	bookings := NewBookingRepo(nil, credits, clock)
	assert.Equal(t, fixed, bookings.now())

	tokens := NewTokenRepo(nil, clock)
	assert.Equal(t, fixed, tokens.now())

	// A nil clock falls back to the wall clock instead of panicking.
	require.NotNil(t, NewCreditRepo(nil, nil).now)
	require.NotNil(t, NewBookingRepo(nil, nil, nil).now)
	require.NotNil(t, NewTokenRepo(nil, nil).now)
}
