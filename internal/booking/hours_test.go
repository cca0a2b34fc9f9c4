package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/model"
)

// 2025-06-02 is a Monday.
func monday(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.UTC)
}

func weekdaySchedule() model.WeeklySchedule {
	return model.WeeklySchedule{
		"monday": {Enabled: true, Slots: []model.TimeSlot{
			{Start: "09:00", End: "12:00"},
			{Start: "14:00", End: "18:00"},
		}},
		"sunday": {Enabled: false},
	}
}

func TestCheckOpeningHoursEmptyScheduleAlwaysPasses(t *testing.T) {
	assert.NoError(t, CheckOpeningHours(nil, monday(3, 0), 600))
	assert.NoError(t, CheckOpeningHours(model.WeeklySchedule{}, monday(3, 0), 600))
}

func TestCheckOpeningHoursFitsInsideSlot(t *testing.T) {
	s := weekdaySchedule()
	assert.NoError(t, CheckOpeningHours(s, monday(9, 0), 60))
	assert.NoError(t, CheckOpeningHours(s, monday(11, 0), 60)) // ends exactly at close
	assert.NoError(t, CheckOpeningHours(s, monday(14, 30), 90))
}

func TestCheckOpeningHoursRejectsOutsideSlots(t *testing.T) {
	s := weekdaySchedule()

	err := CheckOpeningHours(s, monday(8, 30), 60) // starts before open
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "outside studio operating hours")

	assert.Error(t, CheckOpeningHours(s, monday(11, 30), 60)) // spills past close
	assert.Error(t, CheckOpeningHours(s, monday(12, 30), 30)) // in the gap
	assert.Error(t, CheckOpeningHours(s, monday(11, 0), 240)) // spans the gap
}

func TestCheckOpeningHoursDisabledAndMissingDays(t *testing.T) {
	s := weekdaySchedule()

	sunday := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	err := CheckOpeningHours(s, sunday, 60)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "closed on Sunday")

	// Tuesday is absent from the schedule entirely.
	tuesday := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	assert.Error(t, CheckOpeningHours(s, tuesday, 60))
}

func TestCheckOpeningHoursIgnoresMalformedSlots(t *testing.T) {
	s := model.WeeklySchedule{
		"monday": {Enabled: true, Slots: []model.TimeSlot{
			{Start: "garbage", End: "12:00"},
			{Start: "13:00", End: "17:00"},
		}},
	}
	assert.NoError(t, CheckOpeningHours(s, monday(13, 0), 60))
	assert.Error(t, CheckOpeningHours(s, monday(10, 0), 60))
}
