package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// CheckOpeningHours reports whether the interval [start, start+duration)
// fits entirely inside one enabled slot of the schedule's day-of-week
// bucket.  An empty or nil schedule always passes (default-open policy
// when unconfigured).  Comparison is at minute granularity with no
// rounding; an interval that merely touches a slot boundary still fits
// because the end is exclusive.
//
// The function is pure: no I/O, no clock, deterministic.
func CheckOpeningHours(schedule model.WeeklySchedule, start time.Time, durationMin int) error {
	if len(schedule) == 0 {
		return nil
	}
	weekday := start.Weekday()
	day, ok := schedule[strings.ToLower(weekday.String())]
	if !ok || !day.Enabled {
		return &ValidationError{Reason: fmt.Sprintf("closed on %s", weekday)}
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := startMin + durationMin
	for _, slot := range day.Slots {
		s, okS := parseClock(slot.Start)
		e, okE := parseClock(slot.End)
		if !okS || !okE {
			continue
		}
		if startMin >= s && endMin <= e {
			return nil
		}
	}
	return &ValidationError{
		Reason: fmt.Sprintf("outside studio operating hours (%s %s)", weekday.String()[:3], formatSlots(day.Slots)),
	}
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(v string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func formatSlots(slots []model.TimeSlot) string {
	if len(slots) == 0 {
		return "no open slots"
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start+"-"+s.End)
	}
	return strings.Join(out, ", ")
}
