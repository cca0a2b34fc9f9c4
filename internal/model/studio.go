package model

import "time"

// Booking models supported by a studio.  Under SELF_SERVICE clients book
// directly; under TRAINER_LED every booking starts as a booking request
// that the trainer accepts or declines.
const (
	BookingModelSelfService = "SELF_SERVICE"
	BookingModelTrainerLed  = "TRAINER_LED"
)

// TimeSlot is one open interval inside a day, encoded as "HH:MM" strings
// with minute granularity.  End is exclusive.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule configures one weekday.  A disabled day rejects every
// booking regardless of slots.
type DaySchedule struct {
	Enabled bool       `json:"enabled"`
	Slots   []TimeSlot `json:"slots,omitempty"`
}

// WeeklySchedule maps lowercase weekday names ("monday" .. "sunday") to
// their configuration.  An empty or nil schedule means the studio has not
// configured opening hours and every time is accepted.
type WeeklySchedule map[string]DaySchedule

// RefundTier is one step of a tiered cancellation policy: cancelling at
// least HoursBefore hours before the session refunds RefundPercent of the
// credits originally consumed.
type RefundTier struct {
	HoursBefore   int `json:"hours_before_session"`
	RefundPercent int `json:"refund_percent"`
}

// CancellationPolicy governs refunds on cancellation.  Cancelling at or
// before WindowHours refunds everything.  Inside the window the tiers
// decide; with no tiers configured the cancellation is rejected outright.
type CancellationPolicy struct {
	WindowHours int          `json:"window_hours"`
	Tiers       []RefundTier `json:"tiers,omitempty"`
}

// Studio is the tenant.  It owns trainers, services and the policies that
// the booking core enforces.  OpeningHours and CancelPolicy are stored as
// JSON columns and parsed by the repository.
type Studio struct {
	ID           uint64             // studios.id
	OwnerID      uint64             // studios.owner_id
	Name         string             // studios.name
	BookingModel string             // studios.booking_model
	OpeningHours WeeklySchedule     // studios.opening_hours (JSON)
	CancelPolicy CancellationPolicy // studios.cancellation_policy (JSON)
	NoShowAction string             // studios.no_show_action (configured, not enforced by a sweep)
	CreatedAt    time.Time          // studios.created_at
	UpdatedAt    time.Time          // studios.updated_at
}
