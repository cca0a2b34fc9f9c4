// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names shared by the publisher and the consumer.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published when a session is booked or a hold
// is confirmed.  It carries enough information for downstream consumers
// to log or notify without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	ClientID    uint64 `json:"client_id"`
	TrainerID   uint64 `json:"trainer_id"`
	ServiceID   uint64 `json:"service_id"`
	StudioID    uint64 `json:"studio_id,omitempty"`
	ScheduledAt string `json:"scheduled_at"`
	DurationMin int    `json:"duration_min"`
	CreditsUsed int    `json:"credits_used"`
	ConfirmedAt string `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a client cancels a session.
type BookingCancelledEvent struct {
	BookingID       uint64 `json:"booking_id"`
	ClientID        uint64 `json:"client_id"`
	TrainerID       uint64 `json:"trainer_id"`
	ScheduledAt     string `json:"scheduled_at"`
	CreditsRefunded int    `json:"credits_refunded"`
	CancelledAt     string `json:"cancelled_at"`
}
