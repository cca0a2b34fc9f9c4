package model

import "time"

// Booking request statuses.  PENDING requests wait for the trainer;
// ACCEPTED requests have produced a booking; DECLINED and EXPIRED are
// terminal without one.
const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestDeclined = "DECLINED"
	RequestExpired  = "EXPIRED"
)

// CandidateWindow is one client-proposed start time for a requested
// session.  The duration comes from the requested service.
type CandidateWindow struct {
	StartsAt time.Time `json:"starts_at"`
}

// BookingRequest is the trainer-led booking variant, stored in the
// `booking_requests` table: the client proposes candidate windows and the
// trainer accepts one (creating a Booking) or declines.  Requests expire
// on their own schedule and expired ones are excluded from listings.
type BookingRequest struct {
	ID        uint64            // booking_requests.id
	ClientID  uint64            // booking_requests.client_id
	TrainerID uint64            // booking_requests.trainer_id
	ServiceID uint64            // booking_requests.service_id
	StudioID  *uint64           // booking_requests.studio_id (nullable)
	Windows   []CandidateWindow // booking_requests.windows (JSON)
	Status    string            // booking_requests.status
	BookingID *uint64           // booking_requests.booking_id (set when accepted)
	ExpiresAt time.Time         // booking_requests.expires_at
	CreatedAt time.Time         // booking_requests.created_at
	UpdatedAt time.Time         // booking_requests.updated_at
}
