package model

import "time"

// Service is a bookable offering, owned either by a studio or by an
// individual trainer (solo practitioner).  Duration and credit cost are
// fixed once the service is referenced by bookings; only the activation
// flags toggle afterwards.
//
// Fields:
//  ID              – primary key identifier.
//  StudioID        – owning studio (nullable for solo offerings).
//  CreatedBy       – owning individual account (nullable for studio offerings).
//  Name            – display name.
//  DurationMin     – session length in minutes.
//  CreditsRequired – credits consumed per booking (>= 1).
//  Active          – soft activation toggle.
//  Public          – whether clients may see and book it.
type Service struct {
	ID              uint64    // services.id
	StudioID        *uint64   // services.studio_id (nullable)
	CreatedBy       *uint64   // services.created_by (nullable)
	Name            string    // services.name
	DurationMin     int       // services.duration_min
	CreditsRequired int       // services.credits_required
	Active          bool      // services.active
	Public          bool      // services.public
	CreatedAt       time.Time // services.created_at
	UpdatedAt       time.Time // services.updated_at
}

// Trainer is a member of a studio's staff, or a solo practitioner when
// StudioID is nil.  The user account behind a trainer may also own the
// studio; scope checks accept either relationship.
type Trainer struct {
	ID        uint64    // trainers.id
	UserID    uint64    // trainers.user_id
	StudioID  *uint64   // trainers.studio_id (nullable)
	Name      string    // trainers.name
	Active    bool      // trainers.active
	CreatedAt time.Time // trainers.created_at
	UpdatedAt time.Time // trainers.updated_at
}
