package model

import "time"

// Client is a booking identity inside one tenant, stored in the `clients`
// table.  A client row is created when an invitation is accepted or when a
// guest registers through the public booking flow.  The studio scope may be
// unknown at creation time and is back-filled the first time it is resolved
// through the inviter chain.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – account that owns this client identity.
//  StudioID      – tenant scope (nullable, resolved lazily).
//  InvitedBy     – user id of the inviter (nullable).
//  Credits       – simple non-expiring credit counter, used only when the
//                  client has no credit lots at all (legacy fallback).
//  AllowSelfBook – whether the client may book sessions without trainer
//                  involvement.
type Client struct {
	ID            uint64    // clients.id
	UserID        uint64    // clients.user_id
	StudioID      *uint64   // clients.studio_id (nullable)
	InvitedBy     *uint64   // clients.invited_by (nullable)
	Credits       int       // clients.credits
	AllowSelfBook bool      // clients.allow_self_book
	CreatedAt     time.Time // clients.created_at
	UpdatedAt     time.Time // clients.updated_at
}

// Invite models a row in the `invites` table.  An owner or trainer creates
// an invite; registering with its token creates the client row with the
// inviter reference.  Accepting the same invite twice must not create
// duplicate state, so UsedAt is advisory rather than a hard gate.
type Invite struct {
	ID        uint64     // invites.id
	Token     string     // invites.token
	InviterID uint64     // invites.inviter_id
	StudioID  *uint64    // invites.studio_id (nullable)
	UsedAt    *time.Time // invites.used_at (nullable)
	CreatedAt time.Time  // invites.created_at
}
