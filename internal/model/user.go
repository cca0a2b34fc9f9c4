package model

import "time"

// Role names used across the application.  OWNER accounts run a studio,
// TRAINER accounts deliver sessions (possibly solo, without a studio),
// and CLIENT accounts book sessions.
const (
	RoleOwner   = "OWNER"
	RoleTrainer = "TRAINER"
	RoleClient  = "CLIENT"
)

// User represents an application account as stored in the `users` table.
// Each field corresponds to a column in the database.  Handlers define
// separate response types with JSON tags; this struct is used by the
// repository layer only.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (OWNER, TRAINER or CLIENT).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and carries metadata for expiry and
// revocation.  The plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Profile is the answer of the identity lookup: which role an account has
// and which studio (if any) it is affiliated with.  Solo practitioners use
// their own account id as the studio id, so StudioID may equal UserID.
type Profile struct {
	UserID   uint64
	Role     string
	StudioID *uint64
}
