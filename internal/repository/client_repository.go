package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

// ClientRepo provides access to the 'clients' table.  A client row is the
// booking identity of a user inside one tenant; it is created on invite
// acceptance or guest registration and its studio scope may be
// back-filled later by the resolver.
type ClientRepo struct{ db *sql.DB }

func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

const clientCols = "id, user_id, studio_id, invited_by, credits, allow_self_book, created_at, updated_at"

func scanClient(row *sql.Row) (*model.Client, error) {
	var (
		c         model.Client
		studioID  sql.NullInt64
		invitedBy sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.UserID, &studioID, &invitedBy, &c.Credits, &c.AllowSelfBook, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		c.StudioID = &v
	}
	if invitedBy.Valid {
		v := uint64(invitedBy.Int64)
		c.InvitedBy = &v
	}
	return &c, nil
}

// GetByUserID loads the client identity of a user account.
func (r *ClientRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Client, error) {
	return scanClient(r.db.QueryRowContext(ctx,
		"SELECT "+clientCols+" FROM clients WHERE user_id=? LIMIT 1", userID))
}

// GetByID loads a client by primary key.
func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (*model.Client, error) {
	return scanClient(r.db.QueryRowContext(ctx,
		"SELECT "+clientCols+" FROM clients WHERE id=? LIMIT 1", id))
}

// CreateForUser inserts the client row for a user, tolerant of duplicate
// execution: accepting the same invitation twice resolves to the existing
// row instead of creating a second identity.  The unique key on user_id
// makes the upsert idempotent.
func (r *ClientRepo) CreateForUser(ctx context.Context, userID uint64, invitedBy, studioID *uint64) (*model.Client, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (user_id, invited_by, studio_id, credits, allow_self_book)
		 VALUES (?,?,?,0,1)
		 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`,
		userID, nullable(invitedBy), nullable(studioID))
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

// SetStudioID back-fills a missing studio scope.  Only a NULL studio_id
// is ever written, so repeated repairs are no-ops.
func (r *ClientRepo) SetStudioID(ctx context.Context, clientID, studioID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE clients SET studio_id=? WHERE id=? AND studio_id IS NULL",
		studioID, clientID)
	return err
}

// SetSelfBooking toggles the self-booking permission flag.
func (r *ClientRepo) SetSelfBooking(ctx context.Context, clientID uint64, allowed bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE clients SET allow_self_book=? WHERE id=?", allowed, clientID)
	return err
}

// nullable converts an optional id into a driver-friendly value.
func nullable(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
