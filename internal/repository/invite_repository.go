package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// InviteRepo provides access to the 'invites' table.  An invite binds a
// registering client to the inviter and, when known, the studio.
type InviteRepo struct{ db *sql.DB }

func NewInviteRepo(db *sql.DB) *InviteRepo { return &InviteRepo{db: db} }

// Create issues a new invite token for the inviter.
func (r *InviteRepo) Create(ctx context.Context, inviterID uint64, studioID *uint64) (*model.Invite, error) {
	token, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO invites (token, inviter_id, studio_id) VALUES (?,?,?)",
		token, inviterID, nullable(studioID))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.getByID(ctx, uint64(id))
}

func (r *InviteRepo) getByID(ctx context.Context, id uint64) (*model.Invite, error) {
	return r.scan(r.db.QueryRowContext(ctx,
		"SELECT id, token, inviter_id, studio_id, used_at, created_at FROM invites WHERE id=? LIMIT 1", id))
}

// GetByToken looks up an invite by its token.
func (r *InviteRepo) GetByToken(ctx context.Context, token string) (*model.Invite, error) {
	return r.scan(r.db.QueryRowContext(ctx,
		"SELECT id, token, inviter_id, studio_id, used_at, created_at FROM invites WHERE token=? LIMIT 1", token))
}

func (r *InviteRepo) scan(row *sql.Row) (*model.Invite, error) {
	var (
		inv      model.Invite
		studioID sql.NullInt64
		usedAt   sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.Token, &inv.InviterID, &studioID, &usedAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		inv.StudioID = &v
	}
	if usedAt.Valid {
		t := usedAt.Time
		inv.UsedAt = &t
	}
	return &inv, nil
}

// MarkUsed stamps the invite.  Already-used invites are left untouched
// so a duplicate acceptance does not fail.
func (r *InviteRepo) MarkUsed(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE invites SET used_at=NOW() WHERE id=? AND used_at IS NULL", id)
	return err
}
