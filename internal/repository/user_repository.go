package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/utils"
)

// UserRepo provides access to the 'users' table and the identity lookup
// used for tenant-scope resolution.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		// 1062 = duplicate key on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ResolveProfile answers the identity lookup: the account's role and the
// studio it is affiliated with.  Owners resolve to the studio they own,
// staff trainers to their studio, and solo trainers to their own account
// id (a solo practitioner's account id doubles as its studio id).
// Plain clients carry no studio affiliation of their own.
func (r *UserRepo) ResolveProfile(ctx context.Context, userID uint64) (*model.Profile, error) {
	const q = `SELECT u.id, u.role, t.studio_id, s.id
	           FROM users u
	           LEFT JOIN trainers t ON t.user_id = u.id
	           LEFT JOIN studios s ON s.owner_id = u.id
	           WHERE u.id = ? LIMIT 1`
	var (
		p            model.Profile
		trainerScope sql.NullInt64
		ownedStudio  sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(&p.UserID, &p.Role, &trainerScope, &ownedStudio)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case model.RoleOwner:
		if ownedStudio.Valid {
			sid := uint64(ownedStudio.Int64)
			p.StudioID = &sid
		}
	case model.RoleTrainer:
		if trainerScope.Valid {
			sid := uint64(trainerScope.Int64)
			p.StudioID = &sid
		} else {
			sid := p.UserID
			p.StudioID = &sid
		}
	}
	return &p, nil
}
