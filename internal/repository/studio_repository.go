package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/studio-booking/internal/model"
)

// StudioRepo provides access to the 'studios' table.  Opening hours and
// the cancellation policy live in JSON columns so owners can reshape
// them without migrations.
type StudioRepo struct{ db *sql.DB }

func NewStudioRepo(db *sql.DB) *StudioRepo { return &StudioRepo{db: db} }

const studioCols = "id, owner_id, name, booking_model, opening_hours, cancellation_policy, no_show_action, created_at, updated_at"

func scanStudio(row *sql.Row) (*model.Studio, error) {
	var (
		s        model.Studio
		hoursRaw sql.NullString
		polRaw   sql.NullString
		noShow   sql.NullString
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.BookingModel, &hoursRaw, &polRaw, &noShow, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if hoursRaw.Valid && hoursRaw.String != "" {
		if err := json.Unmarshal([]byte(hoursRaw.String), &s.OpeningHours); err != nil {
			return nil, fmt.Errorf("studio %d: decode opening_hours: %w", s.ID, err)
		}
	}
	if polRaw.Valid && polRaw.String != "" {
		if err := json.Unmarshal([]byte(polRaw.String), &s.CancelPolicy); err != nil {
			return nil, fmt.Errorf("studio %d: decode cancellation_policy: %w", s.ID, err)
		}
	}
	if noShow.Valid {
		s.NoShowAction = noShow.String
	}
	return &s, nil
}

// GetByID loads a studio with its decoded schedule and policy.
func (r *StudioRepo) GetByID(ctx context.Context, id uint64) (*model.Studio, error) {
	return scanStudio(r.db.QueryRowContext(ctx,
		"SELECT "+studioCols+" FROM studios WHERE id=? LIMIT 1", id))
}

// GetByOwner loads the studio owned by a user.
func (r *StudioRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Studio, error) {
	return scanStudio(r.db.QueryRowContext(ctx,
		"SELECT "+studioCols+" FROM studios WHERE owner_id=? LIMIT 1", ownerID))
}

// OwnerID returns the owning user of a studio.
func (r *StudioRepo) OwnerID(ctx context.Context, studioID uint64) (uint64, error) {
	var ownerID uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT owner_id FROM studios WHERE id=? LIMIT 1", studioID).Scan(&ownerID)
	return ownerID, err
}

// Create inserts a studio and fills in its generated ID.
func (r *StudioRepo) Create(ctx context.Context, s *model.Studio) error {
	hours, err := json.Marshal(s.OpeningHours)
	if err != nil {
		return err
	}
	policy, err := json.Marshal(s.CancelPolicy)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO studios (owner_id, name, booking_model, opening_hours, cancellation_policy, no_show_action)
		 VALUES (?,?,?,?,?,?)`,
		s.OwnerID, s.Name, s.BookingModel, string(hours), string(policy), s.NoShowAction)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// UpdateSettings rewrites the schedule, cancellation policy, booking
// model and no-show action.  Only the owner may update; a mismatch
// returns ErrForbidden.
func (r *StudioRepo) UpdateSettings(ctx context.Context, studioID, callerID uint64, s *model.Studio) error {
	ownerID, err := r.OwnerID(ctx, studioID)
	if err != nil {
		return err
	}
	if ownerID != callerID {
		return ErrForbidden
	}
	hours, err := json.Marshal(s.OpeningHours)
	if err != nil {
		return err
	}
	policy, err := json.Marshal(s.CancelPolicy)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE studios SET name=?, booking_model=?, opening_hours=?, cancellation_policy=?, no_show_action=?
		 WHERE id=?`,
		s.Name, s.BookingModel, string(hours), string(policy), s.NoShowAction, studioID)
	return err
}
