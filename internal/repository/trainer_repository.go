package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/studio-booking/internal/model"
)

// TrainerRepo provides access to the 'trainers' table.
type TrainerRepo struct{ db *sql.DB }

func NewTrainerRepo(db *sql.DB) *TrainerRepo { return &TrainerRepo{db: db} }

const trainerCols = "t.id, t.user_id, t.studio_id, t.name, t.active, t.created_at, t.updated_at"

func scanTrainerRow(scan func(dest ...interface{}) error) (*model.Trainer, error) {
	var (
		t        model.Trainer
		studioID sql.NullInt64
	)
	err := scan(&t.ID, &t.UserID, &studioID, &t.Name, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		t.StudioID = &v
	}
	return &t, nil
}

// GetByID loads a trainer by primary key.
func (r *TrainerRepo) GetByID(ctx context.Context, id uint64) (*model.Trainer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+trainerCols+" FROM trainers t WHERE t.id=? LIMIT 1", id)
	return scanTrainerRow(row.Scan)
}

// GetByUserID loads the trainer record tied to a user account.
func (r *TrainerRepo) GetByUserID(ctx context.Context, userID uint64) (*model.Trainer, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+trainerCols+" FROM trainers t WHERE t.user_id=? LIMIT 1", userID)
	return scanTrainerRow(row.Scan)
}

// InScope reports whether an active trainer is reachable from any of the
// client's scope ids: directly by user id, through their studio, or
// through the studio's owner.
func (r *TrainerRepo) InScope(ctx context.Context, trainerID uint64, scope []uint64) (bool, error) {
	if len(scope) == 0 {
		return false, nil
	}
	ph := placeholders(len(scope))
	q := `SELECT COUNT(*) FROM trainers t
	      LEFT JOIN studios s ON s.id = t.studio_id
	      WHERE t.id=? AND t.active=1
	        AND (t.user_id IN (` + ph + `) OR t.studio_id IN (` + ph + `) OR s.owner_id IN (` + ph + `))`
	args := make([]interface{}, 0, 1+3*len(scope))
	args = append(args, trainerID)
	for i := 0; i < 3; i++ {
		for _, id := range scope {
			args = append(args, id)
		}
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListInScope returns the active trainers visible to a client scope set.
func (r *TrainerRepo) ListInScope(ctx context.Context, scope []uint64) ([]model.Trainer, error) {
	if len(scope) == 0 {
		return nil, nil
	}
	ph := placeholders(len(scope))
	q := "SELECT " + trainerCols + ` FROM trainers t
	      LEFT JOIN studios s ON s.id = t.studio_id
	      WHERE t.active=1
	        AND (t.user_id IN (` + ph + `) OR t.studio_id IN (` + ph + `) OR s.owner_id IN (` + ph + `))
	      ORDER BY t.name`
	args := make([]interface{}, 0, 3*len(scope))
	for i := 0; i < 3; i++ {
		for _, id := range scope {
			args = append(args, id)
		}
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Trainer
	for rows.Next() {
		t, err := scanTrainerRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create inserts a trainer and fills in its generated ID.
func (r *TrainerRepo) Create(ctx context.Context, t *model.Trainer) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO trainers (user_id, studio_id, name, active) VALUES (?,?,?,?)",
		t.UserID, nullable(t.StudioID), t.Name, t.Active)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
