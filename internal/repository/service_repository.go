package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/studio-booking/internal/model"
)

// ServiceRepo provides access to the 'services' table.  A service is a
// bookable session type with a duration and a credit price; it belongs
// either to a studio or directly to the solo trainer who created it.
type ServiceRepo struct{ db *sql.DB }

func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceCols = "id, studio_id, created_by, name, duration_min, credits_required, active, public, created_at, updated_at"

func scanServiceRow(scan func(dest ...interface{}) error) (*model.Service, error) {
	var (
		s         model.Service
		studioID  sql.NullInt64
		createdBy sql.NullInt64
	)
	err := scan(&s.ID, &studioID, &createdBy, &s.Name, &s.DurationMin, &s.CreditsRequired, &s.Active, &s.Public, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		s.StudioID = &v
	}
	if createdBy.Valid {
		v := uint64(createdBy.Int64)
		s.CreatedBy = &v
	}
	return &s, nil
}

// GetByID loads a service by primary key.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (*model.Service, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+serviceCols+" FROM services WHERE id=? LIMIT 1", id)
	return scanServiceRow(row.Scan)
}

// ListInScope returns the active public services visible to a client
// with the given scope set.  An empty scope sees nothing.
func (r *ServiceRepo) ListInScope(ctx context.Context, scope []uint64) ([]model.Service, error) {
	if len(scope) == 0 {
		return nil, nil
	}
	ph := placeholders(len(scope))
	q := "SELECT " + serviceCols + " FROM services" +
		" WHERE active=1 AND public=1 AND (studio_id IN (" + ph + ") OR created_by IN (" + ph + "))" +
		" ORDER BY name"
	args := make([]interface{}, 0, 2*len(scope))
	for _, id := range scope {
		args = append(args, id)
	}
	for _, id := range scope {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanServiceRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Create inserts a service and fills in its generated ID.
func (r *ServiceRepo) Create(ctx context.Context, s *model.Service) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO services (studio_id, created_by, name, duration_min, credits_required, active, public)
		 VALUES (?,?,?,?,?,?,?)`,
		nullable(s.StudioID), nullable(s.CreatedBy), s.Name, s.DurationMin, s.CreditsRequired, s.Active, s.Public)
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

// SetActive flips the active flag, owner-checked via created_by or the
// studio's owner.
func (r *ServiceRepo) SetActive(ctx context.Context, serviceID, callerID uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE services sv LEFT JOIN studios st ON st.id = sv.studio_id
		 SET sv.active=?
		 WHERE sv.id=? AND (sv.created_by=? OR st.owner_id=?)`,
		active, serviceID, callerID, callerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrForbidden
	}
	return nil
}

// placeholders returns "?,?,?" with n question marks.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
