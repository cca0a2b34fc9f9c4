package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// BookingRequestRepo provides access to the 'booking_requests' table.
// Candidate windows are stored as a JSON array; status guards in the
// UPDATE statements make accept and decline race-safe.
type BookingRequestRepo struct{ db *sql.DB }

func NewBookingRequestRepo(db *sql.DB) *BookingRequestRepo { return &BookingRequestRepo{db: db} }

const requestCols = "id, client_id, trainer_id, service_id, studio_id, windows, status, booking_id, expires_at, created_at, updated_at"

func scanRequestRow(scan func(dest ...interface{}) error) (*model.BookingRequest, error) {
	var (
		req        model.BookingRequest
		studioID   sql.NullInt64
		bookingID  sql.NullInt64
		windowsRaw []byte
	)
	err := scan(&req.ID, &req.ClientID, &req.TrainerID, &req.ServiceID, &studioID, &windowsRaw,
		&req.Status, &bookingID, &req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		req.StudioID = &v
	}
	if bookingID.Valid {
		v := uint64(bookingID.Int64)
		req.BookingID = &v
	}
	if len(windowsRaw) > 0 {
		if err := json.Unmarshal(windowsRaw, &req.Windows); err != nil {
			return nil, fmt.Errorf("request %d: decode windows: %w", req.ID, err)
		}
	}
	return &req, nil
}

// Create inserts a pending request and fills in its generated ID.
func (r *BookingRequestRepo) Create(ctx context.Context, req *model.BookingRequest) error {
	windows, err := json.Marshal(req.Windows)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO booking_requests (client_id, trainer_id, service_id, studio_id, windows, status, expires_at)
		 VALUES (?,?,?,?,?,?,?)`,
		req.ClientID, req.TrainerID, req.ServiceID, nullable(req.StudioID),
		string(windows), req.Status, req.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	return nil
}

// GetForTrainerUser loads a request addressed to the trainer behind the
// given user account.
func (r *BookingRequestRepo) GetForTrainerUser(ctx context.Context, requestID, trainerUserID uint64) (*model.BookingRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.client_id, r.trainer_id, r.service_id, r.studio_id, r.windows,
		        r.status, r.booking_id, r.expires_at, r.created_at, r.updated_at
		 FROM booking_requests r
		 JOIN trainers t ON t.id = r.trainer_id
		 WHERE r.id=? AND t.user_id=? LIMIT 1`,
		requestID, trainerUserID)
	return scanRequestRow(row.Scan)
}

// ListForTrainerUser returns the trainer's pending, unexpired requests.
func (r *BookingRequestRepo) ListForTrainerUser(ctx context.Context, trainerUserID uint64, now time.Time) ([]model.BookingRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.client_id, r.trainer_id, r.service_id, r.studio_id, r.windows,
		        r.status, r.booking_id, r.expires_at, r.created_at, r.updated_at
		 FROM booking_requests r
		 JOIN trainers t ON t.id = r.trainer_id
		 WHERE t.user_id=? AND r.status=? AND r.expires_at > ?
		 ORDER BY r.created_at`,
		trainerUserID, model.RequestPending, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListByClient returns the client's requests, newest first.
func (r *BookingRequestRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.BookingRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+requestCols+" FROM booking_requests WHERE client_id=? ORDER BY created_at DESC LIMIT 100",
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]model.BookingRequest, error) {
	var out []model.BookingRequest
	for rows.Next() {
		req, err := scanRequestRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// MarkAccepted records the accept outcome.  The PENDING guard makes a
// concurrent double-accept lose with booking.ErrConflict.
func (r *BookingRequestRepo) MarkAccepted(ctx context.Context, requestID, bookingID uint64) error {
	return r.transition(ctx, requestID, model.RequestAccepted, &bookingID)
}

// MarkDeclined records the decline outcome under the same guard.
func (r *BookingRequestRepo) MarkDeclined(ctx context.Context, requestID uint64) error {
	return r.transition(ctx, requestID, model.RequestDeclined, nil)
}

func (r *BookingRequestRepo) transition(ctx context.Context, requestID uint64, status string, bookingID *uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE booking_requests SET status=?, booking_id=? WHERE id=? AND status=?",
		status, nullable(bookingID), requestID, model.RequestPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrConflict
	}
	return nil
}
