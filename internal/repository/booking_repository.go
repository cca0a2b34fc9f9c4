package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// BookingRepo provides access to the 'bookings' table.  The write paths
// are single transactions: the slot is re-checked under FOR UPDATE locks
// and the credit debit or refund happens in the same transaction as the
// status change, so a failure at any step leaves nothing behind.
type BookingRepo struct {
	db      *sql.DB
	credits *CreditRepo
	now     func() time.Time
}

func NewBookingRepo(db *sql.DB, credits *CreditRepo, now func() time.Time) *BookingRepo {
	if now == nil {
		now = time.Now
	}
	return &BookingRepo{db: db, credits: credits, now: now}
}

// lockConflict reports a deadlock or lock wait timeout (MySQL 1213/1205).
// Two inserts racing for the same empty window hold compatible gap locks,
// so InnoDB kills one of them instead of serializing.
func lockConflict(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == 1213 || myErr.Number == 1205
}

// retryOnLockConflict reruns a transaction once after InnoDB aborted it.
// The retry's locking re-check sees the winner's committed row and the
// slot clash surfaces as booking.ErrConflict rather than a driver error.
func retryOnLockConflict(attempt func() error) error {
	err := attempt()
	if lockConflict(err) {
		err = attempt()
	}
	return err
}

const bookingCols = "id, client_id, trainer_id, service_id, studio_id, scheduled_at, duration_min, credits_used, status, hold_expires_at, created_at, updated_at"

func scanBookingRow(scan func(dest ...interface{}) error) (*model.Booking, error) {
	var (
		b        model.Booking
		studioID sql.NullInt64
		holdExp  sql.NullTime
	)
	err := scan(&b.ID, &b.ClientID, &b.TrainerID, &b.ServiceID, &studioID, &b.ScheduledAt,
		&b.DurationMin, &b.CreditsUsed, &b.Status, &holdExp, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if studioID.Valid {
		v := uint64(studioID.Int64)
		b.StudioID = &v
	}
	if holdExp.Valid {
		t := holdExp.Time
		b.HoldExpiresAt = &t
	}
	return &b, nil
}

// ActiveInWindow returns the trainer's blocking candidates whose start
// falls in [from, to).  Expired soft holds are filtered by the caller,
// which knows the current time.
func (r *BookingRepo) ActiveInWindow(ctx context.Context, trainerID uint64, from, to time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingCols+` FROM bookings
		 WHERE trainer_id=? AND status IN (?,?) AND scheduled_at >= ? AND scheduled_at < ?
		 ORDER BY scheduled_at`,
		trainerID, model.StatusConfirmed, model.StatusSoftHold, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	var out []model.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// conflictTx re-checks the trainer's calendar under row locks.  An
// insert racing against a committed row serializes here; two inserts
// racing for an empty window instead deadlock on their gap locks, which
// the create paths handle by retrying once.
func (r *BookingRepo) conflictTx(ctx context.Context, tx *sql.Tx, trainerID uint64, start time.Time, durationMin int, excludeID uint64) (bool, error) {
	now := r.now().UTC()
	from := start.Add(-booking.ConflictWindow)
	to := start.Add(time.Duration(durationMin) * time.Minute)
	rows, err := tx.QueryContext(ctx,
		"SELECT "+bookingCols+` FROM bookings
		 WHERE trainer_id=? AND status IN (?,?) AND scheduled_at >= ? AND scheduled_at < ?
		 FOR UPDATE`,
		trainerID, model.StatusConfirmed, model.StatusSoftHold, from, to)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	existing, err := collectBookings(rows)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if b.ID == excludeID || !b.Blocking(now) {
			continue
		}
		if booking.Overlaps(start, durationMin, b.ScheduledAt, b.DurationMin) {
			return true, nil
		}
	}
	return false, nil
}

func (r *BookingRepo) insertTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var holdExp interface{}
	if b.HoldExpiresAt != nil {
		holdExp = b.HoldExpiresAt.UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (client_id, trainer_id, service_id, studio_id, scheduled_at, duration_min, credits_used, status, hold_expires_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		b.ClientID, b.TrainerID, b.ServiceID, nullable(b.StudioID), b.ScheduledAt.UTC(),
		b.DurationMin, b.CreditsUsed, b.Status, holdExp)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateWithDebit inserts a confirmed booking and debits the client in
// one transaction.  Returns the credit balance after the debit.
func (r *BookingRepo) CreateWithDebit(ctx context.Context, b *model.Booking) (int, error) {
	var balance int
	err := retryOnLockConflict(func() error {
		var err error
		balance, err = r.createWithDebit(ctx, b)
		return err
	})
	return balance, err
}

func (r *BookingRepo) createWithDebit(ctx context.Context, b *model.Booking) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := r.conflictTx(ctx, tx, b.TrainerID, b.ScheduledAt, b.DurationMin, 0)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, booking.ErrConflict
	}
	if err := r.insertTx(ctx, tx, b); err != nil {
		return 0, err
	}
	balance, err := r.credits.debitTx(ctx, tx, b.ClientID, &b.ID, b.CreditsUsed, r.now().UTC())
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return balance, nil
}

// CreateHold inserts a soft hold.  No credits move until confirmation.
func (r *BookingRepo) CreateHold(ctx context.Context, b *model.Booking) error {
	return retryOnLockConflict(func() error {
		return r.createHold(ctx, b)
	})
}

func (r *BookingRepo) createHold(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := r.conflictTx(ctx, tx, b.TrainerID, b.ScheduledAt, b.DurationMin, 0)
	if err != nil {
		return err
	}
	if taken {
		return booking.ErrConflict
	}
	if err := r.insertTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ConfirmHold promotes a soft hold to CONFIRMED and debits the client in
// the same transaction.  Confirming an already confirmed booking is a
// no-op that reports the current balance.
func (r *BookingRepo) ConfirmHold(ctx context.Context, bookingID, clientID uint64) (*model.Booking, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? AND client_id=? FOR UPDATE",
		bookingID, clientID)
	b, err := scanBookingRow(row.Scan)
	if err != nil {
		return nil, 0, err
	}
	now := r.now().UTC()

	if b.Status == model.StatusConfirmed {
		balance, err := r.credits.balanceTx(ctx, tx, clientID, now)
		if err != nil {
			return nil, 0, err
		}
		if err := tx.Commit(); err != nil {
			return nil, 0, err
		}
		committed = true
		return b, balance, nil
	}
	if b.Status != model.StatusSoftHold {
		return nil, 0, booking.ErrConflict
	}
	if b.HoldExpiresAt != nil && !b.HoldExpiresAt.After(now) {
		return nil, 0, &booking.ValidationError{Reason: "hold has expired"}
	}

	balance, err := r.credits.debitTx(ctx, tx, clientID, &b.ID, b.CreditsUsed, now)
	if err != nil {
		return nil, 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=?, hold_expires_at=NULL WHERE id=?",
		model.StatusConfirmed, b.ID); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	committed = true
	b.Status = model.StatusConfirmed
	b.HoldExpiresAt = nil
	return b, balance, nil
}

// GetForClient loads a booking owned by the client.
func (r *BookingRepo) GetForClient(ctx context.Context, bookingID, clientID uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? AND client_id=? LIMIT 1",
		bookingID, clientID)
	return scanBookingRow(row.Scan)
}

// ListByClient returns the client's bookings, newest session first.
func (r *BookingRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE client_id=? ORDER BY scheduled_at DESC LIMIT 200",
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// CancelWithRefund cancels the booking and applies the refund percentage
// in one transaction.  Cancelling an already cancelled booking returns
// (0, nil).  Returns the number of credits restored.
func (r *BookingRepo) CancelWithRefund(ctx context.Context, bookingID, clientID uint64, refundPercent int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? AND client_id=? FOR UPDATE",
		bookingID, clientID)
	b, err := scanBookingRow(row.Scan)
	if err != nil {
		return 0, err
	}
	if b.Status == model.StatusCancelled {
		if err := tx.Commit(); err != nil {
			return 0, err
		}
		committed = true
		return 0, nil
	}
	if !model.CanTransition(b.Status, model.StatusCancelled) {
		return 0, booking.ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=?, hold_expires_at=NULL WHERE id=?",
		model.StatusCancelled, b.ID); err != nil {
		return 0, err
	}
	var refunded int
	// Holds never debited anything, so there is nothing to refund.
	if b.Status != model.StatusSoftHold && refundPercent > 0 {
		refunded, err = r.credits.refundTx(ctx, tx, clientID, b.ID, refundPercent, r.now().UTC())
		if err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return refunded, nil
}

// ListForOperator returns bookings visible to an operator: sessions of
// the studio they own or sessions they deliver as a trainer.
func (r *BookingRepo) ListForOperator(ctx context.Context, operatorID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.client_id, b.trainer_id, b.service_id, b.studio_id, b.scheduled_at,
		        b.duration_min, b.credits_used, b.status, b.hold_expires_at, b.created_at, b.updated_at
		 FROM bookings b
		 JOIN trainers t ON t.id = b.trainer_id
		 LEFT JOIN studios s ON s.id = b.studio_id
		 WHERE s.owner_id=? OR t.user_id=?
		 ORDER BY b.scheduled_at DESC LIMIT 500`,
		operatorID, operatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// UpdateStatusForOperator applies an attendance transition (check-in,
// complete, no-show, late) on behalf of the studio owner or the
// delivering trainer.  Illegal transitions return booking.ErrConflict.
func (r *BookingRepo) UpdateStatusForOperator(ctx context.Context, bookingID, operatorID uint64, to string) (*model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		status      string
		ownerID     sql.NullInt64
		trainerUser uint64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT b.status, s.owner_id, t.user_id
		 FROM bookings b
		 JOIN trainers t ON t.id = b.trainer_id
		 LEFT JOIN studios s ON s.id = b.studio_id
		 WHERE b.id=? FOR UPDATE`, bookingID).Scan(&status, &ownerID, &trainerUser)
	if err != nil {
		return nil, err
	}
	if trainerUser != operatorID && !(ownerID.Valid && uint64(ownerID.Int64) == operatorID) {
		return nil, ErrForbidden
	}
	if !model.CanTransition(status, to) {
		return nil, booking.ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=?", to, bookingID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	row := r.db.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? LIMIT 1", bookingID)
	return scanBookingRow(row.Scan)
}

// HardDelete removes a booking outright.  Operator-only escape hatch for
// rows created by mistake; no credits move.
func (r *BookingRepo) HardDelete(ctx context.Context, bookingID, operatorID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE b FROM bookings b
		 JOIN trainers t ON t.id = b.trainer_id
		 LEFT JOIN studios s ON s.id = b.studio_id
		 WHERE b.id=? AND (s.owner_id=? OR t.user_id=?)`,
		bookingID, operatorID, operatorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
