package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/studio-booking/internal/credit"
	"github.com/iliyamo/studio-booking/internal/model"
)

// CreditRepo provides access to credit lots and the usage ledger.  Reads
// are plain queries; the debit and refund primitives only ever run inside
// a caller-owned transaction so a booking write and its credit movement
// commit or roll back together.
type CreditRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewCreditRepo(db *sql.DB, now func() time.Time) *CreditRepo {
	if now == nil {
		now = time.Now
	}
	return &CreditRepo{db: db, now: now}
}

const lotCols = "id, client_id, sessions_total, sessions_used, sessions_remaining, expires_at, status, created_at, updated_at"

// Lots returns every credit lot of a client, nearest expiry first.
func (r *CreditRepo) Lots(ctx context.Context, clientID uint64) ([]model.CreditLot, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+lotCols+" FROM credit_lots WHERE client_id=? ORDER BY expires_at ASC", clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CreditLot
	for rows.Next() {
		var l model.CreditLot
		if err := rows.Scan(&l.ID, &l.ClientID, &l.SessionsTotal, &l.SessionsUsed, &l.SessionsRemaining,
			&l.ExpiresAt, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Usage returns the most recent ledger entries of a client.
func (r *CreditRepo) Usage(ctx context.Context, clientID uint64, limit int) ([]model.CreditUsageEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, lot_id, booking_id, delta, balance_after, reason, note, created_at
		 FROM credit_usage_entries WHERE client_id=? ORDER BY id DESC LIMIT ?`,
		clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CreditUsageEntry
	for rows.Next() {
		var (
			e         model.CreditUsageEntry
			lotID     sql.NullInt64
			bookingID sql.NullInt64
			note      sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &lotID, &bookingID, &e.Delta, &e.BalanceAfter, &e.Reason, &note, &e.CreatedAt); err != nil {
			return nil, err
		}
		if lotID.Valid {
			v := uint64(lotID.Int64)
			e.LotID = &v
		}
		if bookingID.Valid {
			v := uint64(bookingID.Int64)
			e.BookingID = &v
		}
		e.Note = note.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// GrantLot creates a new credit lot for a client.  The caller must own
// the client's studio or be the user who invited the client.
func (r *CreditRepo) GrantLot(ctx context.Context, callerID, clientID uint64, sessions int, expiresAt time.Time, note string) (*model.CreditLot, error) {
	if sessions <= 0 {
		return nil, fmt.Errorf("grant: sessions must be positive")
	}
	allowed, err := r.canManage(ctx, callerID, clientID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO credit_lots (client_id, sessions_total, sessions_used, sessions_remaining, expires_at, status)
		 VALUES (?,?,0,?,?,?)`,
		clientID, sessions, sessions, expiresAt.UTC(), model.LotActive)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	balance, err := r.balanceTx(ctx, tx, clientID, r.now().UTC())
	if err != nil {
		return nil, err
	}
	lotID := uint64(id)
	if err := insertUsageTx(ctx, tx, clientID, &lotID, nil, -sessions, balance, model.ReasonManualAdd, note); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	var l model.CreditLot
	err = r.db.QueryRowContext(ctx,
		"SELECT "+lotCols+" FROM credit_lots WHERE id=? LIMIT 1", lotID).
		Scan(&l.ID, &l.ClientID, &l.SessionsTotal, &l.SessionsUsed, &l.SessionsRemaining,
			&l.ExpiresAt, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// AddToLot tops up an existing lot, keeping remaining = total - used.
// Adding sessions can revive an EXHAUSTED lot but never an expired one.
func (r *CreditRepo) AddToLot(ctx context.Context, callerID, lotID uint64, sessions int, note string) (*model.CreditLot, error) {
	if sessions <= 0 {
		return nil, fmt.Errorf("add: sessions must be positive")
	}
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
		clientID uint64
		ownerID  sql.NullInt64
		inviter  sql.NullInt64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT l.client_id, s.owner_id, c.invited_by
		 FROM credit_lots l
		 JOIN clients c ON c.id = l.client_id
		 LEFT JOIN studios s ON s.id = c.studio_id
		 WHERE l.id=? FOR UPDATE`, lotID).Scan(&clientID, &ownerID, &inviter)
	if err != nil {
		return nil, err
	}
	if !isManager(callerID, ownerID, inviter) {
		return nil, ErrForbidden
	}

	now := r.now().UTC()
	if err := addToLotTx(ctx, tx, lotID, sessions, now); err != nil {
		return nil, err
	}
	balance, err := r.balanceTx(ctx, tx, clientID, now)
	if err != nil {
		return nil, err
	}
	if err := insertUsageTx(ctx, tx, clientID, &lotID, nil, -sessions, balance, model.ReasonManualAdd, note); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	var l model.CreditLot
	err = r.db.QueryRowContext(ctx,
		"SELECT "+lotCols+" FROM credit_lots WHERE id=? LIMIT 1", lotID).
		Scan(&l.ID, &l.ClientID, &l.SessionsTotal, &l.SessionsUsed, &l.SessionsRemaining,
			&l.ExpiresAt, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// canManage reports whether callerID owns the client's studio or invited
// the client.
func (r *CreditRepo) canManage(ctx context.Context, callerID, clientID uint64) (bool, error) {
	var (
		ownerID sql.NullInt64
		inviter sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT s.owner_id, c.invited_by FROM clients c
		 LEFT JOIN studios s ON s.id = c.studio_id
		 WHERE c.id=? LIMIT 1`, clientID).Scan(&ownerID, &inviter)
	if err != nil {
		return false, err
	}
	return isManager(callerID, ownerID, inviter), nil
}

func isManager(callerID uint64, ownerID, inviter sql.NullInt64) bool {
	if ownerID.Valid && uint64(ownerID.Int64) == callerID {
		return true
	}
	if inviter.Valid && uint64(inviter.Int64) == callerID {
		return true
	}
	return false
}

// debitTx consumes amount credits from the client inside tx.  All lot
// rows of the client are locked first so concurrent debits serialize on
// the same wallet.  Lots drain nearest expiry first; a client with no
// lots at all falls back to the legacy counter on the clients row.
// Returns the balance after the debit.
func (r *CreditRepo) debitTx(ctx context.Context, tx *sql.Tx, clientID uint64, bookingID *uint64, amount int, now time.Time) (int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, sessions_remaining, expires_at, status FROM credit_lots
		 WHERE client_id=? ORDER BY expires_at ASC FOR UPDATE`, clientID)
	if err != nil {
		return 0, err
	}
	type lotRow struct {
		id        uint64
		remaining int
		expiresAt time.Time
		status    string
	}
	var all []lotRow
	for rows.Next() {
		var l lotRow
		if err := rows.Scan(&l.id, &l.remaining, &l.expiresAt, &l.status); err != nil {
			rows.Close()
			return 0, err
		}
		all = append(all, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(all) == 0 {
		return legacyDebitTx(ctx, tx, clientID, bookingID, amount)
	}

	views := make([]credit.LotView, 0, len(all))
	for _, l := range all {
		if l.status != model.LotActive {
			continue
		}
		views = append(views, credit.LotView{ID: l.id, Remaining: l.remaining, ExpiresAt: l.expiresAt})
	}
	draws, err := credit.PlanDebit(views, amount, now)
	if err != nil {
		return 0, err
	}
	for _, d := range draws {
		res, err := tx.ExecContext(ctx,
			`UPDATE credit_lots
			 SET sessions_used = sessions_used + ?,
			     sessions_remaining = sessions_remaining - ?,
			     status = CASE WHEN sessions_remaining - ? <= 0 THEN ? ELSE status END
			 WHERE id=? AND sessions_remaining >= ?`,
			d.Amount, d.Amount, d.Amount, model.LotExhausted, d.LotID, d.Amount)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("credit lot %d changed under lock", d.LotID)
		}
	}
	balance := credit.Available(views, now) - amount
	if err := insertUsageTx(ctx, tx, clientID, &draws[0].LotID, bookingID, amount, balance, model.ReasonBooking, ""); err != nil {
		return 0, err
	}
	return balance, nil
}

// legacyDebitTx debits the flat counter kept on the clients row for
// accounts migrated before expiring lots existed.
func legacyDebitTx(ctx context.Context, tx *sql.Tx, clientID uint64, bookingID *uint64, amount int) (int, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE clients SET credits = credits - ? WHERE id=? AND credits >= ?",
		amount, clientID, amount)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	var balance int
	if err := tx.QueryRowContext(ctx, "SELECT credits FROM clients WHERE id=? FOR UPDATE", clientID).Scan(&balance); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, &credit.InsufficientCreditsError{Required: amount, Available: balance}
	}
	if err := insertUsageTx(ctx, tx, clientID, nil, bookingID, amount, balance, model.ReasonBooking, ""); err != nil {
		return 0, err
	}
	return balance, nil
}

// refundTx returns credits for a cancelled booking inside tx.  The
// original debit entry tells us how much was taken and which lot it was
// drawn from; a second refund for the same booking is a no-op.  Returns
// the number of credits restored.
func (r *CreditRepo) refundTx(ctx context.Context, tx *sql.Tx, clientID, bookingID uint64, percent int, now time.Time) (int, error) {
	var (
		lotID sql.NullInt64
		delta int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT lot_id, delta FROM credit_usage_entries
		 WHERE booking_id=? AND reason=? ORDER BY id LIMIT 1 FOR UPDATE`,
		bookingID, model.ReasonBooking).Scan(&lotID, &delta)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var refunded int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credit_usage_entries WHERE booking_id=? AND reason=?",
		bookingID, model.ReasonRefund).Scan(&refunded)
	if err != nil {
		return 0, err
	}
	if refunded > 0 {
		return 0, nil
	}

	amount := credit.RefundAmount(delta, percent)
	if amount == 0 {
		return 0, nil
	}

	var entryLot *uint64
	if lotID.Valid {
		v := uint64(lotID.Int64)
		if err := addToLotTx(ctx, tx, v, amount, now); err != nil {
			return 0, err
		}
		entryLot = &v
	} else {
		if _, err := tx.ExecContext(ctx,
			"UPDATE clients SET credits = credits + ? WHERE id=?", amount, clientID); err != nil {
			return 0, err
		}
	}
	balance, err := r.balanceTx(ctx, tx, clientID, now)
	if err != nil {
		return 0, err
	}
	note := fmt.Sprintf("cancellation refund %d%%", percent)
	if err := insertUsageTx(ctx, tx, clientID, entryLot, &bookingID, -amount, balance, model.ReasonRefund, note); err != nil {
		return 0, err
	}
	return amount, nil
}

// addToLotTx adds sessions back to a lot under lock, recomputing its
// status.  A lot past expiry stays unusable regardless of balance.
func addToLotTx(ctx context.Context, tx *sql.Tx, lotID uint64, amount int, now time.Time) error {
	var (
		used, remaining int
		expiresAt       time.Time
	)
	err := tx.QueryRowContext(ctx,
		"SELECT sessions_used, sessions_remaining, expires_at FROM credit_lots WHERE id=? FOR UPDATE",
		lotID).Scan(&used, &remaining, &expiresAt)
	if err != nil {
		return err
	}
	used -= amount
	if used < 0 {
		used = 0
	}
	remaining += amount
	status := model.LotActive
	if !expiresAt.After(now) {
		status = model.LotExpired
	} else if remaining <= 0 {
		status = model.LotExhausted
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE credit_lots SET sessions_used=?, sessions_remaining=?, sessions_total=?, status=? WHERE id=?`,
		used, remaining, used+remaining, status, lotID)
	return err
}

// balanceTx computes the usable balance inside tx: the sum of active
// unexpired lot remainders, or the legacy counter when no lots exist.
func (r *CreditRepo) balanceTx(ctx context.Context, tx *sql.Tx, clientID uint64, now time.Time) (int, error) {
	var (
		count int
		sum   int
	)
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status=? AND expires_at > ? THEN sessions_remaining ELSE 0 END),0)
		 FROM credit_lots WHERE client_id=?`,
		model.LotActive, now, clientID).Scan(&count, &sum)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		var legacy int
		if err := tx.QueryRowContext(ctx, "SELECT credits FROM clients WHERE id=?", clientID).Scan(&legacy); err != nil {
			return 0, err
		}
		return legacy, nil
	}
	return sum, nil
}

func insertUsageTx(ctx context.Context, tx *sql.Tx, clientID uint64, lotID, bookingID *uint64, delta, balanceAfter int, reason, note string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO credit_usage_entries (client_id, lot_id, booking_id, delta, balance_after, reason, note)
		 VALUES (?,?,?,?,?,?,?)`,
		clientID, nullable(lotID), nullable(bookingID), delta, balanceAfter, reason, note)
	return err
}
