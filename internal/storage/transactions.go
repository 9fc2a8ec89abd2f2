package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dompet/internal/core"
)

// Sync states of a transaction's spreadsheet mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// PendingSync is the minimal data a sync message needs.
type PendingSync struct {
	ID     int64
	UserID int64
	Kind   core.Kind
}

const transactionColumns = `id, user_id, kind, category, amount, date, installment_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t    core.Transaction
		inst sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Kind, &t.Category, &t.Amount, &t.Date, &inst); err != nil {
		return core.Transaction{}, err
	}
	if inst.Valid {
		id := inst.Int64
		t.InstallmentID = &id
	}
	return t, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// CreateTransaction inserts t and returns it with its new id.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return r.insertTransaction(ctx, r.db, t)
}

func (r *Repository) insertTransaction(ctx context.Context, q querier, t core.Transaction) (core.Transaction, error) {
	err := q.QueryRowContext(ctx,
		r.rebind(`INSERT INTO transactions (user_id, kind, category, amount, date, installment_id)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		t.UserID, t.Kind, t.Category, t.Amount, t.Date, nullableID(t.InstallmentID),
	).Scan(&t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return t, nil
}

// GetTransaction returns a transaction owned by userID.
func (r *Repository) GetTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind(`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ? AND kind = ?`),
		id, userID, kind)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// GetTransactionByID looks a transaction up regardless of owner, for workers.
func (r *Repository) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`), id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// ListTransactions returns the user's transactions of a kind, newest first.
// A nil range returns the full history.
func (r *Repository) ListTransactions(ctx context.Context, userID int64, kind core.Kind, dr *core.DateRange) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ? AND kind = ?`
	args := []any{userID, kind}
	if dr != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, dr.Start, dr.End)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// UpdateTransaction rewrites category, amount and date. The installment link is
// fixed at creation. The row is queued for sync again.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE transactions SET category = ?, amount = ?, date = ?, sync_status = ?
			WHERE id = ? AND user_id = ? AND kind = ?`),
		t.Category, t.Amount, t.Date, SyncPending, t.ID, t.UserID, t.Kind)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.GetTransaction(ctx, t.UserID, t.Kind, t.ID)
}

// DeleteTransaction removes a transaction. A payment it recorded stays in the
// installment history, unlinked.
func (r *Repository) DeleteTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	res, err := r.db.ExecContext(ctx,
		r.rebind(`DELETE FROM transactions WHERE id = ? AND user_id = ? AND kind = ?`), id, userID, kind)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// CreateInstallmentExpense stores an expense that pays an installment and the
// matching payment in one transaction. The installment must be the user's and
// active; it closes when its last month is paid.
func (r *Repository) CreateInstallmentExpense(ctx context.Context, userID int64, in core.TransactionInput) (core.Transaction, core.Payment, error) {
	if in.InstallmentID == nil {
		return core.Transaction{}, core.Payment{}, &core.ValidationError{Field: "installment_id", Reason: "is required"}
	}
	var (
		tx      core.Transaction
		payment core.Payment
	)
	err := r.withTx(ctx, func(q querier) error {
		inst, err := r.loadInstallment(ctx, q, userID, *in.InstallmentID, true)
		if err != nil {
			return err
		}
		in = in.ApplyInstallment(inst)
		if err := in.Validate(); err != nil {
			return err
		}
		payment, err = inst.RecordPayment(in.Amount, in.Date)
		if err != nil {
			return err
		}

		tx, err = r.insertTransaction(ctx, q, core.Transaction{
			UserID:        userID,
			Kind:          core.Expense,
			Category:      in.Category,
			Amount:        in.Amount,
			Date:          in.Date,
			InstallmentID: in.InstallmentID,
		})
		if err != nil {
			return err
		}
		payment.TransactionID = &tx.ID
		if payment, err = r.insertPayment(ctx, q, payment); err != nil {
			return err
		}
		return r.saveStatus(ctx, q, inst)
	})
	if err != nil {
		return core.Transaction{}, core.Payment{}, err
	}
	return tx, payment, nil
}

// PendingSyncTransactions returns transactions not yet mirrored.
func (r *Repository) PendingSyncTransactions(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT id, user_id, kind FROM transactions WHERE sync_status = ? ORDER BY id LIMIT ?`),
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var p PendingSync
		if err := rows.Scan(&p.ID, &p.UserID, &p.Kind); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as mirrored.
func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

// MarkSyncError marks a transaction whose mirror failed.
func (r *Repository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *Repository) setSyncStatus(ctx context.Context, id int64, status string) error {
	if _, err := r.db.ExecContext(ctx,
		r.rebind(`UPDATE transactions SET sync_status = ? WHERE id = ?`), status, id); err != nil {
		return fmt.Errorf("mark transaction %s: %w", status, err)
	}
	return nil
}
