package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dompet/internal/core"
)

// ReminderTarget pairs an active installment with the user to remind.
type ReminderTarget struct {
	Installment core.Installment
	User        core.User
}

const installmentColumns = `i.id, i.user_id, i.name, i.principal, i.interest_rate, i.monthly_payment,
	i.total_months, i.start_date, i.due_day, i.status, i.notes`

func scanInstallment(s rowScanner, extra ...any) (core.Installment, error) {
	var (
		inst  core.Installment
		notes sql.NullString
	)
	dest := []any{&inst.ID, &inst.UserID, &inst.Name, &inst.Principal, &inst.InterestRate,
		&inst.MonthlyPayment, &inst.TotalMonths, &inst.StartDate, &inst.DueDay, &inst.Status, &notes}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return core.Installment{}, err
	}
	if notes.Valid {
		n := notes.String
		inst.Notes = &n
	}
	inst.TotalPaid = core.Zero
	return inst, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// CreateInstallment inserts a new installment.
func (r *Repository) CreateInstallment(ctx context.Context, inst core.Installment) (core.Installment, error) {
	err := r.db.QueryRowContext(ctx,
		r.rebind(`INSERT INTO installments (user_id, name, principal, interest_rate, monthly_payment,
			total_months, start_date, due_day, status, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		inst.UserID, inst.Name, inst.Principal, inst.InterestRate, inst.MonthlyPayment,
		inst.TotalMonths, inst.StartDate, inst.DueDay, inst.Status, nullableString(inst.Notes),
	).Scan(&inst.ID)
	if err != nil {
		return core.Installment{}, fmt.Errorf("create installment: %w", err)
	}
	return inst, nil
}

// GetInstallment returns a non-deleted installment owned by userID.
func (r *Repository) GetInstallment(ctx context.Context, userID, id int64) (core.Installment, error) {
	return r.loadInstallment(ctx, r.db, userID, id, false)
}

func (r *Repository) loadInstallment(ctx context.Context, q querier, userID, id int64, lock bool) (core.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments i
		WHERE i.id = ? AND i.user_id = ? AND i.status <> ?`
	if lock && r.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	inst, err := scanInstallment(q.QueryRowContext(ctx, r.rebind(query), id, userID, core.StatusDeleted))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Installment{}, core.ErrNotFound
	}
	if err != nil {
		return core.Installment{}, fmt.Errorf("get installment: %w", err)
	}

	payments, err := r.payments(ctx, q, id)
	if err != nil {
		return core.Installment{}, err
	}
	applyPayments(&inst, payments)
	return inst, nil
}

// ListInstallments returns the user's installments, excluding deleted ones.
// An empty status returns both active and closed.
func (r *Repository) ListInstallments(ctx context.Context, userID int64, status core.InstallmentStatus) ([]core.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments i WHERE i.user_id = ? AND i.status <> ?`
	args := []any{userID, core.StatusDeleted}
	if status != "" {
		query += ` AND i.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY i.start_date DESC, i.id DESC`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	out := make([]core.Installment, 0)
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate installments: %w", err)
	}
	if err := r.attachPayments(ctx, out, `SELECT p.id, p.installment_id, p.amount, p.date, p.transaction_id
		FROM installment_payments p JOIN installments i ON i.id = p.installment_id
		WHERE i.user_id = ?`, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveInstallments returns every active installment with its owner, for reminders.
func (r *Repository) ActiveInstallments(ctx context.Context) ([]ReminderTarget, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT `+installmentColumns+`, u.id, u.name, u.email FROM installments i
			JOIN users u ON u.id = i.user_id WHERE i.status = ? ORDER BY i.id`),
		core.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active installments: %w", err)
	}
	defer rows.Close()

	var targets []ReminderTarget
	for rows.Next() {
		var u core.User
		inst, err := scanInstallment(rows, &u.ID, &u.Name, &u.Email)
		if err != nil {
			return nil, fmt.Errorf("scan reminder target: %w", err)
		}
		targets = append(targets, ReminderTarget{Installment: inst, User: u})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active installments: %w", err)
	}

	insts := make([]core.Installment, len(targets))
	for i, t := range targets {
		insts[i] = t.Installment
	}
	if err := r.attachPayments(ctx, insts, `SELECT p.id, p.installment_id, p.amount, p.date, p.transaction_id
		FROM installment_payments p JOIN installments i ON i.id = p.installment_id
		WHERE i.status = ?`, core.StatusActive); err != nil {
		return nil, err
	}
	for i := range targets {
		targets[i].Installment = insts[i]
	}
	return targets, nil
}

// UpdateInstallment applies edited fields under the installment's rules.
func (r *Repository) UpdateInstallment(ctx context.Context, userID, id int64, in core.InstallmentInput) (core.Installment, error) {
	var inst core.Installment
	err := r.withTx(ctx, func(q querier) error {
		var err error
		inst, err = r.loadInstallment(ctx, q, userID, id, true)
		if err != nil {
			return err
		}
		if err := inst.Update(in); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx,
			r.rebind(`UPDATE installments SET name = ?, principal = ?, interest_rate = ?, monthly_payment = ?,
				total_months = ?, start_date = ?, due_day = ?, status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?`),
			inst.Name, inst.Principal, inst.InterestRate, inst.MonthlyPayment, inst.TotalMonths,
			inst.StartDate, inst.DueDay, inst.Status, nullableString(inst.Notes), inst.ID)
		if err != nil {
			return fmt.Errorf("update installment: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Installment{}, err
	}
	return inst, nil
}

// DeleteInstallment soft-deletes the installment and keeps its history.
func (r *Repository) DeleteInstallment(ctx context.Context, userID, id int64) error {
	return r.withTx(ctx, func(q querier) error {
		inst, err := r.loadInstallment(ctx, q, userID, id, true)
		if err != nil {
			return err
		}
		if err := inst.Delete(); err != nil {
			return err
		}
		return r.saveStatus(ctx, q, inst)
	})
}

// RecordPayment appends a payment without an expense attached.
func (r *Repository) RecordPayment(ctx context.Context, userID, id int64, amount core.Money, date core.Date) (core.Payment, error) {
	var payment core.Payment
	err := r.withTx(ctx, func(q querier) error {
		inst, err := r.loadInstallment(ctx, q, userID, id, true)
		if err != nil {
			return err
		}
		payment, err = inst.RecordPayment(amount, date)
		if err != nil {
			return err
		}
		if payment, err = r.insertPayment(ctx, q, payment); err != nil {
			return err
		}
		return r.saveStatus(ctx, q, inst)
	})
	if err != nil {
		return core.Payment{}, err
	}
	return payment, nil
}

// ListPayments returns the payment history of a user's installment, oldest first.
func (r *Repository) ListPayments(ctx context.Context, userID, id int64) ([]core.Payment, error) {
	inst, err := r.loadInstallment(ctx, r.db, userID, id, false)
	if err != nil {
		return nil, err
	}
	return r.payments(ctx, r.db, inst.ID)
}

func (r *Repository) insertPayment(ctx context.Context, q querier, p core.Payment) (core.Payment, error) {
	err := q.QueryRowContext(ctx,
		r.rebind(`INSERT INTO installment_payments (installment_id, amount, date, transaction_id)
			VALUES (?, ?, ?, ?) RETURNING id`),
		p.InstallmentID, p.Amount, p.Date, nullableID(p.TransactionID),
	).Scan(&p.ID)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (r *Repository) saveStatus(ctx context.Context, q querier, inst core.Installment) error {
	_, err := q.ExecContext(ctx,
		r.rebind(`UPDATE installments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		inst.Status, inst.ID)
	if err != nil {
		return fmt.Errorf("update installment status: %w", err)
	}
	return nil
}

func (r *Repository) payments(ctx context.Context, q querier, installmentID int64) ([]core.Payment, error) {
	rows, err := q.QueryContext(ctx,
		r.rebind(`SELECT id, installment_id, amount, date, transaction_id FROM installment_payments
			WHERE installment_id = ? ORDER BY date, id`), installmentID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *Repository) attachPayments(ctx context.Context, insts []core.Installment, query string, args ...any) error {
	if len(insts) == 0 {
		return nil
	}
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	payments, err := scanPayments(rows)
	if err != nil {
		return err
	}

	byInstallment := make(map[int64][]core.Payment)
	for _, p := range payments {
		byInstallment[p.InstallmentID] = append(byInstallment[p.InstallmentID], p)
	}
	for i := range insts {
		applyPayments(&insts[i], byInstallment[insts[i].ID])
	}
	return nil
}

func scanPayments(rows *sql.Rows) ([]core.Payment, error) {
	out := make([]core.Payment, 0)
	for rows.Next() {
		var (
			p  core.Payment
			tx sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.InstallmentID, &p.Amount, &p.Date, &tx); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if tx.Valid {
			id := tx.Int64
			p.TransactionID = &id
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// applyPayments derives the paid counters from the history.
func applyPayments(inst *core.Installment, payments []core.Payment) {
	inst.PaidMonths = len(payments)
	inst.TotalPaid = core.Zero
	for _, p := range payments {
		inst.TotalPaid = inst.TotalPaid.Add(p.Amount)
	}
}
