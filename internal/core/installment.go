package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Installment is a loan repaid in fixed monthly payments.
//
// PaidMonths is the number of recorded payments; it is loaded from the payment
// history and never edited directly. RemainingMonths is derived from it.
type Installment struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"-"`
	Name           string            `json:"name"`
	Principal      Money             `json:"principal"`
	InterestRate   decimal.Decimal   `json:"interest_rate"`
	MonthlyPayment Money             `json:"monthly_payment"`
	TotalMonths    int               `json:"total_months"`
	PaidMonths     int               `json:"paid_months"`
	TotalPaid      Money             `json:"total_paid"`
	StartDate      Date              `json:"start_date"`
	DueDay         int               `json:"due_day"`
	Status         InstallmentStatus `json:"status"`
	Notes          *string           `json:"notes"`
}

// InstallmentInput carries the user-editable fields for create and update.
type InstallmentInput struct {
	Name           string            `json:"name"`
	Principal      Money             `json:"principal"`
	InterestRate   decimal.Decimal   `json:"interest_rate"`
	MonthlyPayment Money             `json:"monthly_payment"`
	TotalMonths    int               `json:"total_months"`
	StartDate      Date              `json:"start_date"`
	DueDay         int               `json:"due_day"`
	Status         InstallmentStatus `json:"status,omitempty"`
	Notes          *string           `json:"notes"`
}

// Payment is an immutable entry in an installment's history.
type Payment struct {
	ID            int64  `json:"id"`
	InstallmentID int64  `json:"installment_id"`
	Amount        Money  `json:"amount"`
	Date          Date   `json:"date"`
	TransactionID *int64 `json:"transaction_id,omitempty"`
}

// InstallmentView is what list and detail endpoints return.
type InstallmentView struct {
	Installment
	RemainingMonths  int   `json:"remaining_months"`
	RemainingBalance Money `json:"remaining_balance"`
	NextDueDate      Date  `json:"next_due_date"`
}

// PaymentInput records a payment. A zero amount means the monthly payment,
// a zero date means today.
type PaymentInput struct {
	Amount Money `json:"amount"`
	Date   Date  `json:"date"`
}

// DerivedFields is what picking an installment fills into an expense form.
type DerivedFields struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

func (in InstallmentInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "is required")
	}
	if len(in.Name) > 100 {
		return invalid("name", "too long (max 100 characters)")
	}
	if !in.Principal.IsPositive() {
		return invalid("principal", "must be greater than 0")
	}
	if in.InterestRate.IsNegative() {
		return invalid("interest_rate", "must not be negative")
	}
	if !in.MonthlyPayment.IsPositive() {
		return invalid("monthly_payment", "must be greater than 0")
	}
	if in.TotalMonths <= 0 {
		return invalid("total_months", "must be greater than 0")
	}
	if in.StartDate.IsZero() {
		return invalid("start_date", "is required")
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return invalid("due_day", "must be between 1 and 31")
	}
	switch in.Status {
	case "", StatusActive, StatusClosed:
	default:
		return invalid("status", "must be active or closed")
	}
	return nil
}

// NewInstallment validates the input and starts the installment as active with
// its full tenor remaining.
func NewInstallment(userID int64, in InstallmentInput) (Installment, error) {
	if err := in.Validate(); err != nil {
		return Installment{}, err
	}
	inst := Installment{
		UserID:    userID,
		Status:    StatusActive,
		TotalPaid: Zero,
	}
	inst.assign(in)
	return inst, nil
}

func (i *Installment) assign(in InstallmentInput) {
	i.Name = strings.TrimSpace(in.Name)
	i.Principal = in.Principal
	i.InterestRate = in.InterestRate
	i.MonthlyPayment = in.MonthlyPayment
	i.TotalMonths = in.TotalMonths
	i.StartDate = in.StartDate
	i.DueDay = in.DueDay
	i.Notes = in.Notes
	if i.Notes != nil && strings.TrimSpace(*i.Notes) == "" {
		i.Notes = nil
	}
}

// RemainingMonths is total_months minus recorded payments, never below zero.
func (i Installment) RemainingMonths() int {
	if r := i.TotalMonths - i.PaidMonths; r > 0 {
		return r
	}
	return 0
}

// RemainingBalance is the scheduled amount still to be paid.
func (i Installment) RemainingBalance() Money {
	return i.MonthlyPayment.Mul(int64(i.RemainingMonths()))
}

// Update applies edited fields. The tenor may be corrected but never below the
// payments already recorded. Closing is allowed at any time; an installment can
// only be active while months remain. An empty status keeps the current one.
func (i *Installment) Update(in InstallmentInput) error {
	if i.Status == StatusDeleted {
		return ErrNotFound
	}
	if err := in.Validate(); err != nil {
		return err
	}
	if in.TotalMonths < i.PaidMonths {
		return invalid("total_months", "cannot be less than payments already recorded")
	}
	i.assign(in)
	switch {
	case in.Status == StatusClosed:
		i.Status = StatusClosed
	case i.RemainingMonths() == 0:
		if in.Status == StatusActive {
			return invalid("status", "no remaining months to keep the installment active")
		}
		i.Status = StatusClosed
	case in.Status == StatusActive:
		i.Status = StatusActive
	}
	return nil
}

// RecordPayment appends a payment and advances the derived counters. The
// installment closes itself when the last month is paid.
func (i *Installment) RecordPayment(amount Money, date Date) (Payment, error) {
	if i.Status == StatusDeleted {
		return Payment{}, ErrNotFound
	}
	if i.Status != StatusActive || i.RemainingMonths() == 0 {
		return Payment{}, ErrInstallmentClosed
	}
	if err := amount.Validate(); err != nil {
		return Payment{}, invalid("amount", err.Error())
	}
	if date.IsZero() {
		return Payment{}, invalid("date", "is required")
	}
	i.PaidMonths++
	i.TotalPaid = i.TotalPaid.Add(amount)
	if i.RemainingMonths() == 0 {
		i.Status = StatusClosed
	}
	return Payment{InstallmentID: i.ID, Amount: amount, Date: date}, nil
}

// Delete soft-deletes the installment. Payment history is kept.
func (i *Installment) Delete() error {
	if i.Status == StatusDeleted {
		return ErrNotFound
	}
	i.Status = StatusDeleted
	return nil
}

// DueDateIn returns the due date in the given month. A due day past the end of
// the month is clamped to the month's last day.
func (i Installment) DueDateIn(year int, month time.Month) Date {
	return ClampedDueDate(year, month, i.DueDay)
}

// NextDueDate returns the first due date on or after from, never earlier than
// the month of the start date.
func (i Installment) NextDueDate(from Date) Date {
	if from.Before(i.StartDate.Time) {
		from = i.StartDate
	}
	due := i.DueDateIn(from.Year(), from.Time.Month())
	if due.Before(from.Time) {
		next := from.Time.AddDate(0, 0, 1-from.Day()).AddDate(0, 1, 0)
		due = i.DueDateIn(next.Year(), next.Month())
	}
	return due
}

// View attaches the derived fields relative to today.
func (i Installment) View(today Date) InstallmentView {
	v := InstallmentView{
		Installment:      i,
		RemainingMonths:  i.RemainingMonths(),
		RemainingBalance: i.RemainingBalance(),
	}
	if i.Status == StatusActive {
		v.NextDueDate = i.NextDueDate(today)
	}
	return v
}

// ClampedDueDate resolves dueDay within the month, clamping to its last day.
func ClampedDueDate(year int, month time.Month, dueDay int) Date {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if dueDay > last {
		dueDay = last
	}
	if dueDay < 1 {
		dueDay = 1
	}
	return NewDate(year, int(month), dueDay)
}

// DeriveFromInstallment returns the category and amount an expense paying this
// installment should carry.
func DeriveFromInstallment(i Installment) DerivedFields {
	return DerivedFields{Category: InstallmentCategory, Amount: i.MonthlyPayment}
}

// ApplyInstallment fills an expense input from the installment it pays. The
// category is forced; the amount defaults to the monthly payment when unset.
func (in TransactionInput) ApplyInstallment(i Installment) TransactionInput {
	d := DeriveFromInstallment(i)
	in.Category = d.Category
	if !in.Amount.IsPositive() {
		in.Amount = d.Amount
	}
	id := i.ID
	in.InstallmentID = &id
	return in
}

// FirstDueDate is the first due date on or after the start date.
func (i Installment) FirstDueDate() Date {
	return i.NextDueDate(i.StartDate)
}

// DueCount is how many due dates have passed on or before today, capped at
// the tenor.
func (i Installment) DueCount(today Date) int {
	n := 0
	due := i.FirstDueDate()
	for n < i.TotalMonths && !due.After(today.Time) {
		n++
		next := due.Time.AddDate(0, 0, 1-due.Day()).AddDate(0, 1, 0)
		due = i.DueDateIn(next.Year(), next.Month())
	}
	return n
}

// MissedPayments counts due dates up to today not covered by a payment.
func (i Installment) MissedPayments(today Date) int {
	if i.Status != StatusActive {
		return 0
	}
	missed := i.DueCount(today) - i.PaidMonths
	if missed < 0 {
		return 0
	}
	return missed
}
