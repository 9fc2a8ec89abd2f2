package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validInstallmentInput() InstallmentInput {
	return InstallmentInput{
		Name:           "Motor",
		Principal:      NewMoney(12000000),
		InterestRate:   decimal.NewFromFloat(5.5),
		MonthlyPayment: NewMoney(1000000),
		TotalMonths:    12,
		StartDate:      NewDate(2024, 4, 1),
		DueDay:         31,
	}
}

func TestNewInstallment(t *testing.T) {
	inst, err := NewInstallment(7, validInstallmentInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Status != StatusActive {
		t.Fatalf("expected active, got %s", inst.Status)
	}
	if inst.RemainingMonths() != inst.TotalMonths {
		t.Fatalf("expected remaining %d, got %d", inst.TotalMonths, inst.RemainingMonths())
	}
	if !inst.RemainingBalance().Equal(NewMoney(12000000)) {
		t.Fatalf("unexpected remaining balance %s", inst.RemainingBalance())
	}
	if inst.UserID != 7 {
		t.Fatalf("user id not set")
	}
}

func TestInstallmentInputValidate(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*InstallmentInput)
	}{
		{"name", func(in *InstallmentInput) { in.Name = " " }},
		{"principal", func(in *InstallmentInput) { in.Principal = Zero }},
		{"interest_rate", func(in *InstallmentInput) { in.InterestRate = decimal.NewFromInt(-1) }},
		{"monthly_payment", func(in *InstallmentInput) { in.MonthlyPayment = Zero }},
		{"total_months", func(in *InstallmentInput) { in.TotalMonths = 0 }},
		{"start_date", func(in *InstallmentInput) { in.StartDate = Date{} }},
		{"due_day", func(in *InstallmentInput) { in.DueDay = 0 }},
		{"due_day", func(in *InstallmentInput) { in.DueDay = 32 }},
		{"status", func(in *InstallmentInput) { in.Status = StatusDeleted }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			in := validInstallmentInput()
			tc.mutate(&in)
			_, err := NewInstallment(1, in)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestRecordPaymentClosesOnLastMonth(t *testing.T) {
	in := validInstallmentInput()
	in.TotalMonths = 2
	inst, _ := NewInstallment(1, in)

	if _, err := inst.RecordPayment(NewMoney(1000000), NewDate(2024, 4, 30)); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if inst.RemainingMonths() != 1 || inst.Status != StatusActive {
		t.Fatalf("expected 1 remaining and active, got %d %s", inst.RemainingMonths(), inst.Status)
	}
	p, err := inst.RecordPayment(NewMoney(1000000), NewDate(2024, 5, 31))
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if p.Date.String() != "2024-05-31" {
		t.Fatalf("payment date not kept")
	}
	if inst.RemainingMonths() != 0 || inst.Status != StatusClosed {
		t.Fatalf("expected closed, got %d %s", inst.RemainingMonths(), inst.Status)
	}
	if !inst.TotalPaid.Equal(NewMoney(2000000)) {
		t.Fatalf("unexpected total paid %s", inst.TotalPaid)
	}
	if _, err := inst.RecordPayment(NewMoney(1), NewDate(2024, 6, 1)); !errors.Is(err, ErrInstallmentClosed) {
		t.Fatalf("expected ErrInstallmentClosed, got %v", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	if _, err := inst.RecordPayment(Zero, NewDate(2024, 4, 1)); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := inst.RecordPayment(NewMoney(1), Date{}); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if inst.PaidMonths != 0 {
		t.Fatalf("rejected payment must not count")
	}
}

func TestInstallmentUpdate(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	for i := 0; i < 3; i++ {
		if _, err := inst.RecordPayment(NewMoney(1000000), NewDate(2024, 4+i, 1)); err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
	}

	in := validInstallmentInput()
	in.TotalMonths = 2
	if err := inst.Update(in); !IsValidation(err) {
		t.Fatalf("tenor below payments must be rejected, got %v", err)
	}

	in.TotalMonths = 3
	if err := inst.Update(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Status != StatusClosed {
		t.Fatalf("tenor equal to payments should close, got %s", inst.Status)
	}

	in.Status = StatusActive
	if err := inst.Update(in); !IsValidation(err) {
		t.Fatalf("reopening without remaining months must fail, got %v", err)
	}

	in.TotalMonths = 6
	if err := inst.Update(in); err != nil || inst.Status != StatusActive {
		t.Fatalf("expected reopen, got %s %v", inst.Status, err)
	}
	if inst.RemainingMonths() != 3 {
		t.Fatalf("expected 3 remaining, got %d", inst.RemainingMonths())
	}

	in.Status = StatusClosed
	if err := inst.Update(in); err != nil || inst.Status != StatusClosed {
		t.Fatalf("manual close failed: %s %v", inst.Status, err)
	}

	in.Name = "Motor Vario"
	in.Status = ""
	if err := inst.Update(in); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if inst.Status != StatusClosed || inst.Name != "Motor Vario" {
		t.Fatalf("edit without status must keep closed, got %s %q", inst.Status, inst.Name)
	}

	in.Status = StatusActive
	if err := inst.Update(in); err != nil || inst.Status != StatusActive {
		t.Fatalf("explicit reopen failed: %s %v", inst.Status, err)
	}
}

func TestInstallmentUpdateWithoutStatusClosesAtZero(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	if _, err := inst.RecordPayment(NewMoney(1000000), NewDate(2024, 4, 1)); err != nil {
		t.Fatal(err)
	}
	in := validInstallmentInput()
	in.TotalMonths = 1
	if err := inst.Update(in); err != nil {
		t.Fatalf("update: %v", err)
	}
	if inst.Status != StatusClosed {
		t.Fatalf("no remaining months should close, got %s", inst.Status)
	}
}

func TestInstallmentDelete(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	if err := inst.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if inst.Status != StatusDeleted {
		t.Fatalf("expected deleted")
	}
	if err := inst.Delete(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if err := inst.Update(validInstallmentInput()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update after delete should be not found, got %v", err)
	}
	if _, err := inst.RecordPayment(NewMoney(1), NewDate(2024, 4, 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("payment after delete should be not found, got %v", err)
	}
}

func TestDueDateClampsToMonthEnd(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	cases := []struct {
		year  int
		month time.Month
		want  string
	}{
		{2024, time.April, "2024-04-30"},
		{2024, time.February, "2024-02-29"},
		{2023, time.February, "2023-02-28"},
		{2024, time.May, "2024-05-31"},
	}
	for _, tc := range cases {
		got := inst.DueDateIn(tc.year, tc.month)
		if got.String() != tc.want {
			t.Fatalf("%d-%d expected %s, got %s", tc.year, tc.month, tc.want, got)
		}
		if got.Month() != tc.month {
			t.Fatalf("due date rolled into next month: %s", got)
		}
	}
}

func TestNextDueDate(t *testing.T) {
	in := validInstallmentInput()
	in.DueDay = 15
	inst, _ := NewInstallment(1, in)

	cases := []struct {
		from Date
		want string
	}{
		{NewDate(2024, 3, 1), "2024-04-15"}, // before start
		{NewDate(2024, 4, 10), "2024-04-15"},
		{NewDate(2024, 4, 15), "2024-04-15"},
		{NewDate(2024, 4, 16), "2024-05-15"},
		{NewDate(2024, 12, 20), "2025-01-15"},
	}
	for _, tc := range cases {
		if got := inst.NextDueDate(tc.from); got.String() != tc.want {
			t.Fatalf("from %s expected %s, got %s", tc.from, tc.want, got)
		}
	}
}

func TestInstallmentView(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	_, _ = inst.RecordPayment(NewMoney(1000000), NewDate(2024, 4, 30))
	v := inst.View(NewDate(2024, 5, 2))
	if v.RemainingMonths != 11 {
		t.Fatalf("expected 11, got %d", v.RemainingMonths)
	}
	if !v.RemainingBalance.Equal(NewMoney(11000000)) {
		t.Fatalf("unexpected balance %s", v.RemainingBalance)
	}
	if v.NextDueDate.String() != "2024-05-31" {
		t.Fatalf("unexpected next due %s", v.NextDueDate)
	}

	_ = inst.Update(InstallmentInput{
		Name: "Motor", Principal: NewMoney(1), MonthlyPayment: NewMoney(1), TotalMonths: 12,
		StartDate: NewDate(2024, 4, 1), DueDay: 1, Status: StatusClosed,
	})
	if v := inst.View(NewDate(2024, 5, 2)); !v.NextDueDate.IsZero() {
		t.Fatalf("closed installment should have no next due date")
	}
}

func TestDeriveFromInstallment(t *testing.T) {
	inst, _ := NewInstallment(1, validInstallmentInput())
	inst.ID = 9
	d := DeriveFromInstallment(inst)
	if d.Category != InstallmentCategory || !d.Amount.Equal(NewMoney(1000000)) {
		t.Fatalf("unexpected derived fields %+v", d)
	}

	in := TransactionInput{Category: "Food", Date: NewDate(2024, 4, 30)}.ApplyInstallment(inst)
	if in.Category != InstallmentCategory {
		t.Fatalf("category must be forced, got %s", in.Category)
	}
	if !in.Amount.Equal(NewMoney(1000000)) {
		t.Fatalf("amount should default to monthly payment, got %s", in.Amount)
	}
	if in.InstallmentID == nil || *in.InstallmentID != 9 {
		t.Fatalf("installment id not linked")
	}

	in = TransactionInput{Amount: NewMoney(500000), Date: NewDate(2024, 4, 30)}.ApplyInstallment(inst)
	if !in.Amount.Equal(NewMoney(500000)) {
		t.Fatalf("explicit amount must be kept, got %s", in.Amount)
	}
}

func TestDueCountAndMissedPayments(t *testing.T) {
	inst, err := NewInstallment(1, validInstallmentInput())
	if err != nil {
		t.Fatal(err)
	}
	if got := inst.FirstDueDate(); !got.Equal(NewDate(2024, 4, 30).Time) {
		t.Fatalf("first due = %s, want 2024-04-30", got)
	}

	tests := []struct {
		today      Date
		paid       int
		wantDue    int
		wantMissed int
	}{
		{NewDate(2024, 4, 29), 0, 0, 0},
		{NewDate(2024, 4, 30), 0, 1, 1},
		{NewDate(2024, 6, 15), 1, 2, 1},
		{NewDate(2024, 6, 15), 3, 2, 0},
		{NewDate(2030, 1, 1), 5, 12, 7},
	}
	for _, tt := range tests {
		inst.PaidMonths = tt.paid
		if got := inst.DueCount(tt.today); got != tt.wantDue {
			t.Errorf("DueCount(%s) = %d, want %d", tt.today, got, tt.wantDue)
		}
		if got := inst.MissedPayments(tt.today); got != tt.wantMissed {
			t.Errorf("MissedPayments(%s, paid=%d) = %d, want %d", tt.today, tt.paid, got, tt.wantMissed)
		}
	}

	inst.PaidMonths = 0
	inst.Status = StatusClosed
	if got := inst.MissedPayments(NewDate(2030, 1, 1)); got != 0 {
		t.Errorf("closed installment should report no missed payments, got %d", got)
	}
}
