package core

import "testing"

func TestAffordability(t *testing.T) {
	cases := []struct {
		name      string
		balance   int64
		due       int64
		remaining int64
		status    AffordabilityStatus
	}{
		{"short", 500000, 600000, -100000, AffordabilityWarning},
		{"exact", 600000, 600000, 0, AffordabilityOK},
		{"enough", 700000, 600000, 100000, AffordabilityOK},
		{"no dues", 0, 0, 0, AffordabilityOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Affordability(NewMoney(tc.balance), NewMoney(tc.due))
			if got.Status != tc.status {
				t.Fatalf("expected %s, got %s", tc.status, got.Status)
			}
			if !got.RemainingBalanceAfterPaying.Equal(NewMoney(tc.remaining)) {
				t.Fatalf("expected remaining %d, got %s", tc.remaining, got.RemainingBalanceAfterPaying)
			}
		})
	}
}

func TestComputeThisMonthDue(t *testing.T) {
	installments := []Installment{
		{MonthlyPayment: NewMoney(100000), Status: StatusActive},
		{MonthlyPayment: NewMoney(200000), Status: StatusActive},
		{MonthlyPayment: NewMoney(400000), Status: StatusClosed},
		{MonthlyPayment: NewMoney(800000), Status: StatusDeleted},
	}
	if got := ComputeThisMonthDue(installments); !got.Equal(NewMoney(300000)) {
		t.Fatalf("expected 300000, got %s", got)
	}
}

func TestRecentTransactions(t *testing.T) {
	txs := []Transaction{
		{ID: 1, Date: NewDate(2024, 1, 1)},
		{ID: 2, Date: NewDate(2024, 1, 3)},
		{ID: 3, Date: NewDate(2024, 1, 3)},
		{ID: 4, Date: NewDate(2024, 1, 2)},
	}
	got := RecentTransactions(txs, 3)
	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	if len(got) != 3 || ids[0] != 3 || ids[1] != 2 || ids[2] != 4 {
		t.Fatalf("unexpected order %v", ids)
	}
	if txs[0].ID != 1 {
		t.Fatalf("input must not be reordered")
	}
}

func TestBuildDashboard(t *testing.T) {
	incomes := []Transaction{
		{ID: 1, Kind: Income, Category: "Gaji", Amount: NewMoney(1000000), Date: NewDate(2024, 1, 1)},
	}
	expenses := []Transaction{
		{ID: 2, Kind: Expense, Category: "Food", Amount: NewMoney(300000), Date: NewDate(2024, 1, 2)},
		{ID: 3, Kind: Expense, Category: "Food", Amount: NewMoney(200000), Date: NewDate(2024, 1, 3)},
	}
	installments := []Installment{{MonthlyPayment: NewMoney(600000), Status: StatusActive}}

	d := BuildDashboard("Budi", incomes, expenses, installments, 2)
	if !d.TotalBalance.Equal(NewMoney(500000)) {
		t.Fatalf("unexpected balance %s", d.TotalBalance)
	}
	if !d.TotalIncome.Equal(NewMoney(1000000)) || !d.TotalExpense.Equal(NewMoney(500000)) {
		t.Fatalf("unexpected totals %s %s", d.TotalIncome, d.TotalExpense)
	}
	if len(d.Latest) != 2 || d.Latest[0].ID != 3 || d.Latest[1].ID != 2 {
		t.Fatalf("unexpected latest %+v", d.Latest)
	}
	if d.InstallmentSummary.Status != AffordabilityWarning {
		t.Fatalf("expected WARNING, got %s", d.InstallmentSummary.Status)
	}
	if !d.InstallmentSummary.RemainingBalanceAfterPaying.Equal(NewMoney(-100000)) {
		t.Fatalf("unexpected remaining %s", d.InstallmentSummary.RemainingBalanceAfterPaying)
	}
}

func TestBuildSummaryAndOverview(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 2)}
	txs := append(scenarioTransactions(), Transaction{ID: 9, Amount: NewMoney(1), Date: NewDate(2024, 2, 1), Category: "Food"})

	s := BuildSummary(txs, r, 5)
	if len(s.Recent) != 3 || !s.Total.Equal(NewMoney(100000)) || len(s.DonutChart) != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}

	o, err := BuildOverview(txs, r)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if !o.TotalAmount.Equal(s.Total) || len(o.BarChart) != 2 {
		t.Fatalf("overview disagrees with summary: %+v", o)
	}
}

func TestMonthOf(t *testing.T) {
	r := MonthOf(NewDate(2024, 2, 10).Time)
	if r.Start.String() != "2024-02-01" || r.End.String() != "2024-02-29" {
		t.Fatalf("unexpected month %s..%s", r.Start, r.End)
	}
}

func TestBuildInsights(t *testing.T) {
	r := DateRange{Start: NewDate(2024, 1, 1), End: NewDate(2024, 1, 2)}
	in, err := BuildInsights(scenarioTransactions(), r)
	if err != nil {
		t.Fatal(err)
	}
	if !in.Total.Equal(NewMoney(100000)) {
		t.Errorf("total = %s", in.Total)
	}
	if !in.AveragePerDay.Equal(NewMoney(50000)) {
		t.Errorf("average = %s", in.AveragePerDay)
	}
	if in.TopCategory == nil || in.TopCategory.Category != "Food" {
		t.Errorf("top category = %+v", in.TopCategory)
	}
	if len(in.Shares) != 2 {
		t.Errorf("shares = %+v", in.Shares)
	}

	empty, err := BuildInsights(nil, r)
	if err != nil {
		t.Fatal(err)
	}
	if empty.TopCategory != nil || !empty.MaxDay.IsZero() {
		t.Errorf("empty insights = %+v", empty)
	}

	if _, err := BuildInsights(nil, DateRange{Start: r.End, End: r.Start}); err == nil {
		t.Error("expected error for reversed range")
	}
}
