package core

import (
	"sort"
	"time"
)

const (
	AffordabilityOK      AffordabilityStatus = "OK"
	AffordabilityWarning AffordabilityStatus = "WARNING"
)

type AffordabilityStatus string

// Overview is the bar chart payload of a transaction screen.
type Overview struct {
	Range       DateRange     `json:"range"`
	TotalAmount Money         `json:"totalAmount"`
	BarChart    []DailyAmount `json:"barChart"`
}

// KindSummary is the list-and-donut payload of a transaction screen.
type KindSummary struct {
	Range      DateRange        `json:"range"`
	Recent     []Transaction    `json:"recent"`
	DonutChart []CategoryAmount `json:"donutChart"`
	Total      Money            `json:"total"`
}

// InstallmentSummary answers whether the balance covers this month's dues.
type InstallmentSummary struct {
	TotalDueThisMonth           Money               `json:"totalThisMonth"`
	RemainingBalanceAfterPaying Money               `json:"remainingBalance"`
	Status                      AffordabilityStatus `json:"status"`
}

// Activity is one row of the dashboard's latest list.
type Activity struct {
	ID       int64  `json:"id"`
	Type     Kind   `json:"type"`
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
	Date     Date   `json:"date"`
}

type DashboardSummary struct {
	UserName           string             `json:"userName,omitempty"`
	TotalBalance       Money              `json:"totalBalance"`
	TotalIncome        Money              `json:"totalIncome"`
	TotalExpense       Money              `json:"totalExpense"`
	Latest             []Activity         `json:"latest"`
	InstallmentSummary InstallmentSummary `json:"installmentSummary"`
}

// ComputeThisMonthDue sums the monthly payment of every active installment.
func ComputeThisMonthDue(installments []Installment) Money {
	total := Zero
	for _, i := range installments {
		if i.Status == StatusActive {
			total = total.Add(i.MonthlyPayment)
		}
	}
	return total
}

// Affordability subtracts the dues from the balance. A negative remainder is a
// WARNING; exactly zero is still OK.
func Affordability(balance, thisMonthDue Money) InstallmentSummary {
	remaining := balance.Sub(thisMonthDue)
	status := AffordabilityOK
	if remaining.IsNegative() {
		status = AffordabilityWarning
	}
	return InstallmentSummary{
		TotalDueThisMonth:           thisMonthDue,
		RemainingBalanceAfterPaying: remaining,
		Status:                      status,
	}
}

// RecentTransactions returns up to limit transactions, newest date first, ties
// broken by higher id.
func RecentTransactions(txs []Transaction, limit int) []Transaction {
	sorted := append([]Transaction(nil), txs...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if !sorted[a].Date.Equal(sorted[b].Date.Time) {
			return sorted[a].Date.After(sorted[b].Date.Time)
		}
		return sorted[a].ID > sorted[b].ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// BuildSummary assembles the list and donut for one transaction kind in r.
func BuildSummary(txs []Transaction, r DateRange, recentLimit int) KindSummary {
	in := FilterInRange(txs, r)
	donut := BuildDonut(in)
	return KindSummary{
		Range:      r,
		Recent:     RecentTransactions(in, recentLimit),
		DonutChart: donut,
		Total:      TotalFromDonut(donut),
	}
}

// BuildOverview assembles the per-day series for r.
func BuildOverview(txs []Transaction, r DateRange) (Overview, error) {
	series, err := BuildBarSeries(txs, r)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Range: r, TotalAmount: TotalFromSeries(series), BarChart: series}, nil
}

// BuildDashboard computes all-time totals, the merged latest activity and the
// installment affordability signal.
func BuildDashboard(userName string, incomes, expenses []Transaction, installments []Installment, latestLimit int) DashboardSummary {
	totalIncome := Zero
	for _, t := range incomes {
		totalIncome = totalIncome.Add(t.Amount)
	}
	totalExpense := Zero
	for _, t := range expenses {
		totalExpense = totalExpense.Add(t.Amount)
	}
	balance := totalIncome.Sub(totalExpense)

	all := make([]Transaction, 0, len(incomes)+len(expenses))
	all = append(all, incomes...)
	all = append(all, expenses...)
	recent := RecentTransactions(all, latestLimit)
	latest := make([]Activity, len(recent))
	for i, t := range recent {
		latest[i] = Activity{ID: t.ID, Type: t.Kind, Category: t.Category, Amount: t.Amount, Date: t.Date}
	}

	return DashboardSummary{
		UserName:           userName,
		TotalBalance:       balance,
		TotalIncome:        totalIncome,
		TotalExpense:       totalExpense,
		Latest:             latest,
		InstallmentSummary: Affordability(balance, ComputeThisMonthDue(installments)),
	}
}

// MonthOf returns the first and last day of t's month.
func MonthOf(t time.Time) DateRange {
	first := NewDate(t.Year(), int(t.Month()), 1)
	return DateRange{Start: first, End: ClampedDueDate(t.Year(), t.Month(), 31)}
}

// Insights are the derived figures shown under a transaction screen's charts.
type Insights struct {
	Range         DateRange       `json:"range"`
	Total         Money           `json:"total"`
	AveragePerDay Money           `json:"averagePerDay"`
	MaxDay        Money           `json:"maxDay"`
	TopCategory   *CategoryAmount `json:"topCategory"`
	Shares        []CategoryShare `json:"shares"`
}

// BuildInsights derives the screen insights for the transactions in r.
func BuildInsights(txs []Transaction, r DateRange) (Insights, error) {
	series, err := BuildBarSeries(txs, r)
	if err != nil {
		return Insights{}, err
	}
	donut := BuildDonut(FilterInRange(txs, r))
	total := TotalFromSeries(series)
	in := Insights{
		Range:         r,
		Total:         total,
		AveragePerDay: AveragePerDay(total, r),
		MaxDay:        MaxForChart(series),
		Shares:        Percentages(donut),
	}
	if top, ok := TopCategory(donut); ok {
		in.TopCategory = &top
	}
	return in, nil
}
