package core

import (
	"github.com/shopspring/decimal"
)

// DailyAmount is one bar of the per-day series.
type DailyAmount struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// CategoryShare is a donut slice with its share of the total, in percent.
type CategoryShare struct {
	CategoryAmount
	Percent decimal.Decimal `json:"percent"`
}

// FilterInRange keeps the transactions dated within r.
func FilterInRange(txs []Transaction, r DateRange) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if r.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// SumTransactions adds the amounts of transactions dated within r.
func SumTransactions(txs []Transaction, r DateRange) Money {
	total := Zero
	for _, t := range txs {
		if r.Contains(t.Date) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// BuildBarSeries produces one bucket per day of r, ascending, zero-filled.
// Transactions outside r are ignored.
func BuildBarSeries(txs []Transaction, r DateRange) ([]DailyAmount, error) {
	r, err := NewDateRange(r.Start, r.End)
	if err != nil {
		return nil, err
	}
	series := make([]DailyAmount, 0, r.Days())
	index := make(map[string]int, r.Days())
	r.EachDay(func(d Date) {
		index[d.String()] = len(series)
		series = append(series, DailyAmount{Date: d, Amount: Zero})
	})
	for _, t := range txs {
		if i, ok := index[t.Date.String()]; ok {
			series[i].Amount = series[i].Amount.Add(t.Amount)
		}
	}
	return series, nil
}

// BuildDonut groups amounts by exact category string. Groups appear in the
// order their category is first encountered, so identical input yields
// identical output.
func BuildDonut(txs []Transaction) []CategoryAmount {
	donut := make([]CategoryAmount, 0)
	index := make(map[string]int)
	for _, t := range txs {
		cat := NormalizeCategory(t.Category)
		i, ok := index[cat]
		if !ok {
			i = len(donut)
			index[cat] = i
			donut = append(donut, CategoryAmount{Category: cat, Amount: Zero})
		}
		donut[i].Amount = donut[i].Amount.Add(t.Amount)
	}
	return donut
}

func TotalFromSeries(series []DailyAmount) Money {
	total := Zero
	for _, b := range series {
		total = total.Add(b.Amount)
	}
	return total
}

func TotalFromDonut(donut []CategoryAmount) Money {
	total := Zero
	for _, c := range donut {
		total = total.Add(c.Amount)
	}
	return total
}

// AveragePerDay divides total by the number of days in r, rounded to 2 places.
func AveragePerDay(total Money, r DateRange) Money {
	days := r.Days()
	if days < 1 {
		days = 1
	}
	return Money{Decimal: total.Decimal.DivRound(decimal.NewFromInt(int64(days)), 2)}
}

// TopCategory picks the entry with the strictly greatest amount. On ties the
// entry encountered first wins. ok is false for an empty donut.
func TopCategory(donut []CategoryAmount) (top CategoryAmount, ok bool) {
	for i, c := range donut {
		if i == 0 || c.Amount.GreaterThan(top.Amount) {
			top = c
			ok = true
		}
	}
	return top, ok
}

// MaxForChart returns the largest bar, used to scale the chart height.
func MaxForChart(series []DailyAmount) Money {
	max := Zero
	for _, b := range series {
		if b.Amount.GreaterThan(max) {
			max = b.Amount
		}
	}
	return max
}

// Percentages returns each slice's share of the donut total, rounded to 2 places.
func Percentages(donut []CategoryAmount) []CategoryShare {
	total := TotalFromDonut(donut)
	out := make([]CategoryShare, len(donut))
	for i, c := range donut {
		pct := decimal.Zero
		if total.IsPositive() {
			pct = c.Amount.Decimal.Mul(decimal.NewFromInt(100)).DivRound(total.Decimal, 2)
		}
		out[i] = CategoryShare{CategoryAmount: c, Percent: pct}
	}
	return out
}
