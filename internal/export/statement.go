// Package export renders account statements as XML and XLSX documents.
package export

import (
	"time"

	"dompet/internal/core"
)

// Statement is the data behind one exported document.
type Statement struct {
	UserName     string
	Range        core.DateRange
	GeneratedAt  time.Time
	Transactions []core.Transaction
	Installments []core.InstallmentView
	TotalIncome  core.Money
	TotalExpense core.Money
}

// NewStatement keeps the transactions dated within r, oldest first, and totals them by kind.
func NewStatement(userName string, r core.DateRange, txs []core.Transaction, installments []core.InstallmentView, now time.Time) Statement {
	in := core.FilterInRange(txs, r)
	ordered := core.RecentTransactions(in, 0)
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}

	s := Statement{
		UserName:     userName,
		Range:        r,
		GeneratedAt:  now,
		Transactions: ordered,
		Installments: installments,
		TotalIncome:  core.Zero,
		TotalExpense: core.Zero,
	}
	for _, t := range ordered {
		switch t.Kind {
		case core.Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case core.Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	return s
}

// Net is income minus expense over the statement range.
func (s Statement) Net() core.Money {
	return s.TotalIncome.Sub(s.TotalExpense)
}
