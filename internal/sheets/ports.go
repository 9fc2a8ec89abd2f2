package sheets

import (
	"context"

	"dompet/internal/core"
)

// Ports for the spreadsheet mirror.
type (
	TransactionWriter interface {
		// Append writes t as a new row, or overwrites the row already
		// holding t.ID, and returns the row reference.
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionDeleter interface {
		// Delete clears the row holding id. Missing rows are not an error.
		Delete(ctx context.Context, id int64) error
	}

	Mirror interface {
		TransactionWriter
		TransactionDeleter
	}
)

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "Type", "Date", "Category", "Amount", "Installment"}

// Row renders t in Header order. Amounts stay plain decimals so the sheet can sum them.
func Row(t core.Transaction) []any {
	inst := ""
	if t.InstallmentID != nil {
		inst = formatID(*t.InstallmentID)
	}
	return []any{formatID(t.ID), string(t.Kind), t.Date.String(), core.NormalizeCategory(t.Category), t.Amount.String(), inst}
}
