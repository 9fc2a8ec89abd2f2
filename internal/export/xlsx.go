package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"dompet/internal/core"
)

const (
	transactionsSheet = "Transactions"
	installmentsSheet = "Installments"
)

var (
	transactionHeaders = []string{"ID", "Date", "Type", "Category", "Amount", "Installment"}
	installmentHeaders = []string{"ID", "Name", "Status", "Monthly payment", "Paid months", "Remaining months", "Remaining balance", "Next due date"}
)

// WriteXLSX writes s as a workbook with a transactions sheet, totals below the
// rows, and an installments sheet. Amounts are numeric cells.
func WriteXLSX(w io.Writer, s Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, transactionsSheet, transactionHeaders); err != nil {
		return err
	}

	row := 2
	for _, t := range s.Transactions {
		inst := ""
		if t.InstallmentID != nil {
			inst = fmt.Sprint(*t.InstallmentID)
		}
		values := []any{t.ID, t.Date.String(), string(t.Kind), core.NormalizeCategory(t.Category), t.Amount.InexactFloat64(), inst}
		if err := f.SetSheetRow(transactionsSheet, cell(1, row), &values); err != nil {
			return fmt.Errorf("write transaction row %d: %w", row, err)
		}
		row++
	}

	row++
	totals := [][]any{
		{"Total income", s.TotalIncome.InexactFloat64()},
		{"Total expense", s.TotalExpense.InexactFloat64()},
		{"Net", s.Net().InexactFloat64()},
	}
	for _, t := range totals {
		values := []any{nil, nil, nil, t[0], t[1]}
		if err := f.SetSheetRow(transactionsSheet, cell(1, row), &values); err != nil {
			return fmt.Errorf("write totals: %w", err)
		}
		row++
	}

	if _, err := f.NewSheet(installmentsSheet); err != nil {
		return fmt.Errorf("create installments sheet: %w", err)
	}
	if err := writeHeader(f, installmentsSheet, installmentHeaders); err != nil {
		return err
	}
	for i, v := range s.Installments {
		next := ""
		if !v.NextDueDate.IsZero() {
			next = v.NextDueDate.String()
		}
		values := []any{v.ID, v.Name, string(v.Status), v.MonthlyPayment.InexactFloat64(), v.PaidMonths,
			v.RemainingMonths, v.RemainingBalance.InexactFloat64(), next}
		if err := f.SetSheetRow(installmentsSheet, cell(1, i+2), &values); err != nil {
			return fmt.Errorf("write installment row: %w", err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write statement xlsx: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cell(i+1, 1), h); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
