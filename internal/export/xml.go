package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"dompet/internal/core"
)

// WriteXML writes s as an indented <statement> document.
func WriteXML(w io.Writer, s Statement) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("user", s.UserName)
	root.CreateAttr("start", s.Range.Start.String())
	root.CreateAttr("end", s.Range.End.String())
	root.CreateAttr("generated", s.GeneratedAt.UTC().Format(time.RFC3339))

	totals := root.CreateElement("totals")
	totals.CreateElement("income").SetText(s.TotalIncome.String())
	totals.CreateElement("expense").SetText(s.TotalExpense.String())
	totals.CreateElement("net").SetText(s.Net().String())

	txs := root.CreateElement("transactions")
	txs.CreateAttr("count", strconv.Itoa(len(s.Transactions)))
	for _, t := range s.Transactions {
		el := txs.CreateElement("transaction")
		el.CreateAttr("id", strconv.FormatInt(t.ID, 10))
		el.CreateAttr("type", string(t.Kind))
		if t.InstallmentID != nil {
			el.CreateAttr("installment", strconv.FormatInt(*t.InstallmentID, 10))
		}
		el.CreateElement("date").SetText(t.Date.String())
		el.CreateElement("category").SetText(core.NormalizeCategory(t.Category))
		el.CreateElement("amount").SetText(t.Amount.String())
	}

	insts := root.CreateElement("installments")
	for _, v := range s.Installments {
		el := insts.CreateElement("installment")
		el.CreateAttr("id", strconv.FormatInt(v.ID, 10))
		el.CreateAttr("status", string(v.Status))
		el.CreateElement("name").SetText(v.Name)
		el.CreateElement("monthly_payment").SetText(v.MonthlyPayment.String())
		el.CreateElement("paid_months").SetText(strconv.Itoa(v.PaidMonths))
		el.CreateElement("remaining_months").SetText(strconv.Itoa(v.RemainingMonths))
		el.CreateElement("remaining_balance").SetText(v.RemainingBalance.String())
		if !v.NextDueDate.IsZero() {
			el.CreateElement("next_due_date").SetText(v.NextDueDate.String())
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write statement xml: %w", err)
	}
	return nil
}
