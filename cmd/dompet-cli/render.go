package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"dompet/internal/client"
	"dompet/internal/core"
)

var (
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00"))
	spentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

func kindStyle(k core.Kind) lipgloss.Style {
	if k == core.Income {
		return incomeStyle
	}
	return spentStyle
}

func renderDashboard(d client.Display, data client.DashboardData) string {
	s := data.Summary
	var b strings.Builder
	if s.UserName != "" {
		b.WriteString(headerStyle.Render("Hi, "+s.UserName) + "\n\n")
	}
	balance := incomeStyle
	if s.TotalBalance.IsNegative() {
		balance = spentStyle
	}
	fmt.Fprintf(&b, "Balance: %s\n", balance.Render(d.Money(s.TotalBalance)))
	fmt.Fprintf(&b, "Income:  %s\n", incomeStyle.Render(d.Money(s.TotalIncome)))
	fmt.Fprintf(&b, "Expense: %s\n", spentStyle.Render(d.Money(s.TotalExpense)))

	inst := s.InstallmentSummary
	status := incomeStyle
	if inst.Status == core.AffordabilityWarning {
		status = spentStyle
	}
	fmt.Fprintf(&b, "\nInstallments due this month: %s\n", d.Money(inst.TotalDueThisMonth))
	fmt.Fprintf(&b, "After paying: %s %s\n", d.Money(inst.RemainingBalanceAfterPaying), status.Render(string(inst.Status)))

	top := summaryStyle.Render(strings.TrimRight(b.String(), "\n"))

	sections := []string{top}
	if len(s.Latest) > 0 {
		var latest strings.Builder
		latest.WriteString(headerStyle.Render("Latest") + "\n")
		for _, a := range s.Latest {
			fmt.Fprintf(&latest, "%s  %-20s %s\n", d.Date(a.Date), d.Category(a.Category), kindStyle(a.Type).Render(d.Money(a.Amount)))
		}
		sections = append(sections, strings.TrimRight(latest.String(), "\n"))
	}
	if len(data.Installments) > 0 {
		sections = append(sections, renderInstallments(d, data.Installments))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderKindScreen(d client.Display, kind core.Kind, data client.KindData) string {
	style := kindStyle(kind)
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s - %s\n", headerStyle.Render(strings.ToUpper(string(kind))), d.Date(data.Range.Start), d.Date(data.Range.End))
	fmt.Fprintf(&b, "Total: %s  (avg/day %s, max day %s)\n",
		style.Render(d.Money(data.Overview.TotalAmount)), d.Money(data.Insights.AveragePerDay), d.Money(data.Insights.MaxDay))
	if top := data.Insights.TopCategory; top != nil {
		fmt.Fprintf(&b, "Top category: %s %s\n", d.Category(top.Category), d.Money(top.Amount))
	}
	header := summaryStyle.Render(strings.TrimRight(b.String(), "\n"))

	var chart strings.Builder
	peak := core.MaxForChart(data.Overview.BarChart)
	for _, day := range data.Overview.BarChart {
		if day.Amount.IsZero() {
			continue
		}
		fmt.Fprintf(&chart, "%s %s %s\n", d.Date(day.Date), style.Render(bar(day.Amount, peak, 30)), d.Money(day.Amount))
	}
	if chart.Len() == 0 {
		chart.WriteString(mutedStyle.Render("No transactions in this range."))
	}

	var shares strings.Builder
	for _, sh := range data.Insights.Shares {
		fmt.Fprintf(&shares, "%-20s %6s%%\n", d.Category(sh.Category), sh.Percent.StringFixed(1))
	}

	sections := []string{header, strings.TrimRight(chart.String(), "\n")}
	if shares.Len() > 0 {
		sections = append(sections, headerStyle.Render("By category")+"\n"+strings.TrimRight(shares.String(), "\n"))
	}
	if len(data.Summary.Recent) > 0 {
		sections = append(sections, headerStyle.Render("Recent")+"\n"+renderTransactions(d, data.Summary.Recent))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// bar scales amount against peak into at most width cells.
func bar(amount, peak core.Money, width int) string {
	if !peak.IsPositive() {
		return ""
	}
	n := int(amount.Decimal.Div(peak.Decimal).Mul(decimal.NewFromInt(int64(width))).IntPart())
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

func renderTransactions(d client.Display, txs []core.Transaction) string {
	if len(txs) == 0 {
		return mutedStyle.Render("No transactions yet.")
	}
	var b strings.Builder
	for _, t := range txs {
		link := ""
		if t.InstallmentID != nil {
			link = mutedStyle.Render(fmt.Sprintf(" (installment #%d)", *t.InstallmentID))
		}
		fmt.Fprintf(&b, "#%-5d %s  %-20s %s%s\n", t.ID, d.Date(t.Date), d.Category(t.Category), kindStyle(t.Kind).Render(d.Money(t.Amount)), link)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderInstallments(d client.Display, list []core.InstallmentView) string {
	if len(list) == 0 {
		return mutedStyle.Render("No installments.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Installments") + "\n")
	for _, v := range list {
		next := d.Date(v.NextDueDate)
		if v.Status != core.StatusActive {
			next = mutedStyle.Render(string(v.Status))
		}
		fmt.Fprintf(&b, "#%-4d %-20s %s/month  %d/%d paid  left %s  next %s\n",
			v.ID, v.Name, d.Money(v.MonthlyPayment), v.PaidMonths, v.TotalMonths, d.Money(v.RemainingBalance), next)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPayments(d client.Display, list []core.Payment) string {
	if len(list) == 0 {
		return mutedStyle.Render("No payments recorded.")
	}
	var b strings.Builder
	for _, p := range list {
		fmt.Fprintf(&b, "#%-5d %s  %s\n", p.ID, d.Date(p.Date), d.Money(p.Amount))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderError(d client.Display, err error) string {
	msg := d.Error(err)
	switch client.Classify(err) {
	case client.KindUnauthenticated:
		msg += " Run: dompet-cli login -email <email>"
	case client.KindTransport:
		msg += mutedStyle.Render(" (" + err.Error() + ")")
	}
	return errorStyle.Render(msg)
}
