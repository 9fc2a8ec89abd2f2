// Package notify delivers installment due-date reminders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"dompet/internal/core"
)

// Reminder is one upcoming installment payment for one user.
type Reminder struct {
	UserName        string
	Email           string
	InstallmentID   int64
	InstallmentName string
	Amount          core.Money
	DueDate         core.Date
	DaysLeft        int
	RemainingMonths int
	// Missed is the number of past due dates without a payment. When set,
	// Amount is the total outstanding for those months.
	Missed int
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, r Reminder) error
}

// Subject is the short headline used by every channel.
func Subject(r Reminder) string {
	if r.Missed > 0 {
		return fmt.Sprintf("Installment %q has %d missed payment(s)", r.InstallmentName, r.Missed)
	}
	switch r.DaysLeft {
	case 0:
		return fmt.Sprintf("Installment %q is due today", r.InstallmentName)
	case 1:
		return fmt.Sprintf("Installment %q is due tomorrow", r.InstallmentName)
	default:
		return fmt.Sprintf("Installment %q is due in %d days", r.InstallmentName, r.DaysLeft)
	}
}

// Body renders the reminder text with amounts in the given locale.
func Body(r Reminder, tag language.Tag) string {
	var b strings.Builder
	name := r.UserName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if r.Missed > 0 {
		fmt.Fprintf(&b, "%d payment(s) for %q are past due, %s in total.\n",
			r.Missed, r.InstallmentName, core.FormatCurrency(r.Amount, tag))
	} else {
		fmt.Fprintf(&b, "Your payment of %s for %q is due on %s.\n",
			core.FormatCurrency(r.Amount, tag), r.InstallmentName, core.FormatDate(r.DueDate))
	}
	if r.RemainingMonths > 0 {
		fmt.Fprintf(&b, "Payments remaining after this one: %d.\n", r.RemainingMonths-1)
	}
	b.WriteString("\nDompet")
	return b.String()
}

// Multi fans a reminder out to every channel. A failing channel does not stop
// the others; all failures are joined.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name()
	}
	return strings.Join(names, ",")
}

func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
