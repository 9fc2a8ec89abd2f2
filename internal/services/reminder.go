package services

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/notify"
	"dompet/internal/storage"
)

// ReminderStore lists the installments that may need a reminder.
type ReminderStore interface {
	ActiveInstallments(ctx context.Context) ([]storage.ReminderTarget, error)
}

// ReminderResult summarizes one run.
type ReminderResult struct {
	Checked int
	Sent    int
	Failed  int
}

// ReminderProcessor notifies users about upcoming and missed installment payments.
type ReminderProcessor struct {
	store     ReminderStore
	checker   DuenessChecker
	notifier  notify.Notifier
	publisher Publisher
	logger    *log.Logger
}

func NewReminderProcessor(store ReminderStore, daysAhead int, notifier notify.Notifier, publisher Publisher, logger *log.Logger) *ReminderProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReminderProcessor{
		store:     store,
		checker:   FirstMatch{OverdueChecker{}, UpcomingChecker{DaysAhead: daysAhead}},
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentReminder),
	}
}

// Run checks every active installment against now. A failed notification is
// counted and logged; the run continues with the next installment.
func (p *ReminderProcessor) Run(ctx context.Context, now time.Time) (ReminderResult, error) {
	if p.store == nil || p.notifier == nil {
		return ReminderResult{}, fmt.Errorf("reminder processor not properly initialized")
	}

	targets, err := p.store.ActiveInstallments(ctx)
	if err != nil {
		return ReminderResult{}, fmt.Errorf("get active installments: %w", err)
	}

	today := core.DateOf(now)
	res := ReminderResult{Checked: len(targets)}
	p.logger.InfoContext(ctx, "Checking installment reminders",
		"total_active", len(targets),
		"processing_date", today.String())

	for _, t := range targets {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		d, ok := p.checker.Check(t.Installment, today)
		if !ok {
			continue
		}

		r := notify.Reminder{
			UserName:        t.User.Name,
			Email:           t.User.Email,
			InstallmentID:   t.Installment.ID,
			InstallmentName: t.Installment.Name,
			Amount:          t.Installment.MonthlyPayment,
			DueDate:         d.DueDate,
			DaysLeft:        d.DaysLeft,
			RemainingMonths: t.Installment.RemainingMonths(),
			Missed:          d.Missed,
		}
		if d.Overdue() {
			r.Amount = t.Installment.MonthlyPayment.Mul(int64(d.Missed))
		}

		if err := p.notifier.Notify(ctx, r); err != nil {
			res.Failed++
			p.logger.ErrorContext(ctx, "Failed to send reminder",
				log.FieldInstallmentID, t.Installment.ID,
				log.FieldUserID, t.User.ID,
				log.FieldChannel, p.notifier.Name(),
				log.FieldError, err)
			continue
		}
		res.Sent++
		p.logger.InfoContext(ctx, "Reminder sent",
			log.FieldInstallmentID, t.Installment.ID,
			log.FieldUserID, t.User.ID,
			"due_date", d.DueDate.String(),
			"days_left", d.DaysLeft,
			"missed", d.Missed)

		if p.publisher != nil {
			if err := p.publisher.PublishInstallmentEvent(ctx, amqp.EventInstallmentDue, t.User.ID, t.Installment.ID); err != nil {
				p.logger.ErrorContext(ctx, "Failed to publish installment event", log.FieldInstallmentID, t.Installment.ID, log.FieldError, err)
			}
		}
	}

	p.logger.InfoContext(ctx, "Reminder run complete",
		"checked", res.Checked,
		"sent", res.Sent,
		"failed", res.Failed)
	return res, nil
}
