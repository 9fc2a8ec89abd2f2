package services

import (
	"dompet/internal/core"
)

// Dueness describes why an installment needs a reminder today.
type Dueness struct {
	DueDate  core.Date
	DaysLeft int
	Missed   int
}

func (d Dueness) Overdue() bool {
	return d.Missed > 0
}

// DuenessChecker decides whether an installment warrants a reminder on today.
type DuenessChecker interface {
	Check(inst core.Installment, today core.Date) (Dueness, bool)
}

// UpcomingChecker fires when the next due date is within DaysAhead days and
// has not been paid ahead.
type UpcomingChecker struct {
	DaysAhead int
}

func (c UpcomingChecker) Check(inst core.Installment, today core.Date) (Dueness, bool) {
	if inst.Status != core.StatusActive || inst.RemainingMonths() == 0 {
		return Dueness{}, false
	}
	due := inst.NextDueDate(today)
	if inst.PaidMonths >= inst.DueCount(due) {
		return Dueness{}, false
	}
	days := today.DaysUntil(due)
	if days < 0 || days > c.DaysAhead {
		return Dueness{}, false
	}
	return Dueness{DueDate: due, DaysLeft: days}, true
}

// OverdueChecker fires when due dates have passed without a recorded payment.
type OverdueChecker struct{}

func (OverdueChecker) Check(inst core.Installment, today core.Date) (Dueness, bool) {
	missed := inst.MissedPayments(today)
	if missed == 0 {
		return Dueness{}, false
	}
	return Dueness{DueDate: today, Missed: missed}, true
}

// FirstMatch runs checkers in order and returns the first that fires.
type FirstMatch []DuenessChecker

func (f FirstMatch) Check(inst core.Installment, today core.Date) (Dueness, bool) {
	for _, c := range f {
		if d, ok := c.Check(inst, today); ok {
			return d, true
		}
	}
	return Dueness{}, false
}
