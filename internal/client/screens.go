package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"dompet/internal/core"
)

// DashboardData is everything the home screen renders.
type DashboardData struct {
	Summary      core.DashboardSummary
	Installments []core.InstallmentView
}

type DashboardScreen struct {
	client *Client
	State  State[DashboardData]
}

func NewDashboardScreen(c *Client) *DashboardScreen {
	return &DashboardScreen{client: c}
}

// Load fetches the summary and the active installments together. Either
// failing leaves the previous data on screen.
func (d *DashboardScreen) Load(ctx context.Context, s Session) error {
	gen := d.State.Begin()
	var data DashboardData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := d.client.Dashboard(gctx, s)
		data.Summary = sum
		return err
	})
	g.Go(func() error {
		inst, err := d.client.ListInstallments(gctx, s, core.StatusActive)
		data.Installments = inst
		return err
	})
	err := g.Wait()
	d.State.Commit(gen, data, err)
	return err
}

// KindData is the content of the income or expense screen.
type KindData struct {
	Range    core.DateRange
	Summary  core.KindSummary
	Overview core.Overview
	Insights core.Insights
}

type KindScreen struct {
	client *Client
	kind   core.Kind
	State  State[KindData]
}

func NewKindScreen(c *Client, kind core.Kind) *KindScreen {
	return &KindScreen{client: c, kind: kind}
}

func (k *KindScreen) Kind() core.Kind { return k.kind }

// Load fetches the summary, overview and insights for r concurrently. The
// screen only changes when all three succeed.
func (k *KindScreen) Load(ctx context.Context, s Session, r core.DateRange) error {
	gen := k.State.Begin()
	data := KindData{Range: r}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Summary, err = k.client.Summary(gctx, s, k.kind, r)
		return err
	})
	g.Go(func() (err error) {
		data.Overview, err = k.client.Overview(gctx, s, k.kind, r)
		return err
	})
	g.Go(func() (err error) {
		data.Insights, err = k.client.Insights(gctx, s, k.kind, r)
		return err
	})
	err := g.Wait()
	k.State.Commit(gen, data, err)
	return err
}

// ExpenseForm backs the add-expense screen and its installment picker.
type ExpenseForm struct {
	client  *Client
	Choices State[[]core.InstallmentView]
}

func NewExpenseForm(c *Client) *ExpenseForm {
	return &ExpenseForm{client: c}
}

// LoadChoices fills the picker with active installments only.
func (f *ExpenseForm) LoadChoices(ctx context.Context, s Session) error {
	gen := f.Choices.Begin()
	list, err := f.client.ListInstallments(ctx, s, core.StatusActive)
	f.Choices.Commit(gen, list, err)
	return err
}

// Pick applies the chosen installment to in: the category is fixed and the
// amount defaults to the monthly payment.
func (f *ExpenseForm) Pick(in core.TransactionInput, installmentID int64) (core.TransactionInput, error) {
	list, _, _ := f.Choices.Snapshot()
	for _, v := range list {
		if v.ID == installmentID {
			return in.ApplyInstallment(v.Installment), nil
		}
	}
	return in, &core.ValidationError{Field: "installment_id", Reason: fmt.Sprintf("installment %d is not active", installmentID)}
}

func (f *ExpenseForm) Submit(ctx context.Context, s Session, in core.TransactionInput) (core.Transaction, error) {
	return f.client.CreateTransaction(ctx, s, core.Expense, in)
}

// Display formats values for a locale.
type Display struct {
	Tag language.Tag
}

func NewDisplay(locale string) Display {
	return Display{Tag: core.ParseLocale(locale)}
}

// Error is the localized alert for a failed action.
func (d Display) Error(err error) string {
	return UserMessage(d.Tag, err)
}

func (d Display) Money(m core.Money) string {
	return core.FormatCurrency(m, d.Tag)
}

func (d Display) Date(v core.Date) string {
	return core.FormatDate(v)
}

func (d Display) Category(c string) string {
	return core.CategoryLabel(c, d.Tag)
}
