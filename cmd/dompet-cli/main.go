// Command dompet-cli is a terminal client for the dompet API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"dompet/internal/client"
	"dompet/internal/core"
	"dompet/internal/log"
)

const usage = `usage: dompet-cli <command> [flags]

commands:
  register      -name -email -password
  login         -email -password
  logout
  dashboard
  screen        <income|expense> [-start -end | -preset 7d|30d]
  list          <income|expense>
  add           <income|expense> -category -amount -date [-installment id]
  show          <income|expense> <id>
  edit          <income|expense> <id> [-category -amount -date]
  delete        <income|expense> <id>
  installments  [-status active|closed]
  installment   -name -principal -monthly -months -start -due-day [-rate -notes]
  installment-show    <id>
  installment-edit    <id> [-name -principal -monthly -months -start -due-day -rate -notes -status]
  installment-delete  <id>
  pay           <installment id> [-amount -date]
  payments      <installment id>
  export        -format xml|xlsx -out file [-start -end | -preset 7d|30d]
`

type app struct {
	client  *client.Client
	display client.Display
	out     io.Writer
	now     func() time.Time
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(getEnv("LOG_LEVEL", "warn"))
	cfg.Output = os.Stderr
	logger := log.New(cfg)

	path := os.Getenv("DOMPET_SESSION_FILE")
	if path == "" {
		p, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		path = p
	}

	c, err := client.New(getEnv("API_BASE_URL", "http://localhost:8081"), client.NewFileStore(path), client.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := &app{
		client:  c,
		display: client.NewDisplay(getEnv("CURRENCY_LOCALE", "id-ID")),
		out:     os.Stdout,
		now:     time.Now,
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, renderError(a.display, err))
		cancel()
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		if err := a.client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}

	sess, err := a.client.Session()
	if err != nil {
		return err
	}
	switch cmd {
	case "dashboard":
		return a.dashboard(ctx, sess)
	case "screen":
		return a.screen(ctx, sess, args)
	case "list":
		return a.list(ctx, sess, args)
	case "add":
		return a.add(ctx, sess, args)
	case "show":
		return a.show(ctx, sess, args)
	case "edit":
		return a.edit(ctx, sess, args)
	case "delete":
		return a.remove(ctx, sess, args)
	case "installments":
		return a.installments(ctx, sess, args)
	case "installment":
		return a.createInstallment(ctx, sess, args)
	case "installment-show":
		return a.showInstallment(ctx, sess, args)
	case "installment-edit":
		return a.editInstallment(ctx, sess, args)
	case "installment-delete":
		return a.removeInstallment(ctx, sess, args)
	case "pay":
		return a.pay(ctx, sess, args)
	case "payments":
		return a.payments(ctx, sess, args)
	case "export":
		return a.export(ctx, sess, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", os.Getenv("DOMPET_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Register(ctx, core.RegisterInput{Name: *name, Email: *email, Password: *password}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Registered. Log in with: dompet-cli login -email", *email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", os.Getenv("DOMPET_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s.\n", sess.UserName)
	return nil
}

func (a *app) dashboard(ctx context.Context, sess client.Session) error {
	screen := client.NewDashboardScreen(a.client)
	if err := screen.Load(ctx, sess); err != nil {
		return err
	}
	data, _, _ := screen.State.Snapshot()
	fmt.Fprintln(a.out, renderDashboard(a.display, data))
	return nil
}

func (a *app) screen(ctx context.Context, sess client.Session, args []string) error {
	kind, rest, err := kindArg(args)
	if err != nil {
		return err
	}
	fs := newFlagSet()
	r := a.rangeFlags(fs)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	dr, err := r.resolve()
	if err != nil {
		return err
	}
	screen := client.NewKindScreen(a.client, kind)
	if err := screen.Load(ctx, sess, dr); err != nil {
		return err
	}
	data, _, _ := screen.State.Snapshot()
	fmt.Fprintln(a.out, renderKindScreen(a.display, kind, data))
	return nil
}

func (a *app) list(ctx context.Context, sess client.Session, args []string) error {
	kind, _, err := kindArg(args)
	if err != nil {
		return err
	}
	txs, err := a.client.ListTransactions(ctx, sess, kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderTransactions(a.display, txs))
	return nil
}

func (a *app) add(ctx context.Context, sess client.Session, args []string) error {
	kind, rest, err := kindArg(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	category := fs.String("category", "", "category")
	amount := fs.String("amount", "", "amount, e.g. 50000 or 12,5")
	date := fs.String("date", "", "YYYY-MM-DD, default today")
	installment := fs.Int64("installment", 0, "installment id this expense pays")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	in := core.TransactionInput{Category: *category}
	if *amount != "" {
		m, err := core.ParseMoney(*amount)
		if err != nil {
			return &core.ValidationError{Field: "amount", Reason: err.Error()}
		}
		in.Amount = m
	}
	if in.Date, err = a.dateOrToday(*date, "date"); err != nil {
		return err
	}

	if *installment > 0 {
		if kind != core.Expense {
			return &core.ValidationError{Field: "installment_id", Reason: "only expenses can pay an installment"}
		}
		form := client.NewExpenseForm(a.client)
		if err := form.LoadChoices(ctx, sess); err != nil {
			return err
		}
		if in, err = form.Pick(in, *installment); err != nil {
			return err
		}
	}

	t, err := a.client.CreateTransaction(ctx, sess, kind, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s #%d: %s %s\n", t.Kind, t.ID, a.display.Category(t.Category), a.display.Money(t.Amount))
	return nil
}

func (a *app) show(ctx context.Context, sess client.Session, args []string) error {
	kind, rest, err := kindArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(rest)
	if err != nil {
		return err
	}
	t, err := a.client.GetTransaction(ctx, sess, kind, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderTransactions(a.display, []core.Transaction{t}))
	return nil
}

// edit loads the transaction and overwrites only the flags that were given.
func (a *app) edit(ctx context.Context, sess client.Session, args []string) error {
	kind, rest, err := kindArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(rest)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	category := fs.String("category", "", "category")
	amount := fs.String("amount", "", "amount")
	date := fs.String("date", "", "YYYY-MM-DD")
	if err := fs.Parse(rest[1:]); err != nil {
		return err
	}

	t, err := a.client.GetTransaction(ctx, sess, kind, id)
	if err != nil {
		return err
	}
	in := core.TransactionInput{Category: t.Category, Amount: t.Amount, Date: t.Date, InstallmentID: t.InstallmentID}
	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if ferr != nil {
			return
		}
		switch f.Name {
		case "category":
			in.Category = *category
		case "amount":
			in.Amount, ferr = moneyFlag("amount", *amount)
		case "date":
			in.Date, ferr = a.dateOrToday(*date, "date")
		}
	})
	if ferr != nil {
		return ferr
	}

	t, err = a.client.UpdateTransaction(ctx, sess, kind, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s #%d: %s %s\n", t.Kind, t.ID, a.display.Category(t.Category), a.display.Money(t.Amount))
	return nil
}

func (a *app) remove(ctx context.Context, sess client.Session, args []string) error {
	kind, rest, err := kindArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(rest)
	if err != nil {
		return err
	}
	if err := a.client.DeleteTransaction(ctx, sess, kind, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s #%d.\n", kind, id)
	return nil
}

func (a *app) installments(ctx context.Context, sess client.Session, args []string) error {
	fs := flag.NewFlagSet("installments", flag.ContinueOnError)
	status := fs.String("status", "", "active or closed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := a.client.ListInstallments(ctx, sess, core.InstallmentStatus(*status))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderInstallments(a.display, list))
	return nil
}

func (a *app) createInstallment(ctx context.Context, sess client.Session, args []string) error {
	fs := flag.NewFlagSet("installment", flag.ContinueOnError)
	name := fs.String("name", "", "name")
	principal := fs.String("principal", "", "principal")
	rate := fs.String("rate", "0", "yearly interest rate in percent")
	monthly := fs.String("monthly", "", "monthly payment")
	months := fs.Int("months", 0, "total months")
	start := fs.String("start", "", "start date YYYY-MM-DD, default today")
	dueDay := fs.Int("due-day", 1, "day of month the payment is due")
	notes := fs.String("notes", "", "notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := core.InstallmentInput{Name: *name, TotalMonths: *months, DueDay: *dueDay}
	var err error
	if in.Principal, err = moneyFlag("principal", *principal); err != nil {
		return err
	}
	if in.MonthlyPayment, err = moneyFlag("monthly_payment", *monthly); err != nil {
		return err
	}
	if in.InterestRate, err = decimal.NewFromString(*rate); err != nil {
		return &core.ValidationError{Field: "interest_rate", Reason: "must be a number"}
	}
	if in.StartDate, err = a.dateOrToday(*start, "start_date"); err != nil {
		return err
	}
	if *notes != "" {
		in.Notes = notes
	}

	v, err := a.client.CreateInstallment(ctx, sess, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved installment #%d %q, next due %s.\n", v.ID, v.Name, a.display.Date(v.NextDueDate))
	return nil
}

func (a *app) showInstallment(ctx context.Context, sess client.Session, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	v, err := a.client.GetInstallment(ctx, sess, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderInstallments(a.display, []core.InstallmentView{v}))
	if v.Notes != nil {
		fmt.Fprintln(a.out, mutedStyle.Render(*v.Notes))
	}
	return nil
}

// editInstallment loads the installment and overwrites only the flags that
// were given. Leaving -status out keeps the current status.
func (a *app) editInstallment(ctx context.Context, sess client.Session, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("installment-edit", flag.ContinueOnError)
	name := fs.String("name", "", "name")
	principal := fs.String("principal", "", "principal")
	rate := fs.String("rate", "", "yearly interest rate in percent")
	monthly := fs.String("monthly", "", "monthly payment")
	months := fs.Int("months", 0, "total months")
	start := fs.String("start", "", "start date YYYY-MM-DD")
	dueDay := fs.Int("due-day", 0, "day of month the payment is due")
	notes := fs.String("notes", "", "notes, empty clears them")
	status := fs.String("status", "", "active or closed")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	v, err := a.client.GetInstallment(ctx, sess, id)
	if err != nil {
		return err
	}
	in := installmentInput(v.Installment)
	var ferr error
	fs.Visit(func(f *flag.Flag) {
		if ferr != nil {
			return
		}
		switch f.Name {
		case "name":
			in.Name = *name
		case "principal":
			in.Principal, ferr = moneyFlag("principal", *principal)
		case "rate":
			if in.InterestRate, ferr = decimal.NewFromString(*rate); ferr != nil {
				ferr = &core.ValidationError{Field: "interest_rate", Reason: "must be a number"}
			}
		case "monthly":
			in.MonthlyPayment, ferr = moneyFlag("monthly_payment", *monthly)
		case "months":
			in.TotalMonths = *months
		case "start":
			in.StartDate, ferr = a.dateOrToday(*start, "start_date")
		case "due-day":
			in.DueDay = *dueDay
		case "notes":
			in.Notes = notes
		case "status":
			in.Status = core.InstallmentStatus(*status)
		}
	})
	if ferr != nil {
		return ferr
	}

	v, err = a.client.UpdateInstallment(ctx, sess, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated installment #%d %q (%s), %d of %d months left.\n", v.ID, v.Name, v.Status, v.RemainingMonths, v.TotalMonths)
	return nil
}

func (a *app) removeInstallment(ctx context.Context, sess client.Session, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.client.DeleteInstallment(ctx, sess, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted installment #%d. Its payment history is kept.\n", id)
	return nil
}

// installmentInput copies the editable fields; status is left empty so the
// server keeps it unless asked otherwise.
func installmentInput(i core.Installment) core.InstallmentInput {
	return core.InstallmentInput{
		Name:           i.Name,
		Principal:      i.Principal,
		InterestRate:   i.InterestRate,
		MonthlyPayment: i.MonthlyPayment,
		TotalMonths:    i.TotalMonths,
		StartDate:      i.StartDate,
		DueDay:         i.DueDay,
		Notes:          i.Notes,
	}
}

func (a *app) pay(ctx context.Context, sess client.Session, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	amount := fs.String("amount", "", "amount, default the monthly payment")
	date := fs.String("date", "", "YYYY-MM-DD, default today")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	var in core.PaymentInput
	if *amount != "" {
		if in.Amount, err = moneyFlag("amount", *amount); err != nil {
			return err
		}
	}
	if *date != "" {
		if in.Date, err = a.dateOrToday(*date, "date"); err != nil {
			return err
		}
	}
	p, err := a.client.RecordPayment(ctx, sess, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded payment #%d of %s on %s.\n", p.ID, a.display.Money(p.Amount), a.display.Date(p.Date))
	return nil
}

func (a *app) payments(ctx context.Context, sess client.Session, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	list, err := a.client.ListPayments(ctx, sess, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderPayments(a.display, list))
	return nil
}

func (a *app) export(ctx context.Context, sess client.Session, args []string) error {
	fs := newFlagSet()
	format := fs.String("format", "xlsx", "xml or xlsx")
	out := fs.String("out", "", "output file, default statement_<start>_<end>.<format>")
	r := a.rangeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dr, err := r.resolve()
	if err != nil {
		return err
	}
	b, err := a.client.Statement(ctx, sess, *format, dr)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = fmt.Sprintf("statement_%s_%s.%s", dr.Start, dr.End, *format)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write statement: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %s (%d bytes).\n", path, len(b))
	return nil
}

type rangeFlags struct {
	start, end, preset *string
	now                func() time.Time
}

func (a *app) rangeFlags(fs *flag.FlagSet) rangeFlags {
	return rangeFlags{
		start:  fs.String("start", "", "range start YYYY-MM-DD"),
		end:    fs.String("end", "", "range end YYYY-MM-DD"),
		preset: fs.String("preset", "30d", "7d or 30d when start/end are not given"),
		now:    a.now,
	}
}

func (r rangeFlags) resolve() (core.DateRange, error) {
	if *r.start != "" || *r.end != "" {
		return core.ParseDateRange(*r.start, *r.end)
	}
	switch *r.preset {
	case "7d":
		return core.LastNDays(r.now(), 7), nil
	case "30d", "":
		return core.LastNDays(r.now(), 30), nil
	default:
		return core.DateRange{}, &core.ValidationError{Field: "preset", Reason: "must be 7d or 30d"}
	}
}

func newFlagSet() *flag.FlagSet {
	return flag.NewFlagSet("dompet-cli", flag.ContinueOnError)
}

func (a *app) dateOrToday(s, field string) (core.Date, error) {
	if s == "" {
		return core.DateOf(a.now()), nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Reason: "must be YYYY-MM-DD"}
	}
	return d, nil
}

func moneyFlag(field, s string) (core.Money, error) {
	m, err := core.ParseMoney(s)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Reason: err.Error()}
	}
	return m, nil
}

func kindArg(args []string) (core.Kind, []string, error) {
	if len(args) == 0 {
		return "", nil, errors.New("missing kind: income or expense")
	}
	kind, err := core.ParseKind(args[0])
	if err != nil {
		return "", nil, err
	}
	return kind, args[1:], nil
}

func idArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
