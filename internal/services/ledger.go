package services

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// Publisher emits ledger events. A nil Publisher disables publishing.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, userID, id int64, kind string) error
	PublishTransactionDeleted(ctx context.Context, userID, id int64, kind string) error
	PublishInstallmentEvent(ctx context.Context, t amqp.EventType, userID, installmentID int64) error
}

// Invalidator drops cached reports of a user after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64)
}

// LedgerService orchestrates transaction and installment writes across the
// repository, the event bus and the report cache.
type LedgerService struct {
	repo        *storage.Repository
	publisher   Publisher
	invalidator Invalidator
	logger      *log.Logger
	now         func() time.Time
}

func NewLedgerService(repo *storage.Repository, publisher Publisher, invalidator Invalidator, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	return &LedgerService{
		repo:        repo,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger.WithComponent(log.ComponentLedger),
		now:         time.Now,
	}
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

// CreateTransaction stores an income or expense. An expense carrying an
// installment id also records the installment payment.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID int64, kind core.Kind, in core.TransactionInput) (core.Transaction, error) {
	if !kind.Valid() {
		return core.Transaction{}, &core.ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if in.InstallmentID != nil {
		if kind != core.Expense {
			return core.Transaction{}, &core.ValidationError{Field: "installment_id", Reason: "only expenses can pay an installment"}
		}
		return s.createInstallmentExpense(ctx, userID, in)
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.repo.CreateTransaction(ctx, core.Transaction{
		UserID:   userID,
		Kind:     kind,
		Category: in.Category,
		Amount:   in.Amount,
		Date:     in.Date,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithUser(userID).
		WithTransaction(t.ID, string(kind), t.Category, t.Amount.String()).
		ToSlice()...)
	s.afterTransactionWrite(ctx, t)
	return t, nil
}

func (s *LedgerService) createInstallmentExpense(ctx context.Context, userID int64, in core.TransactionInput) (core.Transaction, error) {
	t, payment, err := s.repo.CreateInstallmentExpense(ctx, userID, in)
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Installment expense created",
		log.FieldUserID, userID,
		log.FieldTransactionID, t.ID,
		log.FieldInstallmentID, payment.InstallmentID,
		log.FieldPaymentID, payment.ID,
		log.FieldAmount, t.Amount.String())
	s.afterTransactionWrite(ctx, t)
	s.afterPayment(ctx, userID, payment.InstallmentID)
	return t, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, userID, kind, id)
}

// ListTransactions returns the full history of a kind, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, kind core.Kind) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, kind, nil)
}

// UpdateTransaction rewrites category, amount and date. The installment link
// cannot change, and a linked expense keeps its category, amount and date.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID int64, kind core.Kind, id int64, in core.TransactionInput) (core.Transaction, error) {
	existing, err := s.repo.GetTransaction(ctx, userID, kind, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if !sameLink(existing.InstallmentID, in.InstallmentID) {
		return core.Transaction{}, &core.ValidationError{Field: "installment_id", Reason: "cannot be changed after creation"}
	}
	in.InstallmentID = existing.InstallmentID
	in = in.Normalize()
	if existing.InstallmentID != nil {
		in.Category = core.InstallmentCategory
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if existing.InstallmentID != nil {
		// The linked payment is immutable, so the expense must keep matching it.
		if !in.Amount.Equal(existing.Amount) {
			return core.Transaction{}, &core.ValidationError{Field: "amount", Reason: "cannot change on an installment payment"}
		}
		if !in.Date.Equal(existing.Date.Time) {
			return core.Transaction{}, &core.ValidationError{Field: "date", Reason: "cannot change on an installment payment"}
		}
	}

	existing.Category = in.Category
	existing.Amount = in.Amount
	existing.Date = in.Date
	t, err := s.repo.UpdateTransaction(ctx, existing)
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction updated", log.NewFields().
		WithUser(userID).
		WithTransaction(t.ID, string(t.Kind), t.Category, t.Amount.String()).
		ToSlice()...)
	s.afterTransactionWrite(ctx, t)
	return t, nil
}

// sameLink treats an omitted link in an update as "unchanged".
func sameLink(existing, requested *int64) bool {
	if requested == nil {
		return true
	}
	return existing != nil && *existing == *requested
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID int64, kind core.Kind, id int64) error {
	if err := s.repo.DeleteTransaction(ctx, userID, kind, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldUserID, userID,
		log.FieldTransactionID, id,
		log.FieldKind, kind)

	s.invalidate(ctx, userID)
	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDeleted(ctx, userID, id, string(kind)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish delete message", log.FieldTransactionID, id, log.FieldError, err)
		}
	}
	return nil
}

func (s *LedgerService) CreateInstallment(ctx context.Context, userID int64, in core.InstallmentInput) (core.InstallmentView, error) {
	inst, err := core.NewInstallment(userID, in)
	if err != nil {
		return core.InstallmentView{}, err
	}
	inst, err = s.repo.CreateInstallment(ctx, inst)
	if err != nil {
		return core.InstallmentView{}, fmt.Errorf("save installment: %w", err)
	}
	s.logger.InfoContext(ctx, "Installment created",
		log.FieldUserID, userID,
		log.FieldInstallmentID, inst.ID,
		log.FieldAmount, inst.MonthlyPayment.String())
	s.invalidate(ctx, userID)
	return inst.View(s.today()), nil
}

func (s *LedgerService) GetInstallment(ctx context.Context, userID, id int64) (core.InstallmentView, error) {
	inst, err := s.repo.GetInstallment(ctx, userID, id)
	if err != nil {
		return core.InstallmentView{}, err
	}
	return inst.View(s.today()), nil
}

// ListInstallments returns the user's installments. An empty status lists
// every non-deleted one.
func (s *LedgerService) ListInstallments(ctx context.Context, userID int64, status core.InstallmentStatus) ([]core.InstallmentView, error) {
	if status != "" && status != core.StatusActive && status != core.StatusClosed {
		return nil, &core.ValidationError{Field: "status", Reason: "must be active or closed"}
	}
	insts, err := s.repo.ListInstallments(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	today := s.today()
	views := make([]core.InstallmentView, len(insts))
	for i, inst := range insts {
		views[i] = inst.View(today)
	}
	return views, nil
}

func (s *LedgerService) UpdateInstallment(ctx context.Context, userID, id int64, in core.InstallmentInput) (core.InstallmentView, error) {
	inst, err := s.repo.UpdateInstallment(ctx, userID, id, in)
	if err != nil {
		return core.InstallmentView{}, err
	}
	s.logger.InfoContext(ctx, "Installment updated",
		log.FieldUserID, userID,
		log.FieldInstallmentID, id,
		log.FieldStatus, inst.Status)
	s.invalidate(ctx, userID)
	return inst.View(s.today()), nil
}

// DeleteInstallment soft-deletes; the payment history is kept.
func (s *LedgerService) DeleteInstallment(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteInstallment(ctx, userID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Installment deleted", log.FieldUserID, userID, log.FieldInstallmentID, id)
	s.invalidate(ctx, userID)
	return nil
}

// RecordPayment records a payment without creating an expense.
func (s *LedgerService) RecordPayment(ctx context.Context, userID, id int64, in core.PaymentInput) (core.Payment, error) {
	if in.Date.IsZero() {
		in.Date = s.today()
	}
	if in.Amount.IsZero() {
		inst, err := s.repo.GetInstallment(ctx, userID, id)
		if err != nil {
			return core.Payment{}, err
		}
		in.Amount = inst.MonthlyPayment
	}

	payment, err := s.repo.RecordPayment(ctx, userID, id, in.Amount, in.Date)
	if err != nil {
		return core.Payment{}, err
	}
	s.logger.InfoContext(ctx, "Installment payment recorded",
		log.FieldUserID, userID,
		log.FieldInstallmentID, id,
		log.FieldPaymentID, payment.ID,
		log.FieldAmount, payment.Amount.String())
	s.afterPayment(ctx, userID, id)
	return payment, nil
}

func (s *LedgerService) ListPayments(ctx context.Context, userID, id int64) ([]core.Payment, error) {
	return s.repo.ListPayments(ctx, userID, id)
}

func (s *LedgerService) afterTransactionWrite(ctx context.Context, t core.Transaction) {
	s.invalidate(ctx, t.UserID)
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Publisher not configured, skipping sync message")
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, t.UserID, t.ID, string(t.Kind)); err != nil {
		// The row stays pending; the worker's sweep picks it up.
		s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldTransactionID, t.ID, log.FieldError, err)
	}
}

// afterPayment publishes installment.paid, and installment.closed when the
// payment settled the last month.
func (s *LedgerService) afterPayment(ctx context.Context, userID, installmentID int64) {
	s.invalidate(ctx, userID)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInstallmentEvent(ctx, amqp.EventInstallmentPaid, userID, installmentID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish installment event", log.FieldInstallmentID, installmentID, log.FieldError, err)
	}
	inst, err := s.repo.GetInstallment(ctx, userID, installmentID)
	if err != nil || inst.Status != core.StatusClosed {
		return
	}
	s.logger.InfoContext(ctx, "Installment paid off", log.FieldUserID, userID, log.FieldInstallmentID, installmentID)
	if err := s.publisher.PublishInstallmentEvent(ctx, amqp.EventInstallmentClosed, userID, installmentID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish installment event", log.FieldInstallmentID, installmentID, log.FieldError, err)
	}
}

func (s *LedgerService) invalidate(ctx context.Context, userID int64) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}
}
