package worker

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/sheets"
	"dompet/internal/storage"
)

// SyncStore is the part of the repository the worker needs.
type SyncStore interface {
	GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error)
	PendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker mirrors ledger transactions into the spreadsheet.
type SyncWorker struct {
	store     SyncStore
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store SyncStore, mirror sheets.Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage is the AMQP consumer callback. Installment events carry no
// row to mirror and are acknowledged after logging.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	w.logger.InfoContext(ctx, "Processing message",
		log.FieldMessageID, msg.ID,
		"type", msg.Type,
		log.FieldUserID, msg.UserID)

	switch msg.Type {
	case amqp.EventTransactionSync:
		return w.syncTransaction(ctx, msg.TransactionID)
	case amqp.EventTransactionDeleted:
		if err := w.mirror.Delete(ctx, msg.TransactionID); err != nil {
			return fmt.Errorf("delete transaction %d from mirror: %w", msg.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Removed transaction from mirror", log.FieldTransactionID, msg.TransactionID)
		return nil
	case amqp.EventInstallmentPaid, amqp.EventInstallmentClosed, amqp.EventInstallmentDue:
		w.logger.InfoContext(ctx, "Installment event",
			"type", msg.Type,
			log.FieldInstallmentID, msg.InstallmentID)
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// ProcessPending mirrors one batch of transactions still marked pending. It is
// the fallback for lost messages and returns how many rows were mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch once when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingSyncTransactions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.syncTransaction(ctx, p.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction", log.FieldTransactionID, p.ID, log.FieldError, err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, id int64) error {
	t, err := w.store.GetTransactionByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the message arrived; the delete event cleans the mirror.
		w.logger.WarnContext(ctx, "Transaction no longer exists, skipping", log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.mirror.Append(ctx, t)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldTransactionID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// The row is mirrored; a later sweep rewrites the same row.
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldTransactionID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Synced transaction",
		log.FieldTransactionID, id,
		log.FieldKind, t.Kind,
		log.FieldAmount, t.Amount.String(),
		"row_ref", ref)
	return nil
}
