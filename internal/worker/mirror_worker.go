package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

const DefaultBatchSize = 100

// TransactionReader loads a transaction on behalf of its owner.
type TransactionReader interface {
	GetTransaction(ctx context.Context, userID, id string) (core.TransactionDetail, error)
}

// MirrorWorker copies committed imports to the spreadsheet mirror.
type MirrorWorker struct {
	store     TransactionReader
	mirror    sheets.TransactionMirror
	batchSize int
}

func NewMirrorWorker(store TransactionReader, mirror sheets.TransactionMirror, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MirrorWorker{store: store, mirror: mirror, batchSize: batchSize}
}

// HandleImportCommitted processes a single import.committed message.
// Transactions deleted since the import are skipped. Any other failure is
// returned so the message is redelivered; the mirror drops rows it already has.
func (w *MirrorWorker) HandleImportCommitted(ctx context.Context, msg *amqp.ImportCommittedMessage) error {
	slog.InfoContext(ctx, "Processing import message",
		"user_id", msg.UserID,
		"account_id", msg.AccountID,
		"count", len(msg.TransactionIDs))

	txs := make([]core.TransactionDetail, 0, len(msg.TransactionIDs))
	missing := 0
	for _, id := range msg.TransactionIDs {
		t, err := w.store.GetTransaction(ctx, msg.UserID, id)
		if errors.Is(err, core.ErrNotFound) {
			missing++
			continue
		}
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", id, err)
		}
		txs = append(txs, t)
	}

	written := 0
	for start := 0; start < len(txs); start += w.batchSize {
		end := min(start+w.batchSize, len(txs))
		n, err := w.mirror.AppendTransactions(ctx, txs[start:end])
		written += n
		if err != nil {
			return fmt.Errorf("mirror transactions: %w", err)
		}
	}

	slog.InfoContext(ctx, "Import mirrored",
		"user_id", msg.UserID,
		"written", written,
		"missing", missing,
		"already_present", len(txs)-written)
	return nil
}
