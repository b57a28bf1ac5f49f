package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/sync/semaphore"

	"github.com/siteulation/backend/internal/models"
)

type GenerateCartArgs struct {
	CartID    uuid.UUID `json:"cart_id"`
	AccountID uuid.UUID `json:"account_id"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Cost      int       `json:"cost"`
}

func (GenerateCartArgs) Kind() string { return "generate_cart" }

// GenerateCartWorker runs the provider call for a queued generation and
// records the outcome. Provider failures are terminal for the cart: the
// status goes to failed and the debit is refunded, rather than retrying a
// call the user already watched fail.
type GenerateCartWorker struct {
	river.WorkerDefaults[GenerateCartArgs]
	db       TxBeginner
	provider Provider
	carts    CartStore
	ledger   CreditLedger
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

func NewGenerateCartWorker(db TxBeginner, provider Provider, carts CartStore, ledger CreditLedger, maxConcurrent int64, logger *slog.Logger) *GenerateCartWorker {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateCartWorker{
		db:       db,
		provider: provider,
		carts:    carts,
		ledger:   ledger,
		sem:      semaphore.NewWeighted(maxConcurrent),
		logger:   logger,
	}
}

func (w *GenerateCartWorker) Work(ctx context.Context, job *river.Job[GenerateCartArgs]) error {
	args := job.Args

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	raw, err := w.provider.GenerateApp(ctx, args.Model, args.Prompt)
	w.sem.Release(1)

	if err != nil {
		w.logger.Error("generation failed", "cart_id", args.CartID, "error", err)
		return w.failCart(ctx, args)
	}

	code := stripFences(raw)
	if code == "" {
		return w.failCart(ctx, args)
	}

	if err := w.carts.SetResult(ctx, args.CartID, code, models.CartStatusReady); err != nil {
		return fmt.Errorf("store generation result: %w", err)
	}
	w.logger.Info("generation ready", "cart_id", args.CartID)
	return nil
}

// failCart resolves a failed generation. The status flip and the refund
// commit in one transaction, and the refund only happens when this call won
// the guarded transition, so a re-delivered job cannot refund twice.
func (w *GenerateCartWorker) failCart(ctx context.Context, args GenerateCartArgs) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	moved, err := w.carts.MarkFailedTx(ctx, tx, args.CartID)
	if err != nil {
		return fmt.Errorf("mark cart failed: %w", err)
	}
	if !moved {
		// Already resolved by an earlier execution of this job.
		return nil
	}
	if err := w.ledger.RefundTx(ctx, tx, args.AccountID, args.CartID, args.Cost); err != nil {
		return fmt.Errorf("refund generation: %w", err)
	}
	return tx.Commit(ctx)
}
