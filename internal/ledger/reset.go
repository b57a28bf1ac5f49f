package ledger

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// ResetAllowanceArgs is the periodic job that tops free-tier accounts back up
// to the daily allowance.
type ResetAllowanceArgs struct{}

func (ResetAllowanceArgs) Kind() string { return "reset_daily_allowance" }

type ResetAllowanceWorker struct {
	river.WorkerDefaults[ResetAllowanceArgs]
	ledger *Service
	logger *slog.Logger
}

func NewResetAllowanceWorker(svc *Service, logger *slog.Logger) *ResetAllowanceWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetAllowanceWorker{ledger: svc, logger: logger}
}

func (w *ResetAllowanceWorker) Work(ctx context.Context, _ *river.Job[ResetAllowanceArgs]) error {
	n, err := w.ledger.ResetDailyAllowance(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("daily allowance reset", "accounts", n)
	return nil
}
