package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/craftsmart/escrow-service/internal/application"
)

// Reconciler is the slice of the application service the reconcile loop drives.
type Reconciler interface {
	ReconcileOnce(ctx context.Context) (application.ReconcileResult, error)
}

// ReconcileWorker periodically settles charges and payouts whose webhooks never arrived.
type ReconcileWorker struct {
	logger     *slog.Logger
	reconciler Reconciler
	interval   time.Duration
}

func NewReconcileWorker(logger *slog.Logger, reconciler Reconciler, interval time.Duration) *ReconcileWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconcileWorker{logger: logger, reconciler: reconciler, interval: interval}
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := w.reconciler.ReconcileOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "reconcile iteration failed",
				"module", "events.reconcile_worker",
				"layer", "adapter",
				"operation", "reconcile_once",
				"outcome", "failure",
				"error", err,
			)
		}
	}
}
