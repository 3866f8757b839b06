package worker

import (
	"context"
	"errors"
	"time"
)

// ReconcileWorker runs a reconciliation pass every interval until ctx is
// done. A pass that fails is logged and retried on the next tick.
func (wk *Worker) ReconcileWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wk.Logger.Info("reconciler started", "interval", interval.String())

	for {
		wk.reconcileOnce(ctx)

		select {
		case <-ctx.Done():
			wk.Logger.Info("reconciler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (wk *Worker) reconcileOnce(ctx context.Context) {
	report, err := wk.Reconciler.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		wk.Logger.Error("reconciliation pass failed", "error", err)
		return
	}

	if report.OrphansResolved+report.InvitesResolved+report.DepositsSettled+report.Failures == 0 {
		return
	}

	wk.Logger.Info("reconciliation pass",
		"orphans_resolved", report.OrphansResolved,
		"invites_resolved", report.InvitesResolved,
		"deposits_settled", report.DepositsSettled,
		"failures", report.Failures,
	)
}
