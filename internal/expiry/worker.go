// Package expiry runs the periodic subscription-expiry sweep.
package expiry

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

type SweepArgs struct{}

func (SweepArgs) Kind() string { return "expire_subscriptions" }

// Deactivator flips expired subscriptions inactive.
type Deactivator interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// SweepWorker deactivates subscriptions whose end date has passed. The
// access gate already denies expired subscriptions on its own; the sweep
// only normalizes stored state so reporting matches policy.
type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	store Deactivator
	log   *slog.Logger
}

func NewSweepWorker(store Deactivator, log *slog.Logger) *SweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SweepWorker{store: store, log: log}
}

func (w *SweepWorker) Work(ctx context.Context, _ *river.Job[SweepArgs]) error {
	n, err := w.store.DeactivateExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info("deactivated expired subscriptions", "count", n)
	}
	return nil
}
