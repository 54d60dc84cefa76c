// Package scheduler drives the delivery sweep on a fixed interval. The
// sweep itself is idempotent, so a second runner (or the on-demand cron
// endpoint) running concurrently is harmless.
package scheduler

import (
	"context"
	"time"

	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

// Sweeper runs one delivery sweep.
type Sweeper interface {
	RunSweep(ctx context.Context) (model.SweepReport, error)
}

// Runner invokes a Sweeper on a fixed interval until its context ends.
type Runner struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *logger.Logger
}

func NewRunner(sweeper Sweeper, interval time.Duration, logger *logger.Logger) *Runner {
	return &Runner{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks, sweeping once per interval. A failed sweep is logged and the
// loop continues; the next tick retries naturally.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("delivery runner started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("delivery runner stopped")
			return
		case <-ticker.C:
			if _, err := r.sweeper.RunSweep(ctx); err != nil {
				r.logger.Error("delivery sweep failed", "error", err)
			}
		}
	}
}
