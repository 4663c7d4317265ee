// Package scheduler drives the engine at a fixed interval. Cycles never
// overlap: the next tick waits until the previous cycle returns.
package scheduler

import (
	"context"
	"time"

	"github.com/jwalitptl/slot-sniper/internal/sniper"
	"github.com/jwalitptl/slot-sniper/pkg/logger"
)

// Runner is what the scheduler drives; satisfied by sniper.Engine.
type Runner interface {
	RunOnce(ctx context.Context) sniper.CycleSummary
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *logger.Logger
}

func New(runner Runner, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		panic("interval must be greater than 0")
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   log,
	}
}

// Start runs one cycle immediately, then one per tick until the context
// is cancelled. Cancellation is only observed between cycles; a running
// cycle always completes.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())

	s.runner.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return
		case <-ticker.C:
			s.runner.RunOnce(ctx)
		}
	}
}
