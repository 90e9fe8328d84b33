// Package daemon holds the background workers that run beside the lock.
package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Asserter re-establishes the lock's hold on the display: window on top,
// input grabbed.
type Asserter interface {
	Reassert() error
}

// GuardConfig holds configuration for the guard.
type GuardConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Guard periodically re-asserts the lock so a client that maps a window
// above it or steals the grab loses it again within one interval.
type Guard struct {
	interval time.Duration
	target   Asserter
	logger   *slog.Logger

	failures atomic.Int64
}

// NewGuard creates a guard for target.
func NewGuard(cfg GuardConfig, target Asserter) *Guard {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		interval: interval,
		target:   target,
		logger:   logger,
	}
}

// Run starts the guard loop. Blocks until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.logger.Info("guard started", "interval", g.interval)

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("guard stopped")
			return
		case <-ticker.C:
			g.check()
		}
	}
}

// CheckNow runs a single pass immediately.
func (g *Guard) CheckNow() {
	g.check()
}

// Failures returns the number of consecutive failed passes.
func (g *Guard) Failures() int64 {
	return g.failures.Load()
}

func (g *Guard) check() {
	// A panic here must not take the lock down with it.
	defer func() {
		if err := recover(); err != nil {
			g.logger.Error("guard panic recovered", "error", err)
		}
	}()

	if err := g.target.Reassert(); err != nil {
		n := g.failures.Add(1)
		g.logger.Warn("guard: reassert failed", "consecutive", n, "error", err)
		return
	}
	if n := g.failures.Swap(0); n > 0 {
		g.logger.Info("guard: lock reasserted", "after_failures", n)
	}
}
