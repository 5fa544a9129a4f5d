// Package worker holds the background jobs of spendwise: the session janitor
// that expires idle sessions and the audit handler for ingestion events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"spendwise/internal/session"
)

// sweepTimeout bounds a single sweep so a stuck store cannot pile up runs.
const sweepTimeout = 30 * time.Second

// Janitor periodically removes expired sessions from a store.
type Janitor struct {
	store    session.Store
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	runs       int64
	totalSwept int64
	failures   int64
}

// JanitorMetrics summarizes janitor activity
type JanitorMetrics struct {
	Runs       int64
	TotalSwept int64
	Failures   int64
}

// NewJanitor schedules store sweeps using a standard cron expression or a
// descriptor such as "@every 10m".
func NewJanitor(store session.Store, schedule string, logger *slog.Logger) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		store:    store,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		logger:   logger,
	}

	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("unable to schedule session janitor: %w", err)
	}
	return j, nil
}

// Start begins running sweeps in the background.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("Session janitor started", "schedule", j.schedule)
}

// Stop prevents further sweeps and waits for a running one to finish or
// for ctx to expire.
func (j *Janitor) Stop(ctx context.Context) {
	stopped := j.cron.Stop()
	select {
	case <-stopped.Done():
		j.logger.Info("Session janitor stopped")
	case <-ctx.Done():
		j.logger.Warn("Session janitor stop timed out", "error", ctx.Err())
	}
}

// RunOnce sweeps expired sessions immediately.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	atomic.AddInt64(&j.runs, 1)
	start := time.Now()

	n, err := j.store.Sweep(ctx)
	if err != nil {
		atomic.AddInt64(&j.failures, 1)
		j.logger.ErrorContext(ctx, "Session sweep failed", "error", err)
		return 0, err
	}
	atomic.AddInt64(&j.totalSwept, int64(n))

	if n > 0 {
		j.logger.InfoContext(ctx, "Expired sessions removed",
			"removed", n,
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		j.logger.DebugContext(ctx, "Session sweep found nothing to remove")
	}
	return n, nil
}

// GetMetrics returns the janitor counters
func (j *Janitor) GetMetrics() JanitorMetrics {
	return JanitorMetrics{
		Runs:       atomic.LoadInt64(&j.runs),
		TotalSwept: atomic.LoadInt64(&j.totalSwept),
		Failures:   atomic.LoadInt64(&j.failures),
	}
}
