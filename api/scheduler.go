/*
scheduler.go - Automated due-date sweep scheduler

PURPOSE:
  Periodically runs the cheque sweep: promotes received cheques whose date
  has entered the due window and emits due-soon deposit reminders.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each execution is recorded as a sweep_runs row for audit and UI display
  - Promotions and reminders are individually guarded in the sweeper, so a
    run that partially fails still makes progress

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewSweepScheduler(store, sweeper, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - cheque/sweep.go: The sweep itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atrium/pdc-engine/cheque"
	"github.com/atrium/pdc-engine/store/sqlite"
)

// SweepScheduler runs the due-date sweep on a fixed interval.
type SweepScheduler struct {
	Store         *sqlite.Store
	Sweeper       *cheque.Sweeper
	CheckInterval time.Duration
	Enabled       bool
	Logger        *zap.Logger

	// Now returns the business date a run is evaluated against.
	Now func() cheque.Date

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweepScheduler creates a new scheduler. A nil logger defaults to no-op.
func NewSweepScheduler(store *sqlite.Store, sweeper *cheque.Sweeper, logger *zap.Logger) *SweepScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepScheduler{
		Store:         store,
		Sweeper:       sweeper,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        logger,
		Now:           cheque.Today,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *SweepScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.Logger.Info("scheduler disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	ss.Logger.Info("scheduler started", zap.Duration("check_interval", ss.CheckInterval))
}

// Stop stops the scheduler.
func (ss *SweepScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.Logger.Info("scheduler stopped")
	}
}

func (ss *SweepScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.sweep()

	for {
		select {
		case <-ss.ticker.C:
			ss.sweep()
		case <-ss.stop:
			return
		}
	}
}

func (ss *SweepScheduler) sweep() {
	ctx := context.Background()
	asOf := ss.Now()
	started := time.Now()

	run := sqlite.SweepRun{
		ID:        "run-" + uuid.NewString(),
		AsOf:      asOf,
		Status:    "running",
		StartedAt: started,
	}
	if err := ss.Store.SaveSweepRun(ctx, run); err != nil {
		ss.Logger.Error("failed to record sweep run", zap.Error(err))
		return
	}

	report, err := ss.Sweeper.Run(ctx, asOf)

	completed := time.Now()
	run.Promoted = report.Promoted
	run.Reminded = report.Reminded
	run.Failures = report.Failures
	run.CompletedAt = &completed
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		ss.Logger.Error("sweep run failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
	} else {
		run.Status = "completed"
		ss.Logger.Info("sweep run completed",
			zap.String("run_id", run.ID),
			zap.Int("promoted", report.Promoted),
			zap.Int("reminded", report.Reminded),
			zap.Int("failures", report.Failures))
	}

	if err := ss.Store.SaveSweepRun(ctx, run); err != nil {
		ss.Logger.Error("failed to update sweep run", zap.Error(err))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ss *SweepScheduler) RunNow() {
	ss.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (ss *SweepScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ss.CheckInterval)
}
