/*
scheduler.go - Automated draft payroll scheduler

PURPOSE:
  Periodically makes sure every roster employee has a Pending payroll entry
  for the current month, so approvers always have a draft to review.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Creates full-attendance drafts only for employees without an entry
  - Never supersedes or overwrites an existing entry, whatever its status
  - Runs once immediately on Start

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewDraftScheduler(engine, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - payroll/engine.go: EnsureDrafts
  - handlers.go: Calculate endpoint (manual recalculation)
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// DraftScheduler creates missing draft entries for the current month.
type DraftScheduler struct {
	Engine        *payroll.Engine
	Logger        *slog.Logger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDraftScheduler creates a new scheduler.
func NewDraftScheduler(engine *payroll.Engine, logger *slog.Logger) *DraftScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DraftScheduler{
		Engine:        engine,
		Logger:        logger.With("component", "draft_scheduler"),
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (ds *DraftScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.Enabled || ds.CheckInterval <= 0 {
		ds.Logger.Info("scheduler disabled, not starting")
		return
	}
	if ds.ticker != nil {
		return
	}

	ds.ticker = time.NewTicker(ds.CheckInterval)
	ds.stop = make(chan struct{})
	ds.wg.Add(1)

	go ds.run()

	ds.Logger.Info("scheduler started", "interval", ds.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (ds *DraftScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.ticker != nil {
		ds.ticker.Stop()
		close(ds.stop)
		ds.wg.Wait()
		ds.ticker = nil
		ds.Logger.Info("scheduler stopped")
	}
}

func (ds *DraftScheduler) run() {
	defer ds.wg.Done()

	ds.checkAndProcess()

	for {
		select {
		case <-ds.ticker.C:
			ds.checkAndProcess()
		case <-ds.stop:
			return
		}
	}
}

func (ds *DraftScheduler) checkAndProcess() {
	ctx, cancel := context.WithTimeout(context.Background(), ds.CheckInterval)
	defer cancel()

	if _, err := ds.RunOnce(ctx); err != nil {
		ds.Logger.Error("draft run failed", "error", err)
	}
}

// RunOnce creates the missing drafts for the current month and returns how
// many were created.
func (ds *DraftScheduler) RunOnce(ctx context.Context) (int, error) {
	month := payroll.CurrentMonth(ds.Now())
	created, err := ds.Engine.EnsureDrafts(ctx, month)
	if err != nil {
		return created, err
	}
	if created > 0 {
		ds.Logger.Info("draft entries created", "month", month.String(), "created", created)
	} else {
		ds.Logger.Debug("no drafts needed", "month", month.String())
	}
	return created, nil
}
