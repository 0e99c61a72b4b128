/*
scheduler.go - Periodic team irregularity analysis

PURPOSE:
  Runs the team analysis on a fixed interval and records every run in the
  RunStore so /api/runs can show when the last sweep happened and how many
  flags it raised.

DESIGN:
  - One background goroutine driven by a ticker
  - Runs immediately on Start, then every Interval
  - Each run is saved as "running" first, then "completed" or "failed"
  - RunNow executes a run synchronously (POST /api/runs)

USAGE:
  scheduler := NewAnalysisScheduler(analyzer, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - analyzer.go: Team
  - handlers.go: ListRuns, TriggerRun
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/timesheet"
)

const (
	RunScheduled = "scheduled"
	RunManual    = "manual"

	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// ErrRunNotRecorded is returned by RunNow when the run store rejects the
// run record. The analysis itself may still have run.
var ErrRunNotRecorded = errors.New("analysis run not recorded")

// AnalysisScheduler runs the team analysis periodically.
type AnalysisScheduler struct {
	Analyzer *Analyzer
	Interval time.Duration
	Enabled  bool
	Logger   *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAnalysisScheduler creates a scheduler with a daily interval.
func NewAnalysisScheduler(analyzer *Analyzer, logger *slog.Logger) *AnalysisScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisScheduler{
		Analyzer: analyzer,
		Interval: 24 * time.Hour,
		Enabled:  true,
		Logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler. It is a no-op when disabled or already started.
func (s *AnalysisScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("started", "interval", s.Interval)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *AnalysisScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.Logger.Info("stopped")
	}
}

func (s *AnalysisScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.RunNow(ctx, RunScheduled)

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx, RunScheduled)
		case <-stop:
			return
		}
	}
}

// RunNow performs one team analysis and records it. The returned run is
// the final record; err is the analysis failure, if any, joined with an
// ErrRunNotRecorded error when the record could not be written.
func (s *AnalysisScheduler) RunNow(ctx context.Context, kind string) (timesheet.AnalysisRun, error) {
	store := s.Analyzer.Store
	run := timesheet.AnalysisRun{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    RunRunning,
		StartedAt: s.Analyzer.Clock().UTC(),
	}
	if err := store.SaveAnalysisRun(ctx, run); err != nil {
		return run, fmt.Errorf("%w: save run record: %w", ErrRunNotRecorded, err)
	}

	results, err := s.Analyzer.Team(ctx)

	completed := s.Analyzer.Clock().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		s.Logger.Error("team analysis failed", "run", run.ID, "error", err)
	} else {
		run.Status = RunCompleted
		run.Employees = len(results)
		for _, r := range results {
			run.Flags += len(r.Report.Flags)
			run.HighFlags += countSeverity(r.Report.Flags, irregularity.SeverityHigh)
		}
		s.Logger.Info("team analysis completed",
			"run", run.ID,
			"kind", kind,
			"employees", run.Employees,
			"flags", run.Flags,
			"high", run.HighFlags,
		)
	}

	// The run record is written even when ctx was cancelled mid-analysis.
	if saveErr := store.SaveAnalysisRun(context.WithoutCancel(ctx), run); saveErr != nil {
		s.Logger.Error("run record not saved", "run", run.ID, "status", run.Status, "error", saveErr)
		return run, errors.Join(fmt.Errorf("%w: update run record: %w", ErrRunNotRecorded, saveErr), err)
	}
	return run, err
}

func countSeverity(flags []irregularity.Flag, sev irregularity.Severity) int {
	n := 0
	for _, f := range flags {
		if f.Severity == sev {
			n++
		}
	}
	return n
}
