/*
analyzer.go - Per-employee and team analysis over the configured store

PURPOSE:
  Ties the row fetcher, the allocator, the detector and the hours report
  together. Handlers, the scheduler and the CLI all go through Analyzer so
  metrics and logging are recorded the same way everywhere.

TEAM ANALYSIS:
  Team runs the irregularity detector for every employee concurrently
  (errgroup, bounded by Concurrency). The first failure cancels the rest and
  is returned; on success results come back in employee-name order.

TODAY:
  When the configured analysis has no "today", Clock() supplies it so the
  future-date rule always has a reference date.

SEE ALSO:
  - handlers.go: HTTP surface
  - scheduler.go: Periodic team runs
  - factory/analysis.go: AnalysisSpec
*/
package api

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dpanfilo/enforcer/factory"
	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/metrics"
	"github.com/dpanfilo/enforcer/overtime"
	"github.com/dpanfilo/enforcer/report"
	"github.com/dpanfilo/enforcer/timesheet"
)

// Store is everything the API reads from.
type Store interface {
	timesheet.RowSource
	timesheet.JobRegistry
	timesheet.StatusRegistry
	timesheet.RunStore
}

// Analyzer runs analyses against a Store.
type Analyzer struct {
	Store       Store
	Fetcher     *timesheet.Fetcher
	Spec        factory.AnalysisSpec
	Concurrency int
	Clock       func() time.Time
	Logger      *slog.Logger

	factory *factory.AnalysisFactory
}

// NewAnalyzer returns an Analyzer with default fetch settings.
func NewAnalyzer(store Store, spec factory.AnalysisSpec, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		Store:       store,
		Fetcher:     timesheet.NewFetcher(store),
		Spec:        spec,
		Concurrency: 4,
		Clock:       time.Now,
		Logger:      logger,
		factory:     factory.NewAnalysisFactory(),
	}
	a.Fetcher.OnPage = metrics.RecordRows
	return a
}

// AllocationResult is the allocation of one employee.
type AllocationResult struct {
	Employee    string
	Allocations []overtime.Allocation
	Weekly      []overtime.Totals
	Monthly     []overtime.Totals
	Totals      overtime.Totals
}

// TeamResult is one employee's irregularity report within a team run.
type TeamResult struct {
	Employee string
	Report   irregularity.Report
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Build resolves the base spec overlaid with override. An empty today is
// filled from the clock.
func (a *Analyzer) Build(override *factory.AnalysisSpec) (factory.Analysis, error) {
	spec := a.Spec
	if override != nil {
		spec = spec.Overlay(*override)
	}
	if spec.Today == "" {
		spec.Today = timesheet.DateOf(a.Clock()).String()
	}
	return a.factory.FromSpec(spec)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// Employees lists every employee with its slug.
func (a *Analyzer) Employees(ctx context.Context) ([]timesheet.Employee, error) {
	names, err := a.Store.Employees(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]timesheet.Employee, len(names))
	for i, n := range names {
		out[i] = timesheet.Employee{Name: n, Slug: timesheet.Slug(n)}
	}
	return out, nil
}

// Resolve maps a slug to an employee name.
func (a *Analyzer) Resolve(ctx context.Context, slug string) (string, error) {
	return timesheet.FindEmployee(ctx, a.Store, slug)
}

func (a *Analyzer) load(ctx context.Context, employee string) (*timesheet.Timesheet, error) {
	entries, err := a.Fetcher.FetchAll(ctx, employee)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("rows fetched", "employee", employee, "rows", len(entries))
	return timesheet.Build(entries), nil
}

// =============================================================================
// SINGLE EMPLOYEE
// =============================================================================

// Allocation splits an employee's hours into straight time and overtime.
func (a *Analyzer) Allocation(ctx context.Context, employee string) (res *AllocationResult, err error) {
	defer recordAnalysis("allocation", time.Now(), &err)

	cfg, err := a.Build(nil)
	if err != nil {
		return nil, err
	}
	ts, err := a.load(ctx, employee)
	if err != nil {
		return nil, err
	}
	return allocate(employee, cfg.Allocator, ts), nil
}

func allocate(employee string, alloc *overtime.Allocator, ts *timesheet.Timesheet) *AllocationResult {
	allocs := alloc.Allocate(ts)
	return &AllocationResult{
		Employee:    employee,
		Allocations: allocs,
		Weekly:      overtime.WeeklyTotals(allocs),
		Monthly:     overtime.MonthlyTotals(allocs),
		Totals:      overtime.Sum(allocs),
	}
}

// Irregularities runs the detector for one employee.
func (a *Analyzer) Irregularities(ctx context.Context, employee string) (rep irregularity.Report, err error) {
	defer recordAnalysis("irregularities", time.Now(), &err)

	cfg, err := a.Build(nil)
	if err != nil {
		return irregularity.Report{}, err
	}
	ts, err := a.load(ctx, employee)
	if err != nil {
		return irregularity.Report{}, err
	}
	return a.detect(ctx, cfg, ts)
}

func (a *Analyzer) detect(ctx context.Context, cfg factory.Analysis, ts *timesheet.Timesheet) (irregularity.Report, error) {
	det := irregularity.NewDetector(cfg.Detector, metrics.InstrumentRegistry(a.Store))
	rep, err := det.Analyze(ctx, ts)
	if err != nil {
		return irregularity.Report{}, err
	}
	for _, f := range rep.Flags {
		metrics.RecordFlag(string(f.Category), string(f.Severity))
	}
	return rep, nil
}

// Hours builds the hours summary for one employee, including the job
// status breakdown.
func (a *Analyzer) Hours(ctx context.Context, employee string) (h *report.Hours, err error) {
	defer recordAnalysis("hours", time.Now(), &err)

	cfg, err := a.Build(nil)
	if err != nil {
		return nil, err
	}
	ts, err := a.load(ctx, employee)
	if err != nil {
		return nil, err
	}

	jobs, names, err := report.LoadJobContext(ctx, ts, metrics.InstrumentRegistry(a.Store), a.Store, cfg.Detector.LookupChunkSize)
	if err != nil {
		return nil, err
	}
	out := report.Build(ts, cfg.Allocator.Allocate(ts), report.Options{
		AdminCodes:  cfg.Detector.AdminCodes,
		Jobs:        jobs,
		StatusNames: names,
	})
	return &out, nil
}

// AnalyzeEntries runs allocation and detection over rows supplied by the
// caller instead of the store. The job registry is still consulted.
func (a *Analyzer) AnalyzeEntries(ctx context.Context, entries []timesheet.Entry, override *factory.AnalysisSpec) (alloc *AllocationResult, rep irregularity.Report, err error) {
	defer recordAnalysis("adhoc", time.Now(), &err)

	cfg, err := a.Build(override)
	if err != nil {
		return nil, irregularity.Report{}, err
	}
	ts := timesheet.Build(entries)
	rep, err = a.detect(ctx, cfg, ts)
	if err != nil {
		return nil, irregularity.Report{}, err
	}
	return allocate("", cfg.Allocator, ts), rep, nil
}

// =============================================================================
// TEAM
// =============================================================================

// Team runs the detector for every employee.
func (a *Analyzer) Team(ctx context.Context) (results []TeamResult, err error) {
	defer recordAnalysis("team", time.Now(), &err)

	cfg, err := a.Build(nil)
	if err != nil {
		return nil, err
	}
	names, err := a.Store.Employees(ctx)
	if err != nil {
		return nil, err
	}

	results = make([]TeamResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	limit := a.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, name := range names {
		g.Go(func() error {
			ts, err := a.load(gctx, name)
			if err != nil {
				return err
			}
			rep, err := a.detect(gctx, cfg, ts)
			if err != nil {
				return err
			}
			results[i] = TeamResult{Employee: name, Report: rep}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Employee < results[j].Employee })
	return results, nil
}

func recordAnalysis(kind string, started time.Time, err *error) {
	metrics.RecordAnalysis(kind, started, *err)
}
