/*
source.go - Collaborator interfaces for rows and job metadata

PURPOSE:
  Defines the boundary between the computation packages and whatever holds
  the data. Implementations exist for SQLite, Postgres and memory.

KEY INTERFACES:
  RowSource:      Paginated timesheet rows per employee
  JobRegistry:    Batch job code lookup
  StatusRegistry: Job status id -> name
  RunStore:       History of team analysis runs

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Local SQLite database
  - store/postgres/postgres.go: Hosted Postgres
  - timesheet/store/memory.go: In-memory for tests

SEE ALSO:
  - fetch.go: Pages through a RowSource
*/
package timesheet

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// =============================================================================
// INTERFACES
// =============================================================================

// RowSource reads timesheet rows.
type RowSource interface {
	// Employees returns distinct employee names, sorted.
	Employees(ctx context.Context) ([]string, error)

	// FetchPage returns at most limit rows for employee starting at offset,
	// in import order. A short page means the end was reached.
	FetchPage(ctx context.Context, employee string, offset, limit int) ([]Entry, error)
}

// JobRegistry resolves job codes. Codes missing from the result do not exist.
type JobRegistry interface {
	LookupJobs(ctx context.Context, codes []string) (map[string]JobDetail, error)
}

// StatusRegistry resolves job status ids to display names.
type StatusRegistry interface {
	StatusNames(ctx context.Context) (map[int]string, error)
}

// JobDetail is the registry view of one job.
type JobDetail struct {
	Code        string
	Description string
	City        string
	State       string
	MacroStatus string
	StatusID    *int
	Rush        bool
}

// RunStore records scheduled and on-demand analysis runs.
type RunStore interface {
	SaveAnalysisRun(ctx context.Context, run AnalysisRun) error
	ListAnalysisRuns(ctx context.Context, limit int) ([]AnalysisRun, error)
}

// AnalysisRun is one execution of the team analysis.
type AnalysisRun struct {
	ID          string
	Kind        string // scheduled, manual
	Status      string // running, completed, failed
	Employees   int
	Flags       int
	HighFlags   int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Employee pairs a display name with its URL slug.
type Employee struct {
	Name string
	Slug string
}

// =============================================================================
// HELPERS
// =============================================================================

var (
	slugSpaceRe = regexp.MustCompile(`\s+`)
	slugDropRe  = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slug turns an employee name into a URL-safe identifier: whitespace runs
// become '-', anything else outside [a-z0-9-] is dropped.
func Slug(name string) string {
	s := slugSpaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return slugDropRe.ReplaceAllString(s, "")
}

// FindEmployee resolves a slug against the names known to src.
func FindEmployee(ctx context.Context, src RowSource, slug string) (string, error) {
	names, err := src.Employees(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if Slug(n) == slug {
			return n, nil
		}
	}
	return "", ErrEmployeeNotFound
}

// DistinctEmployees returns the employee names of entries in first-seen
// order.
func DistinctEmployees(entries []Entry) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, e := range entries {
		if !seen[e.Employee] {
			seen[e.Employee] = true
			out = append(out, e.Employee)
		}
	}
	return out
}

// Chunk splits codes into batches of at most size.
func Chunk(codes []string, size int) [][]string {
	if size <= 0 {
		size = len(codes)
	}
	var out [][]string
	for start := 0; start < len(codes); start += size {
		end := start + size
		if end > len(codes) {
			end = len(codes)
		}
		out = append(out, codes[start:end])
	}
	return out
}
