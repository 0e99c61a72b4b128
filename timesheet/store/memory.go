// Package store provides in-memory timesheet collaborators.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements RowSource, JobRegistry, StatusRegistry and RunStore.
type Memory struct {
	mu       sync.RWMutex
	entries  map[string][]timesheet.Entry
	jobs     map[string]timesheet.JobDetail
	statuses map[int]string
	runs     []timesheet.AnalysisRun

	// Err, when set, is returned by every call. Used to simulate outages.
	Err error

	// Lookups records every LookupJobs batch.
	Lookups [][]string
}

func NewMemory() *Memory {
	return &Memory{
		entries:  make(map[string][]timesheet.Entry),
		jobs:     make(map[string]timesheet.JobDetail),
		statuses: make(map[int]string),
	}
}

// Add appends entries, keyed by their Employee field.
func (m *Memory) Add(entries ...timesheet.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Employee] = append(m.entries[e.Employee], e)
	}
}

// AddJob registers a job code.
func (m *Memory) AddJob(job timesheet.JobDetail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.Code] = job
}

// AddStatus registers a status name.
func (m *Memory) AddStatus(id int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = name
}

func (m *Memory) Employees(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	names := make([]string, 0, len(m.entries))
	for n := range m.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) FetchPage(_ context.Context, employee string, offset, limit int) ([]timesheet.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rows := m.entries[employee]
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]timesheet.Entry, end-offset)
	copy(out, rows[offset:end])
	return out, nil
}

func (m *Memory) LookupJobs(_ context.Context, codes []string) (map[string]timesheet.JobDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lookups = append(m.Lookups, append([]string(nil), codes...))
	if m.Err != nil {
		return nil, m.Err
	}
	found := make(map[string]timesheet.JobDetail)
	for _, c := range codes {
		if j, ok := m.jobs[c]; ok {
			found[c] = j
		}
	}
	return found, nil
}

func (m *Memory) StatusNames(_ context.Context) (map[int]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[int]string, len(m.statuses))
	for k, v := range m.statuses {
		out[k] = v
	}
	return out, nil
}

// SaveAnalysisRun inserts or replaces a run by ID.
func (m *Memory) SaveAnalysisRun(_ context.Context, run timesheet.AnalysisRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

// ListAnalysisRuns returns runs newest first.
func (m *Memory) ListAnalysisRuns(_ context.Context, limit int) ([]timesheet.AnalysisRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]timesheet.AnalysisRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.runs[i])
	}
	return out, nil
}

var (
	_ timesheet.RowSource      = (*Memory)(nil)
	_ timesheet.JobRegistry    = (*Memory)(nil)
	_ timesheet.StatusRegistry = (*Memory)(nil)
	_ timesheet.RunStore       = (*Memory)(nil)
)
