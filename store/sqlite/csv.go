package sqlite

import (
	"context"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/dpanfilo/enforcer/timesheet"
)

// ImportResult describes one CSV import.
type ImportResult struct {
	BatchID   string
	Rows      int
	Employees []string
}

// ImportCSV parses r and stores its rows under a new batch id.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader, defaultEmployee string) (*ImportResult, error) {
	entries, err := timesheet.ParseCSV(r, defaultEmployee)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	n, err := s.ImportEntries(ctx, batchID, entries)
	if err != nil {
		return nil, err
	}

	employees := timesheet.DistinctEmployees(entries)
	sort.Strings(employees)

	return &ImportResult{BatchID: batchID, Rows: n, Employees: employees}, nil
}
