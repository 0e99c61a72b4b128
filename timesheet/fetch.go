/*
fetch.go - Paged reads over a RowSource

PURPOSE:
  The tabular store caps how many rows a single query returns. Fetcher pages
  through an employee's rows until a short page comes back, retrying a
  page that failed transiently (see IsTransient) a bounded number of times
  before giving up. Cancellation and rejected queries are returned at once.
  Retrying lives here, at the collaborator boundary; the allocator and
  detector never retry anything.

EXAMPLE:
  f := timesheet.NewFetcher(store)
  entries, err := f.FetchAll(ctx, "Jane Doe")
  if timesheet.IsRetryable(err) {
      // source is down; surface 502
  }

SEE ALSO:
  - source.go: RowSource interface
*/
package timesheet

import (
	"context"
	"time"
)

const (
	// DefaultPageSize matches the row cap of the hosted store.
	DefaultPageSize = 1000

	DefaultMaxAttempts = 3
	DefaultBackoff     = 200 * time.Millisecond
)

// =============================================================================
// FETCHER
// =============================================================================

// Fetcher reads every row of an employee through a RowSource.
type Fetcher struct {
	Source      RowSource
	PageSize    int
	MaxRows     int // 0 = unlimited
	MaxAttempts int
	Backoff     time.Duration

	// OnPage, if set, is called with the size of every page read.
	OnPage func(rows int)
}

func NewFetcher(src RowSource) *Fetcher {
	return &Fetcher{
		Source:      src,
		PageSize:    DefaultPageSize,
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// FetchAll returns all rows for employee, in source order.
func (f *Fetcher) FetchAll(ctx context.Context, employee string) ([]Entry, error) {
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []Entry
	for offset := 0; ; offset += pageSize {
		page, err := f.fetchPage(ctx, employee, offset, pageSize)
		if err != nil {
			return nil, err
		}
		if f.OnPage != nil {
			f.OnPage(len(page))
		}
		all = append(all, page...)

		if f.MaxRows > 0 && len(all) >= f.MaxRows {
			return all[:f.MaxRows], nil
		}
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, employee string, offset, limit int) ([]Entry, error) {
	attempts := f.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	tried := 0
	for i := 1; i <= attempts; i++ {
		tried = i
		page, err := f.Source.FetchPage(ctx, employee, offset, limit)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if i == attempts || ctx.Err() != nil || !IsTransient(err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &FetchError{Employee: employee, Offset: offset, Attempts: i, Err: ctx.Err()}
		case <-time.After(f.Backoff * time.Duration(i)):
		}
	}
	return nil, &FetchError{Employee: employee, Offset: offset, Attempts: tried, Err: lastErr}
}
