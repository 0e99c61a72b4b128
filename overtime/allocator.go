/*
Package overtime splits daily hours into regular and overtime pay.

PURPOSE:
  Overtime is owed for hours past 40 in a Monday-Sunday week. Timesheet
  rows carry their own straight/premium split, but that split was entered
  per row by people and is not reliable, so it is discarded: only the day
  total matters here.

ALGORITHM:
  For each Monday-anchored week, walk its dates in ascending order keeping
  a running total of hours already worked that week:

    budget   = max(0, threshold - accumulated)
    straight = min(total, budget)
    overtime = max(0, total - budget)
    accumulated += total

  So the day that crosses 40h is split, and every later day in the week is
  all overtime.

EXAMPLE:
  Mon-Fri at 9h each:
    Mon 9/0, Tue 9/0, Wed 9/0, Thu 9/0 (36h so far), Fri 4/5

INVARIANTS:
  - Straight + Overtime == Total for every date
  - Per week, Σ Straight <= threshold, equal iff Σ Total >= threshold
  - Output depends only on the multiset of (date, hours), not row order

SEE ALSO:
  - timesheet/date.go: WeekOf (Monday anchor)
  - report/hours.go: Monthly/weekly REG and OVT built from this output
*/
package overtime

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// DefaultWeeklyThreshold is the FLSA 40 hour week.
var DefaultWeeklyThreshold = decimal.NewFromInt(40)

// =============================================================================
// TYPES
// =============================================================================

// Allocation is the regular/overtime split of one date.
type Allocation struct {
	Date      timesheet.Date
	WeekStart timesheet.Date // equals Date for opaque dates
	Total     decimal.Decimal
	Straight  decimal.Decimal
	Overtime  decimal.Decimal
}

// Allocator applies a weekly threshold.
type Allocator struct {
	WeeklyThreshold decimal.Decimal
}

func NewAllocator() *Allocator {
	return &Allocator{WeeklyThreshold: DefaultWeeklyThreshold}
}

// ComputeWeeklyAllocation allocates entries against a 40 hour week.
func ComputeWeeklyAllocation(entries []timesheet.Entry) []Allocation {
	return NewAllocator().Allocate(timesheet.Build(entries))
}

// =============================================================================
// ALLOCATION
// =============================================================================

// Allocate returns one Allocation per date of ts, ordered by date.
//
// A date that is not a real calendar date cannot be placed in a week; it is
// treated as a week of its own.
func (a *Allocator) Allocate(ts *timesheet.Timesheet) []Allocation {
	threshold := a.WeeklyThreshold
	if threshold.IsZero() {
		threshold = DefaultWeeklyThreshold
	}

	// Dates are ascending, so each week's days arrive in order.
	accumulated := make(map[timesheet.Date]decimal.Decimal)
	out := make([]Allocation, 0, len(ts.Dates()))

	for _, day := range ts.Days() {
		weekStart := day.Date
		if w, ok := timesheet.WeekOf(day.Date); ok {
			weekStart = w.Start
		}

		acc := accumulated[weekStart]
		budget := decimal.Max(decimal.Zero, threshold.Sub(acc))
		straight := decimal.Min(day.Total, budget)
		over := decimal.Max(decimal.Zero, day.Total.Sub(budget))
		accumulated[weekStart] = acc.Add(day.Total)

		out = append(out, Allocation{
			Date:      day.Date,
			WeekStart: weekStart,
			Total:     day.Total,
			Straight:  straight,
			Overtime:  over,
		})
	}
	return out
}

// =============================================================================
// ROLLUPS
// =============================================================================

// Totals is a straight/overtime sum over some span of dates.
type Totals struct {
	Key      string
	Days     int
	Total    decimal.Decimal
	Straight decimal.Decimal
	Overtime decimal.Decimal
}

func (t *Totals) add(a Allocation) {
	t.Days++
	t.Total = t.Total.Add(a.Total)
	t.Straight = t.Straight.Add(a.Straight)
	t.Overtime = t.Overtime.Add(a.Overtime)
}

// WeeklyTotals sums allocations per week start, ascending.
func WeeklyTotals(allocs []Allocation) []Totals {
	return rollup(allocs, func(a Allocation) string { return string(a.WeekStart) })
}

// MonthlyTotals sums allocations per YYYY-MM, ascending.
func MonthlyTotals(allocs []Allocation) []Totals {
	return rollup(allocs, func(a Allocation) string { return a.Date.MonthKey() })
}

// Sum totals every allocation.
func Sum(allocs []Allocation) Totals {
	t := Totals{Total: decimal.Zero, Straight: decimal.Zero, Overtime: decimal.Zero}
	for _, a := range allocs {
		t.add(a)
	}
	return t
}

func rollup(allocs []Allocation, key func(Allocation) string) []Totals {
	idx := make(map[string]*Totals)
	var keys []string
	for _, a := range allocs {
		k := key(a)
		t, ok := idx[k]
		if !ok {
			t = &Totals{Key: k, Total: decimal.Zero, Straight: decimal.Zero, Overtime: decimal.Zero}
			idx[k] = t
			keys = append(keys, k)
		}
		t.add(a)
	}
	sort.Strings(keys)
	out := make([]Totals, 0, len(keys))
	for _, k := range keys {
		out = append(out, *idx[k])
	}
	return out
}
