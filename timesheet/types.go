/*
types.go - Core timesheet data model

PURPOSE:
  Defines what a timesheet row looks like once it leaves the tabular store
  and how rows are grouped by calendar date. Everything downstream (the
  overtime allocator, the irregularity rules, the hours report) reads the
  same immutable Timesheet so dates are normalized exactly once.

KEY TYPES:
  Entry:     One raw row as read from the store (hours already coerced)
  Row:       An Entry plus its normalized Date
  DayRecord: All rows sharing one Date, with the day total
  Timesheet: Rows grouped by date, dates sorted ascending

HOURS:
  Hours are decimal.Decimal throughout. Values are rounded only when
  rendered (DTOs, flag details).

SEE ALSO:
  - date.go: Date normalization and the Monday-anchored Week
  - clock.go: Clock time and number coercion
  - overtime/allocator.go, irregularity/detector.go: Consumers
*/
package timesheet

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - One raw timesheet row
// =============================================================================

// Entry is a single timesheet row. Start, End and JobCode are empty when the
// source had no value.
type Entry struct {
	Employee      string
	Date          string
	Start         string
	End           string
	StraightCode  string
	StraightHours decimal.Decimal
	PremiumCode   string
	PremiumHours  decimal.Decimal
	JobCode       string
	Notes         string
}

// Hours returns straight + premium as reported by the source.
func (e Entry) Hours() decimal.Decimal {
	return e.StraightHours.Add(e.PremiumHours)
}

// HasClock reports whether either clock field is present.
func (e Entry) HasClock() bool {
	return e.Start != "" || e.End != ""
}

// Interval returns [start, end) in minutes when both ends parse and end is
// after start.
func (e Entry) Interval() (start, end int, ok bool) {
	s, ok1 := TimeToMinutes(e.Start)
	en, ok2 := TimeToMinutes(e.End)
	if !ok1 || !ok2 || en <= s {
		return 0, 0, false
	}
	return s, en, true
}

// Row is an Entry with its date normalized.
type Row struct {
	Entry
	Day Date
}

// =============================================================================
// DAY RECORD / TIMESHEET
// =============================================================================

// DayRecord groups the rows of one date.
type DayRecord struct {
	Date  Date
	Rows  []Row
	Total decimal.Decimal
}

// Timesheet is an immutable by-date view over a set of entries.
type Timesheet struct {
	rows  []Row
	days  map[Date]*DayRecord
	dates []Date
}

// Build normalizes every entry's date once and groups rows by date. Rows
// whose date is blank are dropped.
func Build(entries []Entry) *Timesheet {
	ts := &Timesheet{
		rows: make([]Row, 0, len(entries)),
		days: make(map[Date]*DayRecord),
	}
	for _, e := range entries {
		d := NormalizeDate(e.Date)
		if d == "" {
			continue
		}
		row := Row{Entry: e, Day: d}
		ts.rows = append(ts.rows, row)

		day, ok := ts.days[d]
		if !ok {
			day = &DayRecord{Date: d, Total: decimal.Zero}
			ts.days[d] = day
			ts.dates = append(ts.dates, d)
		}
		day.Rows = append(day.Rows, row)
		day.Total = day.Total.Add(e.Hours())
	}
	sort.Slice(ts.dates, func(i, j int) bool { return ts.dates[i] < ts.dates[j] })
	return ts
}

// Rows returns every ingested row in input order.
func (t *Timesheet) Rows() []Row { return t.rows }

// Dates returns the distinct dates in ascending order.
func (t *Timesheet) Dates() []Date { return t.dates }

// Day returns the record for d, or nil.
func (t *Timesheet) Day(d Date) *DayRecord { return t.days[d] }

// Days returns day records in ascending date order.
func (t *Timesheet) Days() []*DayRecord {
	out := make([]*DayRecord, 0, len(t.dates))
	for _, d := range t.dates {
		out = append(out, t.days[d])
	}
	return out
}

// Len is the number of ingested rows.
func (t *Timesheet) Len() int { return len(t.rows) }

// TotalHours sums every row.
func (t *Timesheet) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, d := range t.days {
		total = total.Add(d.Total)
	}
	return total
}

// HoursWhere sums the rows accepted by keep.
func (t *Timesheet) HoursWhere(keep func(Row) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.rows {
		if keep(r) {
			total = total.Add(r.Hours())
		}
	}
	return total
}

// LongestStreak returns the longest run of calendar-consecutive dates.
// An empty timesheet has a streak of zero.
func (t *Timesheet) LongestStreak() int {
	if len(t.dates) == 0 {
		return 0
	}
	longest, current := 1, 1
	for i := 1; i < len(t.dates); i++ {
		if diff, ok := DaysBetween(t.dates[i-1], t.dates[i]); ok && diff == 1 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest
}
