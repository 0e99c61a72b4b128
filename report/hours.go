/*
Package report aggregates an employee's timesheet into the hours summary
shown next to the irregularity report.

PURPOSE:
  Everything here is a read-only rollup of a timesheet.Timesheet plus the
  overtime allocation for it. Regular/overtime figures always come from
  the weekly allocator, never from the straight/premium split on the rows.

SECTIONS:
  Metrics            totals, day counts, average per day
  Monthly / Weekly   REG and OVT per YYYY-MM and per Monday
  TopJobs            job codes by hours, largest first
  StartHours/EndHours histogram of first start and last end per day
  Distribution       day totals bucketed 0-4, 4-6, 6-8, 8-10, 10-12, 12+
  RecentDays         the last N worked dates
  AdminCodes         hours per admin code
  Statuses           hours per job status (when job details are supplied)

SEE ALSO:
  - overtime/allocator.go: Source of REG/OVT
  - api/dto.go: Rounds these values for JSON
*/
package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/overtime"
	"github.com/dpanfilo/enforcer/timesheet"
)

const (
	DefaultTopJobs    = 15
	DefaultRecentDays = 30
)

// =============================================================================
// TYPES
// =============================================================================

type Metrics struct {
	TotalHours     decimal.Decimal
	StraightHours  decimal.Decimal
	OvertimeHours  decimal.Decimal
	TotalDays      int
	AvgHoursPerDay decimal.Decimal
	DaysOver8      int
	WeekendDays    int
}

type JobHours struct {
	Job   string
	Hours decimal.Decimal
}

type HourCount struct {
	Hour  int
	Count int
}

type Bucket struct {
	Label string
	Count int
}

type RecentDay struct {
	Date      timesheet.Date
	DayOfWeek string
	Hours     decimal.Decimal
	Jobs      []string
}

type StatusHours struct {
	Status string
	Jobs   int
	Hours  decimal.Decimal
}

// Hours is the complete summary.
type Hours struct {
	Metrics      Metrics
	Monthly      []overtime.Totals
	Weekly       []overtime.Totals
	TopJobs      []JobHours
	StartHours   []HourCount
	EndHours     []HourCount
	Distribution []Bucket
	RecentDays   []RecentDay
	AdminCodes   []JobHours
	Statuses     []StatusHours
}

// Options tunes the summary. Zero values use the defaults.
type Options struct {
	TopJobs    int
	RecentDays int
	AdminCodes map[string]struct{}

	// Jobs and StatusNames enable the status breakdown.
	Jobs        map[string]timesheet.JobDetail
	StatusNames map[int]string
}

// =============================================================================
// BUILD
// =============================================================================

var eight = decimal.NewFromInt(8)

// Build summarizes ts. allocs must be the allocation of ts.
func Build(ts *timesheet.Timesheet, allocs []overtime.Allocation, opts Options) Hours {
	if opts.TopJobs <= 0 {
		opts.TopJobs = DefaultTopJobs
	}
	if opts.RecentDays <= 0 {
		opts.RecentDays = DefaultRecentDays
	}

	sum := overtime.Sum(allocs)
	m := Metrics{
		TotalHours:     ts.TotalHours(),
		StraightHours:  sum.Straight,
		OvertimeHours:  sum.Overtime,
		TotalDays:      len(ts.Dates()),
		AvgHoursPerDay: decimal.Zero,
	}
	if m.TotalDays > 0 {
		m.AvgHoursPerDay = m.TotalHours.Div(decimal.NewFromInt(int64(m.TotalDays)))
	}

	startCounts := make(map[int]int)
	endCounts := make(map[int]int)
	for _, day := range ts.Days() {
		if day.Total.GreaterThan(eight) {
			m.DaysOver8++
		}
		if day.Date.IsWeekend() {
			m.WeekendDays++
		}
		if h, ok := firstStartHour(day); ok {
			startCounts[h]++
		}
		if h, ok := lastEndHour(day); ok {
			endCounts[h]++
		}
	}

	return Hours{
		Metrics:      m,
		Monthly:      overtime.MonthlyTotals(allocs),
		Weekly:       overtime.WeeklyTotals(allocs),
		TopJobs:      topJobs(ts, opts.TopJobs, nil),
		StartHours:   histogram(startCounts),
		EndHours:     histogram(endCounts),
		Distribution: distribution(ts),
		RecentDays:   recentDays(ts, opts.RecentDays),
		AdminCodes:   topJobs(ts, 0, opts.AdminCodes),
		Statuses:     statuses(ts, opts.Jobs, opts.StatusNames),
	}
}

// firstStartHour is the hour of the earliest parseable start of the day.
func firstStartHour(day *timesheet.DayRecord) (int, bool) {
	best, found := 0, false
	for _, r := range day.Rows {
		if m, ok := timesheet.TimeToMinutes(r.Start); ok && (!found || m < best) {
			best, found = m, true
		}
	}
	return best / 60, found
}

// lastEndHour is the hour of the latest parseable end of the day.
func lastEndHour(day *timesheet.DayRecord) (int, bool) {
	best, found := 0, false
	for _, r := range day.Rows {
		if m, ok := timesheet.TimeToMinutes(r.End); ok && (!found || m > best) {
			best, found = m, true
		}
	}
	return best / 60, found
}

func histogram(counts map[int]int) []HourCount {
	out := []HourCount{}
	for h := 0; h <= 23; h++ {
		if c := counts[h]; c > 0 {
			out = append(out, HourCount{Hour: h, Count: c})
		}
	}
	return out
}

// topJobs ranks job codes by hours. only, when non-nil, restricts the codes
// considered. limit <= 0 keeps every code.
func topJobs(ts *timesheet.Timesheet, limit int, only map[string]struct{}) []JobHours {
	totals := make(map[string]decimal.Decimal)
	for _, r := range ts.Rows() {
		if r.JobCode == "" {
			continue
		}
		if only != nil {
			if _, ok := only[r.JobCode]; !ok {
				continue
			}
		}
		h, ok := totals[r.JobCode]
		if !ok {
			h = decimal.Zero
		}
		totals[r.JobCode] = h.Add(r.Hours())
	}

	out := make([]JobHours, 0, len(totals))
	for job, h := range totals {
		out = append(out, JobHours{Job: job, Hours: h})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Hours.Cmp(out[j].Hours); c != 0 {
			return c > 0
		}
		return out[i].Job < out[j].Job
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var bucketBounds = []struct {
	label string
	upper decimal.Decimal
}{
	{"0-4h", decimal.NewFromInt(4)},
	{"4-6h", decimal.NewFromInt(6)},
	{"6-8h", decimal.NewFromInt(8)},
	{"8-10h", decimal.NewFromInt(10)},
	{"10-12h", decimal.NewFromInt(12)},
}

func distribution(ts *timesheet.Timesheet) []Bucket {
	out := make([]Bucket, len(bucketBounds)+1)
	for i, b := range bucketBounds {
		out[i].Label = b.label
	}
	out[len(bucketBounds)].Label = "12h+"

	for _, day := range ts.Days() {
		idx := len(bucketBounds)
		for i, b := range bucketBounds {
			if day.Total.LessThan(b.upper) {
				idx = i
				break
			}
		}
		out[idx].Count++
	}
	return out
}

func recentDays(ts *timesheet.Timesheet, n int) []RecentDay {
	days := ts.Days()
	if len(days) > n {
		days = days[len(days)-n:]
	}
	out := make([]RecentDay, 0, len(days))
	for _, day := range days {
		rd := RecentDay{Date: day.Date, Hours: day.Total, Jobs: []string{}}
		if wd, ok := day.Date.Weekday(); ok {
			rd.DayOfWeek = wd.String()[:3]
		}
		seen := make(map[string]bool)
		for _, r := range day.Rows {
			if r.JobCode != "" && !seen[r.JobCode] {
				seen[r.JobCode] = true
				rd.Jobs = append(rd.Jobs, r.JobCode)
			}
		}
		out = append(out, rd)
	}
	return out
}

// statuses groups job hours by the job's status name. Codes unknown to the
// registry are grouped under "Unknown".
func statuses(ts *timesheet.Timesheet, jobs map[string]timesheet.JobDetail, names map[int]string) []StatusHours {
	if jobs == nil {
		return nil
	}
	type acc struct {
		jobs  map[string]bool
		hours decimal.Decimal
	}
	groups := make(map[string]*acc)
	for _, r := range ts.Rows() {
		if r.JobCode == "" {
			continue
		}
		status := "Unknown"
		if j, ok := jobs[r.JobCode]; ok {
			status = StatusName(j, names)
		}
		g, ok := groups[status]
		if !ok {
			g = &acc{jobs: make(map[string]bool), hours: decimal.Zero}
			groups[status] = g
		}
		g.jobs[r.JobCode] = true
		g.hours = g.hours.Add(r.Hours())
	}

	out := make([]StatusHours, 0, len(groups))
	for name, g := range groups {
		out = append(out, StatusHours{Status: name, Jobs: len(g.jobs), Hours: g.hours})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Hours.Cmp(out[j].Hours); c != 0 {
			return c > 0
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// StatusName resolves a job's status id, falling back to its macro status.
func StatusName(j timesheet.JobDetail, names map[int]string) string {
	if j.StatusID != nil {
		if n, ok := names[*j.StatusID]; ok {
			return n
		}
	}
	if j.MacroStatus != "" {
		return j.MacroStatus
	}
	return "Unknown"
}

// =============================================================================
// JOB CONTEXT
// =============================================================================

// LoadJobContext fetches job details for every code in ts and the status
// name table, for the status breakdown.
func LoadJobContext(ctx context.Context, ts *timesheet.Timesheet, jobs timesheet.JobRegistry, statuses timesheet.StatusRegistry, chunk int) (map[string]timesheet.JobDetail, map[int]string, error) {
	seen := make(map[string]bool)
	var codes []string
	for _, r := range ts.Rows() {
		if r.JobCode != "" && !seen[r.JobCode] {
			seen[r.JobCode] = true
			codes = append(codes, r.JobCode)
		}
	}

	details := make(map[string]timesheet.JobDetail)
	for _, batch := range timesheet.Chunk(codes, chunk) {
		found, err := jobs.LookupJobs(ctx, batch)
		if err != nil {
			return nil, nil, &timesheet.LookupError{Codes: len(batch), Err: err}
		}
		for k, v := range found {
			details[k] = v
		}
	}

	names, err := statuses.StatusNames(ctx)
	if err != nil {
		return nil, nil, &timesheet.LookupError{Err: err}
	}
	return details, names, nil
}
