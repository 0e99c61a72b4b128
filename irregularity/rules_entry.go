package irregularity

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// ROW-LEVEL RULES
// =============================================================================

var sixty = decimal.NewFromInt(60)

func orDash(s string) string {
	if s == "" {
		return NoDate
	}
	return s
}

func hoursFixed(d decimal.Decimal) string { return d.StringFixed(2) }

// checkFutureDates flags dates after Config.Today. Opaque dates are never
// compared.
func checkFutureDates(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	today := in.Config.Today
	if !today.IsCanonical() {
		return nil, nil
	}
	for _, d := range in.Timesheet.Dates() {
		if d.IsCanonical() && d > today {
			flags = append(flags, Flag{
				Severity: SeverityHigh,
				Category: CategoryFutureDate,
				Date:     d.String(),
				Detail:   fmt.Sprintf("Entry dated %s is in the future (today is %s).", d, today),
			})
		}
	}
	return flags, nil
}

// checkDuplicates flags the second and later rows of a day that repeat the
// same start, end and job code.
func checkDuplicates(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		seen := make(map[[3]string]bool, len(day.Rows))
		for _, r := range day.Rows {
			k := [3]string{r.Start, r.End, r.JobCode}
			if !seen[k] {
				seen[k] = true
				continue
			}
			flags = append(flags, Flag{
				Severity: SeverityHigh,
				Category: CategoryDuplicate,
				Date:     day.Date.String(),
				Detail: fmt.Sprintf("Duplicate row: start=%s end=%s job=%s",
					orDash(r.Start), orDash(r.End), orDash(r.JobCode)),
			})
		}
	}
	return flags, nil
}

type interval struct {
	row        timesheet.Row
	start, end int
}

func dayIntervals(day *timesheet.DayRecord) []interval {
	var out []interval
	for _, r := range day.Rows {
		if s, e, ok := r.Interval(); ok {
			out = append(out, interval{row: r, start: s, end: e})
		}
	}
	return out
}

// checkOverlaps compares every pair of clocked rows within a day.
func checkOverlaps(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		ivs := dayIntervals(day)
		for i := 0; i < len(ivs); i++ {
			for j := i + 1; j < len(ivs); j++ {
				a, b := ivs[i], ivs[j]
				if a.start >= b.end || b.start >= a.end {
					continue
				}
				overlap := min(a.end, b.end) - max(a.start, b.start)
				flags = append(flags, Flag{
					Severity: SeverityHigh,
					Category: CategoryOverlap,
					Date:     day.Date.String(),
					Detail: fmt.Sprintf("%s–%s (%s) overlaps %s–%s (%s) by %d min.",
						a.row.Start, a.row.End, orDash(a.row.JobCode),
						b.row.Start, b.row.End, orDash(b.row.JobCode), overlap),
				})
			}
		}
	}
	return flags, nil
}

// checkMismatch compares the clock span of a row to the hours it reports.
func checkMismatch(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	cfg := in.Config
	for _, day := range in.Timesheet.Days() {
		for _, iv := range dayIntervals(day) {
			reported := iv.row.Hours()
			if reported.IsZero() {
				continue
			}
			clock := decimal.NewFromInt(int64(iv.end - iv.start)).Div(sixty)
			diff := clock.Sub(reported).Abs()
			if !diff.GreaterThan(cfg.MismatchTolerance) {
				continue
			}
			sev := SeverityMedium
			if diff.GreaterThan(cfg.MismatchHighDiff) {
				sev = SeverityHigh
			}
			flags = append(flags, Flag{
				Severity: sev,
				Category: CategoryMismatch,
				Date:     day.Date.String(),
				Detail: fmt.Sprintf("%s–%s = %sh on clock, but %sh reported (diff %sh). Job: %s",
					iv.row.Start, iv.row.End, hoursFixed(clock), reported.String(),
					hoursFixed(diff), orDash(iv.row.JobCode)),
			})
		}
	}
	return flags, nil
}

// checkZeroHours flags rows with a clock time but no hours.
func checkZeroHours(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		for _, r := range day.Rows {
			if !r.Hours().IsZero() || !r.HasClock() {
				continue
			}
			flags = append(flags, Flag{
				Severity: SeverityMedium,
				Category: CategoryZeroHours,
				Date:     day.Date.String(),
				Detail: fmt.Sprintf("Entry has start=%s end=%s but 0 hours reported. Job: %s",
					orDash(r.Start), orDash(r.End), orDash(r.JobCode)),
			})
		}
	}
	return flags, nil
}

// checkUnusualHours flags very early starts and very late ends.
func checkUnusualHours(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	cfg := in.Config
	for _, day := range in.Timesheet.Days() {
		for _, r := range day.Rows {
			if s, ok := timesheet.TimeToMinutes(r.Start); ok && s < cfg.EarlyStartMinute {
				flags = append(flags, Flag{
					Severity: SeverityLow,
					Category: CategoryUnusualHours,
					Date:     day.Date.String(),
					Detail: fmt.Sprintf("Start time %s is before %s. Job: %s",
						r.Start, clockLabel(cfg.EarlyStartMinute), orDash(r.JobCode)),
				})
			}
			if e, ok := timesheet.TimeToMinutes(r.End); ok && e >= cfg.LateEndMinute {
				flags = append(flags, Flag{
					Severity: SeverityLow,
					Category: CategoryUnusualHours,
					Date:     day.Date.String(),
					Detail: fmt.Sprintf("End time %s is at or after %s. Job: %s",
						r.End, clockLabel(cfg.LateEndMinute), orDash(r.JobCode)),
				})
			}
		}
	}
	return flags, nil
}

// clockLabel renders minutes after midnight as "5:00 AM".
func clockLabel(minutes int) string {
	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix)
}

// checkDriving flags every row billed to the driving code.
func checkDriving(_ context.Context, in *Input) ([]Flag, error) {
	code := in.Config.DrivingCode
	if code == "" {
		return nil, nil
	}
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		for _, r := range day.Rows {
			if r.JobCode != code {
				continue
			}
			flags = append(flags, Flag{
				Severity: SeverityLow,
				Category: CategoryDriving,
				Date:     day.Date.String(),
				Detail: fmt.Sprintf("%sh billed under %q code. Verify if drive time is a compensable category per policy.",
					hoursFixed(r.Hours()), code),
			})
		}
	}
	return flags, nil
}
