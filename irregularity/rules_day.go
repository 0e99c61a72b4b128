package irregularity

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// DAY-LEVEL RULES
// =============================================================================

func checkLongDays(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		if day.Total.GreaterThan(in.Config.LongDayHours) {
			flags = append(flags, Flag{
				Severity: SeverityMedium,
				Category: CategoryLongDay,
				Date:     day.Date.String(),
				Detail:   fmt.Sprintf("%sh reported in a single day.", hoursFixed(day.Total)),
			})
		}
	}
	return flags, nil
}

// checkWeekends emits one flag per Saturday or Sunday worked.
func checkWeekends(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	for _, day := range in.Timesheet.Days() {
		if !day.Date.IsWeekend() {
			continue
		}
		wd, _ := day.Date.Weekday()
		flags = append(flags, Flag{
			Severity: SeverityLow,
			Category: CategoryWeekend,
			Date:     day.Date.String(),
			Detail:   fmt.Sprintf("Worked %sh on a %s.", hoursFixed(day.Total), wd),
		})
	}
	return flags, nil
}

// checkHighAdminDays flags days that are mostly admin-coded. A day with no
// billable work at all is medium; otherwise low.
func checkHighAdminDays(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	cfg := in.Config
	for _, day := range in.Timesheet.Days() {
		if day.Total.LessThan(cfg.AdminDayMinHours) || !day.Total.IsPositive() {
			continue
		}
		admin := sumRows(day.Rows, in.isAdmin)
		ratio := admin.Div(day.Total)
		if ratio.LessThan(cfg.AdminDayRatio) {
			continue
		}
		sev := SeverityLow
		if admin.Equal(day.Total) {
			sev = SeverityMedium
		}
		flags = append(flags, Flag{
			Severity: sev,
			Category: CategoryHighAdmin,
			Date:     day.Date.String(),
			Detail: fmt.Sprintf("%s%% of %sh (%sh) coded to non-billable admin; no project work recorded.",
				ratio.Mul(hundred).StringFixed(0), hoursFixed(day.Total), hoursFixed(admin)),
		})
	}
	return flags, nil
}

func checkExcessivePrep(_ context.Context, in *Input) ([]Flag, error) {
	var flags []Flag
	cfg := in.Config
	isPrep := func(r timesheet.Row) bool { return cfg.PrepCodes.Contains(r.JobCode) }
	for _, day := range in.Timesheet.Days() {
		prep := sumRows(day.Rows, isPrep)
		if !prep.GreaterThan(cfg.PrepDayHours) {
			continue
		}
		flags = append(flags, Flag{
			Severity: SeverityMedium,
			Category: CategoryExcessivePrep,
			Date:     day.Date.String(),
			Detail: fmt.Sprintf("%sh billed to %s in a single day; no specific project attached.",
				hoursFixed(prep), strings.Join(cfg.PrepCodes.Sorted(), " / ")),
		})
	}
	return flags, nil
}

func sumRows(rows []timesheet.Row, keep func(timesheet.Row) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if keep(r) {
			total = total.Add(r.Hours())
		}
	}
	return total
}

// =============================================================================
// SEQUENCE RULES
// =============================================================================

// checkStreaks flags every day past the streak limit in a run of
// calendar-consecutive worked dates.
func checkStreaks(_ context.Context, in *Input) ([]Flag, error) {
	dates := in.Timesheet.Dates()
	if len(dates) == 0 {
		return nil, nil
	}
	var flags []Flag
	streak, start := 1, dates[0]
	for i := 1; i < len(dates); i++ {
		if diff, ok := timesheet.DaysBetween(dates[i-1], dates[i]); !ok || diff != 1 {
			streak, start = 1, dates[i]
			continue
		}
		streak++
		if streak > in.Config.StreakLimit {
			flags = append(flags, Flag{
				Severity: SeverityMedium,
				Category: CategoryStreak,
				Date:     dates[i].String(),
				Detail: fmt.Sprintf("Day %d of consecutive work starting %s. No day off in %d days.",
					streak, start, streak),
			})
		}
	}
	return flags, nil
}

// checkIdenticalHours flags runs of sorted dates whose totals are equal
// within tolerance, from the run's Nth day onward.
func checkIdenticalHours(_ context.Context, in *Input) ([]Flag, error) {
	days := in.Timesheet.Days()
	cfg := in.Config
	var flags []Flag
	same := 1
	for i := 1; i < len(days); i++ {
		if !days[i].Total.Sub(days[i-1].Total).Abs().LessThan(cfg.IdenticalTolerance) {
			same = 1
			continue
		}
		same++
		if same >= cfg.IdenticalRunLength {
			flags = append(flags, Flag{
				Severity: SeverityLow,
				Category: CategoryIdentical,
				Date:     days[i].Date.String(),
				Detail: fmt.Sprintf("Exactly %sh reported for %d consecutive days (since %s).",
					days[i].Total.String(), same, days[i-same+1].Date),
			})
		}
	}
	return flags, nil
}
