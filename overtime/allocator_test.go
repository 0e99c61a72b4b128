package overtime_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/overtime"
	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func h(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(date, straight, premium string) timesheet.Entry {
	return timesheet.Entry{Date: date, StraightHours: h(straight), PremiumHours: h(premium)}
}

func assertHours(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, h(want).Equal(got), "want %s got %s %v", want, got.String(), msgAndArgs)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAllocate_NineHourWeek(t *testing.T) {
	// GIVEN: Mon-Fri at 9h each (2025-06-02 is a Monday)
	var entries []timesheet.Entry
	for _, d := range []string{"2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05", "2025-06-06"} {
		entries = append(entries, entry(d, "9", "0"))
	}

	// WHEN: Allocating
	allocs := overtime.ComputeWeeklyAllocation(entries)

	// THEN: Friday crosses 40h and is split 4/5
	require.Len(t, allocs, 5)
	wantStraight := []string{"9", "9", "9", "9", "4"}
	wantOT := []string{"0", "0", "0", "0", "5"}
	for i, a := range allocs {
		assertHours(t, wantStraight[i], a.Straight, "straight %s", a.Date)
		assertHours(t, wantOT[i], a.Overtime, "overtime %s", a.Date)
		assert.Equal(t, timesheet.Date("2025-06-02"), a.WeekStart)
	}
}

func TestAllocate_SingleLongDay(t *testing.T) {
	// GIVEN: One 45h day
	allocs := overtime.ComputeWeeklyAllocation([]timesheet.Entry{entry("2025-06-04", "45", "0")})

	// THEN: 40 straight, 5 overtime
	require.Len(t, allocs, 1)
	assertHours(t, "40", allocs[0].Straight)
	assertHours(t, "5", allocs[0].Overtime)
}

func TestAllocate_IgnoresSourceSplit(t *testing.T) {
	// GIVEN: A 6h day the source marked as all premium
	allocs := overtime.ComputeWeeklyAllocation([]timesheet.Entry{entry("2025-06-02", "0", "6")})

	// THEN: Under 40h for the week, so it is all straight time
	require.Len(t, allocs, 1)
	assertHours(t, "6", allocs[0].Straight)
	assertHours(t, "0", allocs[0].Overtime)
}

func TestAllocate_WeeksResetOnMonday(t *testing.T) {
	// GIVEN: 12h every day Wed through the following Tue
	var entries []timesheet.Entry
	for _, d := range []string{"2025-06-04", "2025-06-05", "2025-06-06", "2025-06-07", "2025-06-08", "2025-06-09", "2025-06-10"} {
		entries = append(entries, entry(d, "12", "0"))
	}

	allocs := overtime.ComputeWeeklyAllocation(entries)
	require.Len(t, allocs, 7)

	// THEN: First week Wed 12, Thu 12, Fri 12, Sat 4/8, Sun 0/12
	assertHours(t, "4", allocs[3].Straight)
	assertHours(t, "8", allocs[3].Overtime)
	assertHours(t, "0", allocs[4].Straight)
	assertHours(t, "12", allocs[4].Overtime)

	// AND: Monday starts a fresh week
	assert.Equal(t, timesheet.Date("2025-06-09"), allocs[5].WeekStart)
	assertHours(t, "12", allocs[5].Straight)
	assertHours(t, "0", allocs[5].Overtime)
}

func TestAllocate_MultipleRowsPerDayAndMessyDates(t *testing.T) {
	// GIVEN: Rows for the same day in different formats
	allocs := overtime.ComputeWeeklyAllocation([]timesheet.Entry{
		entry("6/2/2025", "5", "0"),
		entry("2025-06-02", "3.5", "0.5"),
	})

	require.Len(t, allocs, 1)
	assert.Equal(t, timesheet.Date("2025-06-02"), allocs[0].Date)
	assertHours(t, "9", allocs[0].Total)
}

func TestAllocate_OpaqueDateIsItsOwnWeek(t *testing.T) {
	allocs := overtime.ComputeWeeklyAllocation([]timesheet.Entry{
		entry("2025-06-02", "38", "0"),
		entry("unknown", "10", "0"),
	})

	require.Len(t, allocs, 2)
	assert.Equal(t, timesheet.Date("unknown"), allocs[1].WeekStart)
	assertHours(t, "10", allocs[1].Straight)
	assertHours(t, "0", allocs[1].Overtime)
}

func TestAllocate_Empty(t *testing.T) {
	assert.Empty(t, overtime.ComputeWeeklyAllocation(nil))
}

func TestAllocator_CustomThreshold(t *testing.T) {
	a := &overtime.Allocator{WeeklyThreshold: h("37.5")}
	allocs := a.Allocate(timesheet.Build([]timesheet.Entry{entry("2025-06-02", "40", "0")}))

	require.Len(t, allocs, 1)
	assertHours(t, "37.5", allocs[0].Straight)
	assertHours(t, "2.5", allocs[0].Overtime)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func randomEntries(r *rand.Rand, n int) []timesheet.Entry {
	start := timesheet.Date("2025-03-01")
	entries := make([]timesheet.Entry, 0, n)
	for i := 0; i < n; i++ {
		d := start.AddDays(r.Intn(60))
		// quarter-hour increments from 0 to 14h
		q := decimal.NewFromInt(int64(r.Intn(57))).Div(decimal.NewFromInt(4))
		entries = append(entries, timesheet.Entry{Date: string(d), StraightHours: q})
	}
	return entries
}

func TestAllocate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	forty := decimal.NewFromInt(40)

	for iter := 0; iter < 50; iter++ {
		entries := randomEntries(r, 80)
		allocs := overtime.ComputeWeeklyAllocation(entries)

		// Conservation
		for _, a := range allocs {
			assert.True(t, a.Straight.Add(a.Overtime).Equal(a.Total), "conservation on %s", a.Date)
			assert.False(t, a.Overtime.IsNegative())
		}

		// Weekly cap
		for _, w := range overtime.WeeklyTotals(allocs) {
			assert.True(t, w.Straight.LessThanOrEqual(forty), "week %s straight %s", w.Key, w.Straight)
			if w.Total.GreaterThanOrEqual(forty) {
				assert.True(t, w.Straight.Equal(forty), "week %s should be capped", w.Key)
			} else {
				assert.True(t, w.Straight.Equal(w.Total), "week %s under threshold", w.Key)
			}
		}

		// Order independence
		shuffled := append([]timesheet.Entry(nil), entries...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		again := overtime.ComputeWeeklyAllocation(shuffled)
		require.Len(t, again, len(allocs))
		for i := range allocs {
			assert.Equal(t, allocs[i].Date, again[i].Date)
			assert.True(t, allocs[i].Straight.Equal(again[i].Straight))
			assert.True(t, allocs[i].Overtime.Equal(again[i].Overtime))
		}
	}
}

func TestRollups(t *testing.T) {
	allocs := overtime.ComputeWeeklyAllocation([]timesheet.Entry{
		entry("2025-05-30", "45", "0"), // Friday, week of 05-26
		entry("2025-06-02", "10", "0"),
		entry("2025-06-03", "35", "0"),
	})

	weeks := overtime.WeeklyTotals(allocs)
	require.Len(t, weeks, 2)
	assert.Equal(t, "2025-05-26", weeks[0].Key)
	assertHours(t, "5", weeks[0].Overtime)
	assert.Equal(t, "2025-06-02", weeks[1].Key)
	assertHours(t, "40", weeks[1].Straight)
	assertHours(t, "5", weeks[1].Overtime)

	months := overtime.MonthlyTotals(allocs)
	require.Len(t, months, 2)
	assert.Equal(t, "2025-05", months[0].Key)
	assert.Equal(t, 2, months[1].Days)

	total := overtime.Sum(allocs)
	assertHours(t, "90", total.Total)
	assertHours(t, "10", total.Overtime)
}
