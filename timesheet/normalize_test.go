package timesheet_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// DATE NORMALIZATION
// =============================================================================

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want timesheet.Date
	}{
		{"2025-06-02", "2025-06-02"},
		{"  2025-06-02 ", "2025-06-02"},
		{"6/2/2025", "2025-06-02"},
		{"06/02/2025", "2025-06-02"},
		{"12/31/2024", "2024-12-31"},
		{"6/2/25", "2025-06-02"},
		{"6/2/49", "2049-06-02"},
		{"6/2/50", "1950-06-02"},
		{"6/2/99", "1999-06-02"},
		{"2025-06-02T08:30:00Z", "2025-06-02"},
		{"2025-06-02 08:30:00", "2025-06-02"},
		{"Jun 2, 2025", "2025-06-02"},
		{"June 2, 2025", "2025-06-02"},
		{"2025/06/02", "2025-06-02"},
		{"", ""},
		{"   ", ""},
		{"garbage", "garbage"},
		{" not a date ", "not a date"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, timesheet.NormalizeDate(tt.raw))
		})
	}
}

func TestDate_OpaqueValuesDegrade(t *testing.T) {
	// GIVEN: A date nothing could parse
	d := timesheet.NormalizeDate("sometime in june")

	// THEN: It is carried as-is and has no calendar properties
	assert.Equal(t, timesheet.Date("sometime in june"), d)
	assert.False(t, d.IsCanonical())
	assert.False(t, d.IsWeekend())
	_, ok := timesheet.WeekOf(d)
	assert.False(t, ok)
	_, ok = timesheet.DaysBetween("2025-06-02", d)
	assert.False(t, ok)
	assert.Equal(t, d, d.AddDays(3))
}

func TestWeekOf_MondayAnchor(t *testing.T) {
	tests := []struct {
		date timesheet.Date
		want timesheet.Date
	}{
		{"2025-06-02", "2025-06-02"}, // Monday
		{"2025-06-04", "2025-06-02"}, // Wednesday
		{"2025-06-07", "2025-06-02"}, // Saturday
		{"2025-06-08", "2025-06-02"}, // Sunday belongs to the preceding Monday
		{"2025-06-09", "2025-06-09"},
		{"2025-01-01", "2024-12-30"}, // crosses a year boundary
	}

	for _, tt := range tests {
		t.Run(string(tt.date), func(t *testing.T) {
			w, ok := timesheet.WeekOf(tt.date)
			require.True(t, ok)
			assert.Equal(t, tt.want, w.Start)
			wd, _ := w.Start.Weekday()
			assert.Equal(t, time.Monday, wd)
			assert.True(t, w.Contains(tt.date))
		})
	}
}

func TestWeek_Days(t *testing.T) {
	w, ok := timesheet.WeekOf("2025-06-05")
	require.True(t, ok)

	days := w.Days()
	require.Len(t, days, 7)
	assert.Equal(t, timesheet.Date("2025-06-02"), days[0])
	assert.Equal(t, timesheet.Date("2025-06-08"), days[6])
	assert.Equal(t, w.End(), days[6])
	assert.False(t, w.Contains("2025-06-09"))
}

// =============================================================================
// CLOCK TIMES
// =============================================================================

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"08:00", 480, true},
		{"8:00", 480, true},
		{"08:30:15", 510, true},
		{"17:45", 1065, true},
		{"00:00", 0, true},
		{"09:00:00+00", 540, true},
		{"8:00 AM", 480, true},
		{"8:00 pm", 1200, true},
		{"8:00PM", 1200, true},
		{"12:15 AM", 15, true},
		{"12:15 PM", 735, true},
		{"11:59:59 PM", 1439, true},
		{"", 0, false},
		{"noon", 0, false},
		{"25:00", 0, false},
		{"13:00 PM", 0, false},
		{"9:75", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := timesheet.TimeToMinutes(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHourOfDay(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"07:59", 7, true},
		{"7:05:00", 7, true},
		{"12:30 AM", 0, true},
		{"12:30 PM", 12, true},
		{"11:00 PM", 23, true},
		{"", 0, false},
		{"late", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := timesheet.ParseHourOfDay(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// NUMBER COERCION
// =============================================================================

func TestToNumber(t *testing.T) {
	s := "6.25"
	var nilStr *string

	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil", nil, "0"},
		{"empty string", "", "0"},
		{"blank string", "   ", "0"},
		{"text", "7.5", "7.5"},
		{"text with suffix", "7.5h", "7.5"},
		{"leading dot", ".5", "0.5"},
		{"negative", "-2", "-2"},
		{"junk", "abc", "0"},
		{"infinity text", "Infinity", "0"},
		{"float", 8.25, "8.25"},
		{"nan", math.NaN(), "0"},
		{"inf", math.Inf(1), "0"},
		{"int", 8, "8"},
		{"int64", int64(9), "9"},
		{"json number", json.Number("4.75"), "4.75"},
		{"bytes", []byte("3"), "3"},
		{"string pointer", &s, "6.25"},
		{"nil string pointer", nilStr, "0"},
		{"decimal", decimal.RequireFromString("1.1"), "1.1"},
		{"unsupported", struct{}{}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timesheet.ToNumber(tt.raw)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "jane-doe", timesheet.Slug("Jane Doe"))
	assert.Equal(t, "obrien-pat", timesheet.Slug("  O'Brien, Pat "))
	assert.Equal(t, "", timesheet.Slug("!!"))
}

func TestChunk(t *testing.T) {
	codes := make([]string, 250)
	for i := range codes {
		codes[i] = "C"
	}
	chunks := timesheet.Chunk(codes, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[2], 50)
	assert.Empty(t, timesheet.Chunk(nil, 100))
}
