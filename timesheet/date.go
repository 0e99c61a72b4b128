package timesheet

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Canonical calendar date (YYYY-MM-DD)
// =============================================================================

// Date is a normalized calendar date. Canonical values have the form
// YYYY-MM-DD; anything NormalizeDate could not recognize is carried through
// as an opaque string so it still groups and sorts.
type Date string

const dateLayout = "2006-01-02"

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})$`)
)

// fallbackLayouts are tried in order when the input is neither ISO nor
// M/D/Y. Only the calendar part of the parsed value is kept.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02",
	"2006/1/2",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.ANSIC,
}

// NormalizeDate converts a raw date string into a Date. It never fails:
// unrecognized input comes back trimmed and unchanged.
func NormalizeDate(raw string) Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if isoDateRe.MatchString(s) {
		return Date(s)
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			yy, _ := strconv.Atoi(year)
			if yy >= 50 {
				year = "19" + year
			} else {
				year = "20" + year
			}
		}
		return Date(year + "-" + pad2(m[1]) + "-" + pad2(m[2]))
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date(t.Format(dateLayout))
		}
	}
	return Date(s)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// Time parses a canonical date. ok is false for opaque values.
func (d Date) Time() (t time.Time, ok bool) {
	if !isoDateRe.MatchString(string(d)) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsCanonical reports whether d is a real YYYY-MM-DD calendar date.
func (d Date) IsCanonical() bool {
	_, ok := d.Time()
	return ok
}

func (d Date) Weekday() (time.Weekday, bool) {
	t, ok := d.Time()
	if !ok {
		return 0, false
	}
	return t.Weekday(), true
}

// IsWeekend is false for opaque dates.
func (d Date) IsWeekend() bool {
	wd, ok := d.Weekday()
	return ok && (wd == time.Saturday || wd == time.Sunday)
}

// AddDays returns d shifted by n days. Opaque dates are returned as-is.
func (d Date) AddDays(n int) Date {
	t, ok := d.Time()
	if !ok {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// MonthKey returns the YYYY-MM prefix of a canonical date.
func (d Date) MonthKey() string {
	if !d.IsCanonical() {
		return string(d)
	}
	return string(d)[:7]
}

func (d Date) String() string { return string(d) }

// DateOf formats the calendar part of t.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// DaysBetween returns to - from in whole days. ok is false when either
// side is opaque.
func DaysBetween(from, to Date) (int, bool) {
	a, ok := from.Time()
	if !ok {
		return 0, false
	}
	b, ok := to.Time()
	if !ok {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}

// =============================================================================
// WEEK - Monday to Sunday overtime period
// =============================================================================

// Week is the Monday-anchored seven day window overtime is computed over.
type Week struct {
	Start Date // always a Monday
}

// WeekOf returns the week containing d. Opaque dates have no week.
func WeekOf(d Date) (Week, bool) {
	wd, ok := d.Weekday()
	if !ok {
		return Week{}, false
	}
	back := (int(wd) + 6) % 7
	return Week{Start: d.AddDays(-back)}, true
}

// End returns the Sunday closing the week.
func (w Week) End() Date { return w.Start.AddDays(6) }

// Contains reports whether d falls in [Start, End].
func (w Week) Contains(d Date) bool {
	if !d.IsCanonical() {
		return false
	}
	return d >= w.Start && d <= w.End()
}

// Days lists the seven dates of the week.
func (w Week) Days() []Date {
	days := make([]Date, 0, 7)
	for i := 0; i < 7; i++ {
		days = append(days, w.Start.AddDays(i))
	}
	return days
}

func (w Week) String() string {
	return "[" + w.Start.String() + ", " + w.End().String() + "]"
}
