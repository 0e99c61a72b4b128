/*
Package irregularity scans a timesheet for patterns that suggest reporting
errors or time theft.

PURPOSE:
  Each rule is an independent function over the same by-date view of an
  employee's rows. The engine runs every rule, drops repeated findings,
  orders them by severity and date, and summarizes the result. Rules never
  fail on bad data: an unparseable clock or date simply does not trigger.
  The only failure is a job registry lookup error.

RULES:
  Row level:   future date, duplicate, overlap, hours mismatch,
               zero hours with time, unusual hours, driving billed
  Day level:   long day, weekend work, high admin day, excessive prep
  Sequence:    long work streak, identical daily hours
  Code level:  admin code fragmentation, unrecognized job code

SEE ALSO:
  - detector.go: Engine, dedup, sort, summary
  - rules_*.go: The rule catalogue
  - factory/analysis.go: Builds Config from JSON/YAML
*/
package irregularity

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// FLAGS
// =============================================================================

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities for sorting: high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

type Category string

const (
	CategoryFutureDate    Category = "Future Date"
	CategoryDuplicate     Category = "Duplicate Entry"
	CategoryOverlap       Category = "Overlapping Entries"
	CategoryMismatch      Category = "Hours Mismatch"
	CategoryLongDay       Category = "Extremely Long Day"
	CategoryUnusualHours  Category = "Unusual Hours"
	CategoryWeekend       Category = "Weekend Work"
	CategoryStreak        Category = "Long Work Streak"
	CategoryIdentical     Category = "Identical Daily Hours"
	CategoryZeroHours     Category = "Zero Hours With Time"
	CategoryHighAdmin     Category = "High Admin Day"
	CategoryExcessivePrep Category = "Excessive Prep Work"
	CategoryDriving       Category = "Driving Billed"
	CategoryFragmentation Category = "Admin Code Fragmentation"
	CategoryUnrecognized  Category = "Unrecognized Job Code"
)

// NoDate marks flags that are about the whole timesheet rather than a day.
const NoDate = "—"

// Flag is one finding.
type Flag struct {
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Date     string   `json:"date"`
	Detail   string   `json:"detail"`
	Code     string   `json:"code,omitempty"`
}

type flagKey struct {
	category Category
	date     string
	detail   string
}

func (f Flag) key() flagKey { return flagKey{f.Category, f.Date, f.Detail} }

// Summary condenses a report.
type Summary struct {
	High              int             `json:"high"`
	Medium            int             `json:"medium"`
	Low               int             `json:"low"`
	WeekendDays       int             `json:"weekend_days"`
	LongestStreak     int             `json:"longest_streak"`
	Duplicates        int             `json:"duplicates"`
	Mismatches        int             `json:"mismatches"`
	Overlaps          int             `json:"overlaps"`
	AdminHours        decimal.Decimal `json:"admin_hours"`
	AdminPct          int64           `json:"admin_pct"`
	UnrecognizedCodes []string        `json:"unrecognized_codes"`
}

// Report is the detector output for one employee.
type Report struct {
	Flags   []Flag  `json:"flags"`
	Summary Summary `json:"summary"`
}

// =============================================================================
// CONFIG
// =============================================================================

// CodeFamily is a set of job codes that mean the same thing under
// different spellings.
type CodeFamily struct {
	Name  string
	Codes []string
}

// Config carries every threshold the rules use.
type Config struct {
	// Today is the reference date for the future-date rule.
	Today timesheet.Date

	AdminCodes   CodeSet
	PrepCodes    CodeSet
	DrivingCode  string
	CodeFamilies []CodeFamily

	// JobCodePattern decides which codes are checked against the registry.
	JobCodePattern *regexp.Regexp

	MismatchTolerance  decimal.Decimal
	MismatchHighDiff   decimal.Decimal
	LongDayHours       decimal.Decimal
	EarlyStartMinute   int
	LateEndMinute      int
	StreakLimit        int
	IdenticalRunLength int
	IdenticalTolerance decimal.Decimal
	AdminDayMinHours   decimal.Decimal
	AdminDayRatio      decimal.Decimal
	PrepDayHours       decimal.Decimal
	LookupChunkSize    int

	// NearDuplicateDistance is the simhash hamming distance under which two
	// admin codes are reported as spellings of the same thing. 0 disables.
	NearDuplicateDistance int

	// Disabled names rules to skip.
	Disabled []string
}

// DefaultAdminCodes are the non-billable codes.
var DefaultAdminCodes = []string{
	"PREP WORK", "job-prep", "Permit Submittals", "PERMIT APPROVAL",
	"permit-submittals", "permit-prep", "emails", "TEAM MEETINGS",
	"meeting", "team-questions", "DRAWING REVIEW", "REVIEWER QUESTIONS",
	"UPDATING STANDARDS", "ESPO", "ESPO IT", "it-help", "Driving",
	"Potential Client/Project Prep", "TimeCard-Correction",
}

// DefaultJobCodePattern matches structured job numbers such as ABC-25-01234.
var DefaultJobCodePattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{2}-\d{3,5}$`)

// DefaultConfig returns the standard thresholds with Today set to today.
func DefaultConfig() Config {
	return Config{
		Today:       timesheet.DateOf(time.Now()),
		AdminCodes:  NewCodeSet(DefaultAdminCodes...),
		PrepCodes:   NewCodeSet("PREP WORK", "job-prep"),
		DrivingCode: "Driving",
		CodeFamilies: []CodeFamily{
			{Name: "Prep-type", Codes: []string{"PREP WORK", "job-prep"}},
			{Name: "Permit-type", Codes: []string{"Permit Submittals", "PERMIT APPROVAL", "permit-submittals", "permit-prep"}},
		},
		JobCodePattern:        DefaultJobCodePattern,
		MismatchTolerance:     decimal.RequireFromString("0.26"),
		MismatchHighDiff:      decimal.NewFromInt(1),
		LongDayHours:          decimal.NewFromInt(14),
		EarlyStartMinute:      5 * 60,
		LateEndMinute:         23 * 60,
		StreakLimit:           10,
		IdenticalRunLength:    5,
		IdenticalTolerance:    decimal.RequireFromString("0.01"),
		AdminDayMinHours:      decimal.NewFromInt(4),
		AdminDayRatio:         decimal.RequireFromString("0.8"),
		PrepDayHours:          decimal.NewFromInt(5),
		LookupChunkSize:       100,
		NearDuplicateDistance: 14,
	}
}
