package irregularity

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// ENGINE
// =============================================================================

// Input is what every rule sees. It is shared and must not be modified.
type Input struct {
	Timesheet *timesheet.Timesheet
	Config    Config
	Registry  timesheet.JobRegistry
}

// isAdmin reports whether a row is coded to a non-billable admin code.
func (in *Input) isAdmin(r timesheet.Row) bool {
	return in.Config.AdminCodes.Contains(r.JobCode)
}

// adminHours sums admin-coded rows across the whole timesheet.
func (in *Input) adminHours() decimal.Decimal {
	return in.Timesheet.HoursWhere(in.isAdmin)
}

// RuleFunc inspects the input and returns findings. Only rules that call a
// collaborator return an error.
type RuleFunc func(ctx context.Context, in *Input) ([]Flag, error)

// Rule is a named RuleFunc.
type Rule struct {
	Name  string
	Check RuleFunc
}

// Detector runs a rule set under one Config.
type Detector struct {
	Config   Config
	Registry timesheet.JobRegistry

	// Rules overrides the catalogue. When nil, every registered rule not
	// named in Config.Disabled runs, in catalogue order.
	Rules []Rule
}

func NewDetector(cfg Config, registry timesheet.JobRegistry) *Detector {
	return &Detector{Config: cfg, Registry: registry}
}

// DetectIrregularities runs the standard rule set with default thresholds.
// adminCodes replaces the default admin code list when non-nil.
func DetectIrregularities(ctx context.Context, entries []timesheet.Entry, today timesheet.Date, adminCodes []string, registry timesheet.JobRegistry) (Report, error) {
	cfg := DefaultConfig()
	cfg.Today = today
	if adminCodes != nil {
		cfg.AdminCodes = NewCodeSet(adminCodes...)
	}
	return NewDetector(cfg, registry).Detect(ctx, entries)
}

// Detect builds the by-date view of entries and analyzes it.
func (d *Detector) Detect(ctx context.Context, entries []timesheet.Entry) (Report, error) {
	return d.Analyze(ctx, timesheet.Build(entries))
}

// Analyze runs every rule over ts. The result is deduplicated on
// (category, date, detail) keeping the first occurrence, then ordered by
// severity and date. A failing rule aborts the whole analysis.
func (d *Detector) Analyze(ctx context.Context, ts *timesheet.Timesheet) (Report, error) {
	in := &Input{Timesheet: ts, Config: d.Config, Registry: d.Registry}

	var raw []Flag
	for _, rule := range d.rules() {
		flags, err := rule.Check(ctx, in)
		if err != nil {
			return Report{}, err
		}
		raw = append(raw, flags...)
	}

	flags := dedupe(raw)
	summary := summarize(in, flags)
	sortFlags(flags)

	return Report{Flags: flags, Summary: summary}, nil
}

func (d *Detector) rules() []Rule {
	if d.Rules != nil {
		return d.Rules
	}
	return RulesExcept(d.Config.Disabled...)
}

// =============================================================================
// POST-PROCESSING
// =============================================================================

func dedupe(flags []Flag) []Flag {
	seen := make(map[flagKey]struct{}, len(flags))
	out := make([]Flag, 0, len(flags))
	for _, f := range flags {
		k := f.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

func sortFlags(flags []Flag) {
	sort.SliceStable(flags, func(i, j int) bool {
		ri, rj := flags[i].Severity.Rank(), flags[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return flags[i].Date < flags[j].Date
	})
}

var hundred = decimal.NewFromInt(100)

func summarize(in *Input, flags []Flag) Summary {
	s := Summary{
		LongestStreak:     in.Timesheet.LongestStreak(),
		UnrecognizedCodes: []string{},
	}
	for _, f := range flags {
		switch f.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
		switch f.Category {
		case CategoryWeekend:
			s.WeekendDays++
		case CategoryDuplicate:
			s.Duplicates++
		case CategoryMismatch:
			s.Mismatches++
		case CategoryOverlap:
			s.Overlaps++
		case CategoryUnrecognized:
			s.UnrecognizedCodes = append(s.UnrecognizedCodes, f.Code)
		}
	}

	admin := in.adminHours()
	s.AdminHours = admin.Round(2)
	if total := in.Timesheet.TotalHours(); total.IsPositive() {
		s.AdminPct = admin.Mul(hundred).Div(total).Round(0).IntPart()
	}
	return s
}
