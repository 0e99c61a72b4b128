/*
Package factory provides JSON/YAML to Go analysis configuration.

PURPOSE:
  Converts analysis settings (detector thresholds, code lists, weekly
  overtime threshold) into irregularity.Config and overtime.Allocator
  values. The same AnalysisSpec is read from the service config file and
  accepted per request by the ad-hoc analyze endpoint, so thresholds can be
  tuned without code changes.

SCHEMA (every field optional; omitted fields keep their defaults):
  {
    "today": "2025-06-30",
    "weekly_overtime_threshold": 40,
    "admin_codes": ["emails", "TEAM MEETINGS"],
    "prep_codes": ["PREP WORK", "job-prep"],
    "driving_code": "Driving",
    "code_families": [{"name": "Permit-type", "codes": ["Permit Submittals", "permit-prep"]}],
    "job_code_pattern": "^[A-Z]{2,4}-\\d{2}-\\d{3,5}$",
    "mismatch_tolerance_hours": 0.26,
    "mismatch_high_hours": 1,
    "long_day_hours": 14,
    "early_start": "05:00",
    "late_end": "23:00",
    "streak_limit_days": 10,
    "identical_run_days": 5,
    "identical_tolerance_hours": 0.01,
    "admin_day_min_hours": 4,
    "admin_day_ratio": 0.8,
    "prep_day_hours": 5,
    "lookup_chunk_size": 100,
    "near_duplicate_distance": 14,
    "disabled_rules": ["driving_billed"]
  }

USAGE:
  f := factory.NewAnalysisFactory()
  a, err := f.ParseAnalysis(jsonString)
  detector := irregularity.NewDetector(a.Detector, registry)
  allocs := a.Allocator.Allocate(ts)

SEE ALSO:
  - irregularity/types.go: Config and its defaults
  - config/config.go: Embeds AnalysisSpec under "analysis"
*/
package factory

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/overtime"
	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// AnalysisSpec is the serialized form of the analysis settings.
type AnalysisSpec struct {
	Today           string   `json:"today,omitempty" yaml:"today,omitempty"`
	WeeklyThreshold *float64 `json:"weekly_overtime_threshold,omitempty" yaml:"weekly_overtime_threshold,omitempty"`

	AdminCodes     []string         `json:"admin_codes,omitempty" yaml:"admin_codes,omitempty"`
	PrepCodes      []string         `json:"prep_codes,omitempty" yaml:"prep_codes,omitempty"`
	DrivingCode    *string          `json:"driving_code,omitempty" yaml:"driving_code,omitempty"`
	CodeFamilies   []CodeFamilySpec `json:"code_families,omitempty" yaml:"code_families,omitempty"`
	JobCodePattern string           `json:"job_code_pattern,omitempty" yaml:"job_code_pattern,omitempty"`

	MismatchTolerance     *float64 `json:"mismatch_tolerance_hours,omitempty" yaml:"mismatch_tolerance_hours,omitempty"`
	MismatchHighDiff      *float64 `json:"mismatch_high_hours,omitempty" yaml:"mismatch_high_hours,omitempty"`
	LongDayHours          *float64 `json:"long_day_hours,omitempty" yaml:"long_day_hours,omitempty"`
	EarlyStart            string   `json:"early_start,omitempty" yaml:"early_start,omitempty"`
	LateEnd               string   `json:"late_end,omitempty" yaml:"late_end,omitempty"`
	StreakLimit           *int     `json:"streak_limit_days,omitempty" yaml:"streak_limit_days,omitempty"`
	IdenticalRunLength    *int     `json:"identical_run_days,omitempty" yaml:"identical_run_days,omitempty"`
	IdenticalTolerance    *float64 `json:"identical_tolerance_hours,omitempty" yaml:"identical_tolerance_hours,omitempty"`
	AdminDayMinHours      *float64 `json:"admin_day_min_hours,omitempty" yaml:"admin_day_min_hours,omitempty"`
	AdminDayRatio         *float64 `json:"admin_day_ratio,omitempty" yaml:"admin_day_ratio,omitempty"`
	PrepDayHours          *float64 `json:"prep_day_hours,omitempty" yaml:"prep_day_hours,omitempty"`
	LookupChunkSize       *int     `json:"lookup_chunk_size,omitempty" yaml:"lookup_chunk_size,omitempty"`
	NearDuplicateDistance *int     `json:"near_duplicate_distance,omitempty" yaml:"near_duplicate_distance,omitempty"`

	DisabledRules []string `json:"disabled_rules,omitempty" yaml:"disabled_rules,omitempty"`
}

// CodeFamilySpec names a group of equivalent codes.
type CodeFamilySpec struct {
	Name  string   `json:"name" yaml:"name"`
	Codes []string `json:"codes" yaml:"codes"`
}

// Analysis is the built configuration.
type Analysis struct {
	Detector  irregularity.Config
	Allocator *overtime.Allocator
}

// Overlay returns s with every field set in o replacing its counterpart.
func (s AnalysisSpec) Overlay(o AnalysisSpec) AnalysisSpec {
	out := s
	if o.Today != "" {
		out.Today = o.Today
	}
	if o.WeeklyThreshold != nil {
		out.WeeklyThreshold = o.WeeklyThreshold
	}
	if o.AdminCodes != nil {
		out.AdminCodes = o.AdminCodes
	}
	if o.PrepCodes != nil {
		out.PrepCodes = o.PrepCodes
	}
	if o.DrivingCode != nil {
		out.DrivingCode = o.DrivingCode
	}
	if o.CodeFamilies != nil {
		out.CodeFamilies = o.CodeFamilies
	}
	if o.JobCodePattern != "" {
		out.JobCodePattern = o.JobCodePattern
	}
	if o.MismatchTolerance != nil {
		out.MismatchTolerance = o.MismatchTolerance
	}
	if o.MismatchHighDiff != nil {
		out.MismatchHighDiff = o.MismatchHighDiff
	}
	if o.LongDayHours != nil {
		out.LongDayHours = o.LongDayHours
	}
	if o.EarlyStart != "" {
		out.EarlyStart = o.EarlyStart
	}
	if o.LateEnd != "" {
		out.LateEnd = o.LateEnd
	}
	if o.StreakLimit != nil {
		out.StreakLimit = o.StreakLimit
	}
	if o.IdenticalRunLength != nil {
		out.IdenticalRunLength = o.IdenticalRunLength
	}
	if o.IdenticalTolerance != nil {
		out.IdenticalTolerance = o.IdenticalTolerance
	}
	if o.AdminDayMinHours != nil {
		out.AdminDayMinHours = o.AdminDayMinHours
	}
	if o.AdminDayRatio != nil {
		out.AdminDayRatio = o.AdminDayRatio
	}
	if o.PrepDayHours != nil {
		out.PrepDayHours = o.PrepDayHours
	}
	if o.LookupChunkSize != nil {
		out.LookupChunkSize = o.LookupChunkSize
	}
	if o.NearDuplicateDistance != nil {
		out.NearDuplicateDistance = o.NearDuplicateDistance
	}
	if o.DisabledRules != nil {
		out.DisabledRules = o.DisabledRules
	}
	return out
}

// =============================================================================
// ANALYSIS FACTORY
// =============================================================================

// AnalysisFactory converts specs into analysis configuration.
type AnalysisFactory struct{}

// NewAnalysisFactory creates a new analysis factory.
func NewAnalysisFactory() *AnalysisFactory {
	return &AnalysisFactory{}
}

// ParseAnalysis parses a JSON string into an Analysis.
func (f *AnalysisFactory) ParseAnalysis(jsonStr string) (Analysis, error) {
	var spec AnalysisSpec
	if err := json.Unmarshal([]byte(jsonStr), &spec); err != nil {
		return Analysis{}, fmt.Errorf("failed to parse analysis JSON: %w",
			&timesheet.ConfigError{Field: "analysis", Message: err.Error()})
	}
	return f.FromSpec(spec)
}

// FromSpec validates spec and applies it over the defaults.
func (f *AnalysisFactory) FromSpec(spec AnalysisSpec) (Analysis, error) {
	cfg := irregularity.DefaultConfig()
	alloc := overtime.NewAllocator()

	if spec.Today != "" {
		today := timesheet.NormalizeDate(spec.Today)
		if !today.IsCanonical() {
			return Analysis{}, configErr("today", "%q is not a date", spec.Today)
		}
		cfg.Today = today
	}

	if spec.WeeklyThreshold != nil {
		if *spec.WeeklyThreshold <= 0 {
			return Analysis{}, configErr("weekly_overtime_threshold", "must be positive")
		}
		alloc.WeeklyThreshold = decimal.NewFromFloat(*spec.WeeklyThreshold)
	}

	if spec.AdminCodes != nil {
		cfg.AdminCodes = irregularity.NewCodeSet(spec.AdminCodes...)
	}
	if spec.PrepCodes != nil {
		cfg.PrepCodes = irregularity.NewCodeSet(spec.PrepCodes...)
	}
	if spec.DrivingCode != nil {
		cfg.DrivingCode = *spec.DrivingCode
	}
	if spec.CodeFamilies != nil {
		cfg.CodeFamilies = nil
		for _, fam := range spec.CodeFamilies {
			if fam.Name == "" || len(fam.Codes) == 0 {
				return Analysis{}, configErr("code_families", "each family needs a name and codes")
			}
			cfg.CodeFamilies = append(cfg.CodeFamilies, irregularity.CodeFamily{Name: fam.Name, Codes: fam.Codes})
		}
	}
	if spec.JobCodePattern != "" {
		re, err := regexp.Compile(spec.JobCodePattern)
		if err != nil {
			return Analysis{}, configErr("job_code_pattern", "%v", err)
		}
		cfg.JobCodePattern = re
	}

	var err error
	if cfg.MismatchTolerance, err = hoursField("mismatch_tolerance_hours", spec.MismatchTolerance, cfg.MismatchTolerance); err != nil {
		return Analysis{}, err
	}
	if cfg.MismatchHighDiff, err = hoursField("mismatch_high_hours", spec.MismatchHighDiff, cfg.MismatchHighDiff); err != nil {
		return Analysis{}, err
	}
	if cfg.LongDayHours, err = hoursField("long_day_hours", spec.LongDayHours, cfg.LongDayHours); err != nil {
		return Analysis{}, err
	}
	if cfg.IdenticalTolerance, err = hoursField("identical_tolerance_hours", spec.IdenticalTolerance, cfg.IdenticalTolerance); err != nil {
		return Analysis{}, err
	}
	if cfg.AdminDayMinHours, err = hoursField("admin_day_min_hours", spec.AdminDayMinHours, cfg.AdminDayMinHours); err != nil {
		return Analysis{}, err
	}
	if cfg.PrepDayHours, err = hoursField("prep_day_hours", spec.PrepDayHours, cfg.PrepDayHours); err != nil {
		return Analysis{}, err
	}
	if spec.AdminDayRatio != nil {
		r := *spec.AdminDayRatio
		if r <= 0 || r > 1 {
			return Analysis{}, configErr("admin_day_ratio", "must be in (0, 1]")
		}
		cfg.AdminDayRatio = decimal.NewFromFloat(r)
	}

	if spec.EarlyStart != "" {
		m, ok := timesheet.TimeToMinutes(spec.EarlyStart)
		if !ok {
			return Analysis{}, configErr("early_start", "%q is not a clock time", spec.EarlyStart)
		}
		cfg.EarlyStartMinute = m
	}
	if spec.LateEnd != "" {
		m, ok := timesheet.TimeToMinutes(spec.LateEnd)
		if !ok {
			return Analysis{}, configErr("late_end", "%q is not a clock time", spec.LateEnd)
		}
		cfg.LateEndMinute = m
	}

	if cfg.StreakLimit, err = intField("streak_limit_days", spec.StreakLimit, cfg.StreakLimit, 1); err != nil {
		return Analysis{}, err
	}
	if cfg.IdenticalRunLength, err = intField("identical_run_days", spec.IdenticalRunLength, cfg.IdenticalRunLength, 2); err != nil {
		return Analysis{}, err
	}
	if cfg.LookupChunkSize, err = intField("lookup_chunk_size", spec.LookupChunkSize, cfg.LookupChunkSize, 1); err != nil {
		return Analysis{}, err
	}
	if cfg.NearDuplicateDistance, err = intField("near_duplicate_distance", spec.NearDuplicateDistance, cfg.NearDuplicateDistance, 0); err != nil {
		return Analysis{}, err
	}

	for _, name := range spec.DisabledRules {
		if _, ok := irregularity.LookupRule(name); !ok {
			return Analysis{}, configErr("disabled_rules", "unknown rule %q", name)
		}
	}
	cfg.Disabled = spec.DisabledRules

	return Analysis{Detector: cfg, Allocator: alloc}, nil
}

// ToSpec converts a built Analysis back to its serialized form.
func (f *AnalysisFactory) ToSpec(a Analysis) AnalysisSpec {
	cfg := a.Detector
	spec := AnalysisSpec{
		Today:                 cfg.Today.String(),
		AdminCodes:            cfg.AdminCodes.Sorted(),
		PrepCodes:             cfg.PrepCodes.Sorted(),
		DrivingCode:           &cfg.DrivingCode,
		EarlyStart:            timesheet.FormatMinutes(cfg.EarlyStartMinute),
		LateEnd:               timesheet.FormatMinutes(cfg.LateEndMinute),
		StreakLimit:           &cfg.StreakLimit,
		IdenticalRunLength:    &cfg.IdenticalRunLength,
		LookupChunkSize:       &cfg.LookupChunkSize,
		NearDuplicateDistance: &cfg.NearDuplicateDistance,
		DisabledRules:         cfg.Disabled,
	}
	if cfg.JobCodePattern != nil {
		spec.JobCodePattern = cfg.JobCodePattern.String()
	}
	for _, fam := range cfg.CodeFamilies {
		spec.CodeFamilies = append(spec.CodeFamilies, CodeFamilySpec{Name: fam.Name, Codes: fam.Codes})
	}
	spec.MismatchTolerance = floatPtr(cfg.MismatchTolerance)
	spec.MismatchHighDiff = floatPtr(cfg.MismatchHighDiff)
	spec.LongDayHours = floatPtr(cfg.LongDayHours)
	spec.IdenticalTolerance = floatPtr(cfg.IdenticalTolerance)
	spec.AdminDayMinHours = floatPtr(cfg.AdminDayMinHours)
	spec.AdminDayRatio = floatPtr(cfg.AdminDayRatio)
	spec.PrepDayHours = floatPtr(cfg.PrepDayHours)
	if a.Allocator != nil {
		spec.WeeklyThreshold = floatPtr(a.Allocator.WeeklyThreshold)
	}
	return spec
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func configErr(field, format string, args ...any) error {
	return &timesheet.ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func hoursField(name string, v *float64, def decimal.Decimal) (decimal.Decimal, error) {
	if v == nil {
		return def, nil
	}
	if *v < 0 {
		return def, configErr(name, "must not be negative")
	}
	return decimal.NewFromFloat(*v), nil
}

func intField(name string, v *int, def, minimum int) (int, error) {
	if v == nil {
		return def, nil
	}
	if *v < minimum {
		return def, configErr(name, "must be at least %d", minimum)
	}
	return *v, nil
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
