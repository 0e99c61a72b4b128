/*
registry.go - Rule catalogue registration and lookup

PURPOSE:
  Keeps the ordered list of rules the detector runs by default and lets
  configuration refer to rules by name (to disable them) or callers add
  their own rules without touching the engine.

ORDER:
  Rules run in registration order. Dedup keeps the first occurrence of a
  finding, and ties in the final sort keep emission order, so the order
  here is part of the output contract.

USAGE:
  irregularity.RegisterRule(irregularity.Rule{Name: "night_shift", Check: myCheck})
  rule, ok := irregularity.LookupRule("weekend_work")

SEE ALSO:
  - detector.go: Detector.rules() picks from this catalogue
  - factory/analysis.go: Validates disabled rule names
*/
package irregularity

import (
	"fmt"
	"sync"
)

// =============================================================================
// RULE REGISTRY
// =============================================================================

var (
	registryMu sync.RWMutex
	catalogue  = []Rule{
		{Name: "future_date", Check: checkFutureDates},
		{Name: "duplicate_entry", Check: checkDuplicates},
		{Name: "overlapping_entries", Check: checkOverlaps},
		{Name: "hours_mismatch", Check: checkMismatch},
		{Name: "long_day", Check: checkLongDays},
		{Name: "unusual_hours", Check: checkUnusualHours},
		{Name: "weekend_work", Check: checkWeekends},
		{Name: "work_streak", Check: checkStreaks},
		{Name: "identical_hours", Check: checkIdenticalHours},
		{Name: "zero_hours_with_time", Check: checkZeroHours},
		{Name: "high_admin_day", Check: checkHighAdminDays},
		{Name: "excessive_prep", Check: checkExcessivePrep},
		{Name: "driving_billed", Check: checkDriving},
		{Name: "admin_fragmentation", Check: checkFragmentation},
		{Name: "unrecognized_job_code", Check: checkUnrecognizedCodes},
	}
)

// RegisterRule appends a rule to the catalogue, replacing any rule with the
// same name in place.
func RegisterRule(r Rule) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for i := range catalogue {
		if catalogue[i].Name == r.Name {
			catalogue[i] = r
			return
		}
	}
	catalogue = append(catalogue, r)
}

// LookupRule finds a rule by name.
func LookupRule(name string) (Rule, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, r := range catalogue {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// MustLookupRule finds a rule or panics.
// Use in tests or when you're certain the rule exists.
func MustLookupRule(name string) Rule {
	r, ok := LookupRule(name)
	if !ok {
		panic(fmt.Sprintf("rule not registered: %s", name))
	}
	return r
}

// RuleNames lists the catalogue in run order.
func RuleNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, len(catalogue))
	for i, r := range catalogue {
		names[i] = r.Name
	}
	return names
}

// RulesExcept returns the catalogue minus the named rules.
func RulesExcept(disabled ...string) []Rule {
	skip := make(map[string]bool, len(disabled))
	for _, n := range disabled {
		skip[n] = true
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Rule, 0, len(catalogue))
	for _, r := range catalogue {
		if !skip[r.Name] {
			out = append(out, r)
		}
	}
	return out
}
