package irregularity

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// CODE-LEVEL RULES
// =============================================================================

// checkFragmentation emits a single timesheet-wide flag describing how
// admin time is spread across overlapping code spellings.
func checkFragmentation(_ context.Context, in *Input) ([]Flag, error) {
	ts := in.Timesheet
	if ts.Len() == 0 {
		return nil, nil
	}
	cfg := in.Config
	total := ts.TotalHours()
	admin := in.adminHours()

	pct := int64(0)
	if total.IsPositive() {
		pct = admin.Mul(hundred).Div(total).Round(0).IntPart()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d%% of all hours (%sh / %sh) are on non-billable admin codes.",
		pct, admin.StringFixed(0), total.StringFixed(0))

	for _, fam := range cfg.CodeFamilies {
		set := NewCodeSet(fam.Codes...)
		famTotal := ts.HoursWhere(func(r timesheet.Row) bool { return set.Contains(r.JobCode) })
		fmt.Fprintf(&b, " %s codes split across %s = %sh.",
			fam.Name, describeFamily(fam.Codes), famTotal.StringFixed(0))
	}

	if groups := nearDuplicates(usedAdminCodes(in), cfg.NearDuplicateDistance); len(groups) > 0 {
		parts := make([]string, len(groups))
		for i, g := range groups {
			parts[i] = quoteAll(g, " ~ ")
		}
		fmt.Fprintf(&b, " Near-duplicate spellings in use: %s.", strings.Join(parts, "; "))
	}
	b.WriteString(" Fragmented naming obscures total exposure.")

	return []Flag{{
		Severity: SeverityMedium,
		Category: CategoryFragmentation,
		Date:     NoDate,
		Detail:   b.String(),
	}}, nil
}

func describeFamily(codes []string) string {
	if len(codes) <= 2 {
		return quoteAll(codes, " + ")
	}
	return fmt.Sprintf("%d variations", len(codes))
}

func quoteAll(codes []string, sep string) string {
	quoted := make([]string, len(codes))
	for i, c := range codes {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, sep)
}

// usedAdminCodes lists admin codes that appear in the timesheet, in first
// use order.
func usedAdminCodes(in *Input) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range in.Timesheet.Rows() {
		if in.isAdmin(r) && !seen[r.JobCode] {
			seen[r.JobCode] = true
			out = append(out, r.JobCode)
		}
	}
	return out
}

// checkUnrecognizedCodes looks up every structured-looking job code in the
// registry, in batches, and flags the ones that do not exist. Registry
// errors abort the analysis.
func checkUnrecognizedCodes(ctx context.Context, in *Input) ([]Flag, error) {
	cfg := in.Config
	if in.Registry == nil || cfg.JobCodePattern == nil {
		return nil, nil
	}

	hoursByCode := make(map[string]decimal.Decimal)
	var codes []string
	for _, r := range in.Timesheet.Rows() {
		if r.JobCode == "" || !cfg.JobCodePattern.MatchString(r.JobCode) {
			continue
		}
		h, seen := hoursByCode[r.JobCode]
		if !seen {
			codes = append(codes, r.JobCode)
			h = decimal.Zero
		}
		hoursByCode[r.JobCode] = h.Add(r.Hours())
	}
	if len(codes) == 0 {
		return nil, nil
	}

	found := make(map[string]bool, len(codes))
	for _, batch := range timesheet.Chunk(codes, cfg.LookupChunkSize) {
		jobs, err := in.Registry.LookupJobs(ctx, batch)
		if err != nil {
			return nil, &timesheet.LookupError{Codes: len(batch), Err: err}
		}
		for code := range jobs {
			found[code] = true
		}
	}

	var flags []Flag
	for _, code := range codes {
		if found[code] {
			continue
		}
		flags = append(flags, Flag{
			Severity: SeverityHigh,
			Category: CategoryUnrecognized,
			Date:     NoDate,
			Code:     code,
			Detail: fmt.Sprintf("%q looks like a structured job number but does not exist in the jobs database. %sh billed against it.",
				code, hoursFixed(hoursByCode[code])),
		})
	}
	return flags, nil
}
