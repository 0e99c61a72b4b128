/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Hours are decimals
  internally and are rounded to two places on the way out.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employees:    EmployeeDTO
  Allocation:   AllocationDTO, TotalsDTO, AllocationResponse
  Detector:     FlagDTO, SummaryDTO, ReportDTO, TeamEmployeeDTO
  Hours:        HoursDTO and its parts
  Ad hoc:       AnalyzeRequest, EntryRequest, AnalyzeResponse
  Admin:        ImportResponse, RunDTO, ScenarioDTO

SEE ALSO:
  - handlers.go: Uses these types
  - factory/analysis.go: AnalysisSpec overrides
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/factory"
	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/overtime"
	"github.com/dpanfilo/enforcer/report"
	"github.com/dpanfilo/enforcer/timesheet"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeDTO struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// =============================================================================
// ALLOCATION
// =============================================================================

// AllocationDTO is the split of one date.
type AllocationDTO struct {
	Date      string  `json:"date"`
	WeekStart string  `json:"week_start"`
	Total     float64 `json:"total"`
	Straight  float64 `json:"straight"`
	Overtime  float64 `json:"overtime"`
}

// TotalsDTO is a rollup over a week, a month or everything.
type TotalsDTO struct {
	Key      string  `json:"key,omitempty"`
	Days     int     `json:"days"`
	Total    float64 `json:"total"`
	Straight float64 `json:"straight"`
	Overtime float64 `json:"overtime"`
}

type AllocationResponse struct {
	Employee    string          `json:"employee,omitempty"`
	Allocations []AllocationDTO `json:"allocations"`
	Weekly      []TotalsDTO     `json:"weekly"`
	Monthly     []TotalsDTO     `json:"monthly"`
	Totals      TotalsDTO       `json:"totals"`
}

// =============================================================================
// IRREGULARITIES
// =============================================================================

type FlagDTO struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Date     string `json:"date"`
	Detail   string `json:"detail"`
	Code     string `json:"code,omitempty"`
}

type SummaryDTO struct {
	High              int      `json:"high"`
	Medium            int      `json:"medium"`
	Low               int      `json:"low"`
	WeekendDays       int      `json:"weekend_days"`
	LongestStreak     int      `json:"longest_streak"`
	Duplicates        int      `json:"duplicates"`
	Mismatches        int      `json:"mismatches"`
	Overlaps          int      `json:"overlaps"`
	AdminHours        float64  `json:"admin_hours"`
	AdminPct          int64    `json:"admin_pct"`
	UnrecognizedCodes []string `json:"unrecognized_codes"`
}

// ReportDTO is the detector output for one employee.
type ReportDTO struct {
	Employee string     `json:"employee,omitempty"`
	Flags    []FlagDTO  `json:"flags"`
	Summary  SummaryDTO `json:"summary"`
}

// TeamEmployeeDTO is one row of the team overview.
type TeamEmployeeDTO struct {
	Name    string     `json:"name"`
	Slug    string     `json:"slug"`
	Flags   int        `json:"flags"`
	Summary SummaryDTO `json:"summary"`
}

type TeamResponse struct {
	Employees []TeamEmployeeDTO `json:"employees"`
	Flags     int               `json:"flags"`
	High      int               `json:"high"`
}

// =============================================================================
// HOURS
// =============================================================================

type MetricsDTO struct {
	TotalHours     float64 `json:"total_hours"`
	StraightHours  float64 `json:"straight_hours"`
	OvertimeHours  float64 `json:"overtime_hours"`
	TotalDays      int     `json:"total_days"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
	DaysOver8      int     `json:"days_over_8"`
	WeekendDays    int     `json:"weekend_days"`
}

type JobHoursDTO struct {
	Job   string  `json:"job"`
	Hours float64 `json:"hours"`
}

type HourCountDTO struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type BucketDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type RecentDayDTO struct {
	Date      string   `json:"date"`
	DayOfWeek string   `json:"day_of_week"`
	Hours     float64  `json:"hours"`
	Jobs      []string `json:"jobs"`
}

type StatusHoursDTO struct {
	Status string  `json:"status"`
	Jobs   int     `json:"jobs"`
	Hours  float64 `json:"hours"`
}

// HoursDTO is the hours dashboard for one employee.
type HoursDTO struct {
	Employee     string           `json:"employee"`
	Metrics      MetricsDTO       `json:"metrics"`
	Monthly      []TotalsDTO      `json:"monthly"`
	Weekly       []TotalsDTO      `json:"weekly"`
	TopJobs      []JobHoursDTO    `json:"top_jobs"`
	StartHours   []HourCountDTO   `json:"start_hours"`
	EndHours     []HourCountDTO   `json:"end_hours"`
	Distribution []BucketDTO      `json:"distribution"`
	RecentDays   []RecentDayDTO   `json:"recent_days"`
	AdminCodes   []JobHoursDTO    `json:"admin_codes"`
	Statuses     []StatusHoursDTO `json:"statuses"`
}

// =============================================================================
// AD HOC ANALYSIS
// =============================================================================

// EntryRequest is one row posted to /api/analyze. Hours accept numbers or
// numeric strings.
type EntryRequest struct {
	Date          string `json:"date"`
	Start         string `json:"start"`
	End           string `json:"end"`
	StraightCode  string `json:"straight_code"`
	StraightHours any    `json:"straight_hours"`
	PremiumCode   string `json:"premium_code"`
	PremiumHours  any    `json:"premium_hours"`
	Job           string `json:"job"`
	Notes         string `json:"notes"`
}

// AnalyzeRequest runs both analyses over caller-supplied rows.
type AnalyzeRequest struct {
	Employee string                `json:"employee"`
	Entries  []EntryRequest        `json:"entries"`
	Analysis *factory.AnalysisSpec `json:"analysis,omitempty"`
}

type AnalyzeResponse struct {
	Allocation AllocationResponse `json:"allocation"`
	Report     ReportDTO          `json:"report"`
}

// =============================================================================
// ADMIN
// =============================================================================

type ImportResponse struct {
	BatchID   string   `json:"batch_id"`
	Rows      int      `json:"rows"`
	Employees []string `json:"employees"`
}

// RunDTO is one scheduler or manual team run.
type RunDTO struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Employees   int    `json:"employees"`
	Flags       int    `json:"flags"`
	HighFlags   int    `json:"high_flags"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func hoursValue(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func toEmployeeDTO(e timesheet.Employee) EmployeeDTO {
	return EmployeeDTO{Name: e.Name, Slug: e.Slug}
}

func toTotalsDTO(t overtime.Totals) TotalsDTO {
	return TotalsDTO{
		Key:      t.Key,
		Days:     t.Days,
		Total:    hoursValue(t.Total),
		Straight: hoursValue(t.Straight),
		Overtime: hoursValue(t.Overtime),
	}
}

func toTotalsDTOs(ts []overtime.Totals) []TotalsDTO {
	out := make([]TotalsDTO, len(ts))
	for i, t := range ts {
		out[i] = toTotalsDTO(t)
	}
	return out
}

// NewAllocationResponse converts an allocation for the API and CLI.
func NewAllocationResponse(res *AllocationResult) AllocationResponse {
	allocs := make([]AllocationDTO, len(res.Allocations))
	for i, a := range res.Allocations {
		allocs[i] = AllocationDTO{
			Date:      a.Date.String(),
			WeekStart: a.WeekStart.String(),
			Total:     hoursValue(a.Total),
			Straight:  hoursValue(a.Straight),
			Overtime:  hoursValue(a.Overtime),
		}
	}
	return AllocationResponse{
		Employee:    res.Employee,
		Allocations: allocs,
		Weekly:      toTotalsDTOs(res.Weekly),
		Monthly:     toTotalsDTOs(res.Monthly),
		Totals:      toTotalsDTO(res.Totals),
	}
}

func toSummaryDTO(s irregularity.Summary) SummaryDTO {
	codes := s.UnrecognizedCodes
	if codes == nil {
		codes = []string{}
	}
	return SummaryDTO{
		High:              s.High,
		Medium:            s.Medium,
		Low:               s.Low,
		WeekendDays:       s.WeekendDays,
		LongestStreak:     s.LongestStreak,
		Duplicates:        s.Duplicates,
		Mismatches:        s.Mismatches,
		Overlaps:          s.Overlaps,
		AdminHours:        hoursValue(s.AdminHours),
		AdminPct:          s.AdminPct,
		UnrecognizedCodes: codes,
	}
}

// NewReportDTO converts a detector report for the API and CLI.
func NewReportDTO(employee string, rep irregularity.Report) ReportDTO {
	flags := make([]FlagDTO, len(rep.Flags))
	for i, f := range rep.Flags {
		flags[i] = FlagDTO{
			Severity: string(f.Severity),
			Category: string(f.Category),
			Date:     f.Date,
			Detail:   f.Detail,
			Code:     f.Code,
		}
	}
	return ReportDTO{Employee: employee, Flags: flags, Summary: toSummaryDTO(rep.Summary)}
}

func toJobHoursDTOs(jobs []report.JobHours) []JobHoursDTO {
	out := make([]JobHoursDTO, len(jobs))
	for i, j := range jobs {
		out[i] = JobHoursDTO{Job: j.Job, Hours: hoursValue(j.Hours)}
	}
	return out
}

func toHourCountDTOs(counts []report.HourCount) []HourCountDTO {
	out := make([]HourCountDTO, len(counts))
	for i, c := range counts {
		out[i] = HourCountDTO{Hour: c.Hour, Count: c.Count}
	}
	return out
}

func toHoursDTO(employee string, h *report.Hours) HoursDTO {
	m := h.Metrics
	dto := HoursDTO{
		Employee: employee,
		Metrics: MetricsDTO{
			TotalHours:     hoursValue(m.TotalHours),
			StraightHours:  hoursValue(m.StraightHours),
			OvertimeHours:  hoursValue(m.OvertimeHours),
			TotalDays:      m.TotalDays,
			AvgHoursPerDay: hoursValue(m.AvgHoursPerDay),
			DaysOver8:      m.DaysOver8,
			WeekendDays:    m.WeekendDays,
		},
		Monthly:      toTotalsDTOs(h.Monthly),
		Weekly:       toTotalsDTOs(h.Weekly),
		TopJobs:      toJobHoursDTOs(h.TopJobs),
		StartHours:   toHourCountDTOs(h.StartHours),
		EndHours:     toHourCountDTOs(h.EndHours),
		Distribution: make([]BucketDTO, len(h.Distribution)),
		RecentDays:   make([]RecentDayDTO, len(h.RecentDays)),
		AdminCodes:   toJobHoursDTOs(h.AdminCodes),
		Statuses:     make([]StatusHoursDTO, len(h.Statuses)),
	}
	for i, b := range h.Distribution {
		dto.Distribution[i] = BucketDTO{Label: b.Label, Count: b.Count}
	}
	for i, d := range h.RecentDays {
		jobs := d.Jobs
		if jobs == nil {
			jobs = []string{}
		}
		dto.RecentDays[i] = RecentDayDTO{
			Date:      d.Date.String(),
			DayOfWeek: d.DayOfWeek,
			Hours:     hoursValue(d.Hours),
			Jobs:      jobs,
		}
	}
	for i, s := range h.Statuses {
		dto.Statuses[i] = StatusHoursDTO{Status: s.Status, Jobs: s.Jobs, Hours: hoursValue(s.Hours)}
	}
	return dto
}

func toRunDTO(r timesheet.AnalysisRun) RunDTO {
	dto := RunDTO{
		ID:        r.ID,
		Kind:      r.Kind,
		Status:    r.Status,
		Employees: r.Employees,
		Flags:     r.Flags,
		HighFlags: r.HighFlags,
		Error:     r.Error,
		StartedAt: r.StartedAt.Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

// toEntries converts posted rows; every row belongs to req.Employee.
func (req AnalyzeRequest) toEntries() []timesheet.Entry {
	out := make([]timesheet.Entry, len(req.Entries))
	for i, e := range req.Entries {
		out[i] = timesheet.Entry{
			Employee:      req.Employee,
			Date:          e.Date,
			Start:         e.Start,
			End:           e.End,
			StraightCode:  e.StraightCode,
			StraightHours: timesheet.ToNumber(e.StraightHours),
			PremiumCode:   e.PremiumCode,
			PremiumHours:  timesheet.ToNumber(e.PremiumHours),
			JobCode:       e.Job,
			Notes:         e.Notes,
		}
	}
	return out
}
