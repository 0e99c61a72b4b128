/*
scenarios.go - Demo datasets for trying the analyses

PURPOSE:
	Provides pre-built timesheets that exercise specific allocator and
	detector behavior. Loading a scenario resets the store, seeds the job
	registry, and imports the scenario's rows as one batch.

AVAILABLE SCENARIOS:

	clean-week:      A normal 38 hour week on registered jobs
	overtime-heavy:  Two long weeks including a Saturday
	clock-problems:  Overlap, hours mismatch, duplicate, zero-hour row, long day
	admin-heavy:     Admin days, excessive prep, driving billed, fragmented codes
	unknown-jobs:    Structured job codes missing from the registry
	full-team:       All of the above together

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "clock-problems"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Write a rows function returning the scenario's entries
 3. Register it in scenarioRows

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Other endpoints
  - store/sqlite/sqlite.go: Reset, ImportEntries, SaveJob, SaveStatus
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dpanfilo/enforcer/timesheet"
)

// ScenarioStore is what loading a scenario needs beyond Store.
type ScenarioStore interface {
	Importer
	Reset(ctx context.Context) error
	SaveJob(ctx context.Context, j timesheet.JobDetail) error
	SaveStatus(ctx context.Context, id int, name string) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "clean-week",
		Name:        "Clean Week",
		Description: "One 38 hour week on registered jobs, no overtime",
		Category:    "allocation",
	},
	{
		ID:          "overtime-heavy",
		Name:        "Overtime Heavy",
		Description: "Two long weeks with Saturday work and weekly overtime",
		Category:    "allocation",
	},
	{
		ID:          "clock-problems",
		Name:        "Clock Problems",
		Description: "Overlapping rows, hours that disagree with the clock, duplicates and a 15 hour day",
		Category:    "irregularities",
	},
	{
		ID:          "admin-heavy",
		Name:        "Admin Heavy",
		Description: "Days spent on admin codes, long prep days, driving billed and fragmented permit codes",
		Category:    "irregularities",
	},
	{
		ID:          "unknown-jobs",
		Name:        "Unknown Jobs",
		Description: "Structured job codes that the job registry does not know",
		Category:    "irregularities",
	},
	{
		ID:          "full-team",
		Name:        "Full Team",
		Description: "Every scenario loaded together as a five person team",
		Category:    "team",
	},
}

var scenarioRows = map[string]func() []timesheet.Entry{
	"clean-week":     cleanWeekRows,
	"overtime-heavy": overtimeHeavyRows,
	"clock-problems": clockProblemRows,
	"admin-heavy":    adminHeavyRows,
	"unknown-jobs":   unknownJobRows,
	"full-team": func() []timesheet.Entry {
		var all []timesheet.Entry
		for _, f := range []func() []timesheet.Entry{
			cleanWeekRows, overtimeHeavyRows, clockProblemRows, adminHeavyRows, unknownJobRows,
		} {
			all = append(all, f()...)
		}
		return all
	},
}

// scenarioStatuses and scenarioJobs form the demo job registry.
var scenarioStatuses = map[int]string{1: "Active", 2: "On Hold", 3: "Closed"}

var scenarioJobs = []timesheet.JobDetail{
	{Code: "ENG-25-01001", Description: "Riverside Medical Office", City: "Austin", State: "TX", MacroStatus: "Open", StatusID: intPtr(1)},
	{Code: "ENG-25-01002", Description: "Harbor Point Retail", City: "Houston", State: "TX", MacroStatus: "Open", StatusID: intPtr(2)},
	{Code: "ENG-25-01003", Description: "Lakeview Elementary", City: "Dallas", State: "TX", MacroStatus: "Closed Out", Rush: true},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	store, ok := h.Analyzer.Store.(ScenarioStore)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support scenarios", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, known := scenarioRows[req.ScenarioID]; !known {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.currentScenario = ""

	res, err := SeedScenario(r.Context(), store, req.ScenarioID)
	if err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "rows", res.Rows)
	writeJSON(w, http.StatusOK, res)
}

// SeedScenario resets store and loads scenario id into it.
func SeedScenario(ctx context.Context, store ScenarioStore, id string) (*ImportResponse, error) {
	rows, ok := scenarioRows[id]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}

	if err := store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}
	for sid, name := range scenarioStatuses {
		if err := store.SaveStatus(ctx, sid, name); err != nil {
			return nil, fmt.Errorf("save status %d: %w", sid, err)
		}
	}
	for _, j := range scenarioJobs {
		if err := store.SaveJob(ctx, j); err != nil {
			return nil, fmt.Errorf("save job %s: %w", j.Code, err)
		}
	}

	entries := rows()
	batchID := uuid.NewString()
	n, err := store.ImportEntries(ctx, batchID, entries)
	if err != nil {
		return nil, err
	}
	return &ImportResponse{BatchID: batchID, Rows: n, Employees: timesheet.DistinctEmployees(entries)}, nil
}

// =============================================================================
// SCENARIO ROWS
// =============================================================================

// Week of Monday 2025-06-09.
func cleanWeekRows() []timesheet.Entry {
	const who = "Alex Rivera"
	return []timesheet.Entry{
		shift(who, "2025-06-09", "07:00", "11:00", "4", "ENG-25-01001"),
		shift(who, "2025-06-09", "11:30", "15:30", "4", "ENG-25-01002"),
		shift(who, "2025-06-10", "07:00", "15:30", "8.5", "ENG-25-01001"),
		shift(who, "2025-06-11", "07:00", "14:30", "7.5", "ENG-25-01002"),
		shift(who, "2025-06-12", "07:00", "15:00", "8", "ENG-25-01003"),
		shift(who, "2025-06-13", "07:00", "13:00", "6", "ENG-25-01001"),
	}
}

// 60 hours in the first week, 49 in the second.
func overtimeHeavyRows() []timesheet.Entry {
	const who = "Sam Patel"
	return []timesheet.Entry{
		shift(who, "2025-06-09", "06:00", "16:00", "10", "ENG-25-01001"),
		shift(who, "2025-06-10", "06:00", "17:00", "11", "ENG-25-01001"),
		shift(who, "2025-06-11", "06:00", "15:30", "9.5", "ENG-25-01002"),
		shift(who, "2025-06-12", "06:00", "16:30", "10.5", "ENG-25-01001"),
		shift(who, "2025-06-13", "06:00", "15:00", "9", "ENG-25-01002"),
		shift(who, "2025-06-14", "07:00", "17:00", "10", "ENG-25-01001"),
		shift(who, "2025-06-16", "06:00", "15:00", "9", "ENG-25-01001"),
		shift(who, "2025-06-17", "06:00", "16:30", "10.5", "ENG-25-01003"),
		shift(who, "2025-06-18", "06:00", "15:30", "9.5", "ENG-25-01001"),
		shift(who, "2025-06-19", "06:00", "17:00", "11", "ENG-25-01002"),
		shift(who, "2025-06-20", "06:00", "15:00", "9", "ENG-25-01001"),
	}
}

func clockProblemRows() []timesheet.Entry {
	const who = "Jordan Lee"
	return []timesheet.Entry{
		shift(who, "2025-06-09", "08:00", "12:00", "4", "ENG-25-01002"),
		shift(who, "2025-06-09", "11:30", "16:00", "4.5", "ENG-25-01003"),
		shift(who, "2025-06-10", "08:00", "17:00", "7", "ENG-25-01002"),
		shift(who, "2025-06-11", "08:00", "12:00", "4", "ENG-25-01001"),
		shift(who, "2025-06-11", "08:00", "12:00", "4", "ENG-25-01001"),
		shift(who, "2025-06-12", "13:00", "15:00", "0", "ENG-25-01001"),
		shift(who, "2025-06-13", "04:30", "20:00", "15.5", "ENG-25-01003"),
	}
}

func adminHeavyRows() []timesheet.Entry {
	const who = "Casey Morgan"
	return []timesheet.Entry{
		shift(who, "2025-06-09", "08:00", "14:00", "6", "PREP WORK"),
		shift(who, "2025-06-09", "14:00", "16:00", "2", "Driving"),
		shift(who, "2025-06-10", "08:00", "13:00", "5", "Permit Submittals"),
		shift(who, "2025-06-10", "13:00", "16:00", "3", "permit-submittals"),
		shift(who, "2025-06-11", "08:00", "12:00", "4", "job-prep"),
		shift(who, "2025-06-11", "12:00", "16:00", "4", "ENG-25-01001"),
		shift(who, "2025-06-12", "08:00", "16:00", "8", "TEAM MEETINGS"),
		shift(who, "2025-06-13", "08:00", "12:00", "4", "emails"),
		shift(who, "2025-06-13", "12:00", "14:00", "2", "meeting"),
	}
}

func unknownJobRows() []timesheet.Entry {
	const who = "Taylor Kim"
	return []timesheet.Entry{
		shift(who, "2025-06-09", "07:30", "15:30", "8", "ENG-25-09999"),
		shift(who, "2025-06-10", "07:30", "15:30", "8", "XYZ-24-00012"),
		shift(who, "2025-06-11", "07:30", "15:00", "7.5", "ENG-25-01001"),
		shift(who, "2025-06-12", "07:30", "15:45", "8.25", "ENG-25-09999"),
	}
}

func shift(employee, date, start, end, hours, job string) timesheet.Entry {
	return timesheet.Entry{
		Employee:      employee,
		Date:          date,
		Start:         start,
		End:           end,
		StraightCode:  "REG",
		StraightHours: decimal.RequireFromString(hours),
		JobCode:       job,
	}
}

func intPtr(i int) *int { return &i }
