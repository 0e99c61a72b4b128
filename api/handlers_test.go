/*
handlers_test.go - HTTP handler tests

Tests run the full router over an in-memory SQLite store seeded with the
demo scenarios, so they cover routing, analysis and DTO conversion.
*/
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/timesheet"
	"github.com/dpanfilo/enforcer/timesheet/store"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestListEmployees(t *testing.T) {
	// GIVEN: The full demo team
	_, router, _ := setupTestServer(t, "full-team")

	// WHEN: Listing employees
	rec := doRequest(t, router, http.MethodGet, "/api/employees", nil)

	// THEN: Names come back sorted with slugs
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]EmployeeDTO](t, rec)
	require.Len(t, got, 5)
	assert.Equal(t, EmployeeDTO{Name: "Alex Rivera", Slug: "alex-rivera"}, got[0])
	assert.Equal(t, EmployeeDTO{Name: "Taylor Kim", Slug: "taylor-kim"}, got[4])
}

func TestListEmployees_EmptyStore(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	rec := doRequest(t, router, http.MethodGet, "/api/employees", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetAllocation_WeeklyOvertime(t *testing.T) {
	// GIVEN: 60 hours in the week of June 9 and 49 in the week of June 16
	_, router, _ := setupTestServer(t, "overtime-heavy")

	// WHEN: Fetching the allocation
	rec := doRequest(t, router, http.MethodGet, "/api/employees/sam-patel/allocation", nil)

	// THEN: Everything past 40 in each week is overtime
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[AllocationResponse](t, rec)

	assert.Equal(t, "Sam Patel", got.Employee)
	assert.Equal(t, 109.0, got.Totals.Total)
	assert.Equal(t, 80.0, got.Totals.Straight)
	assert.Equal(t, 29.0, got.Totals.Overtime)

	require.Len(t, got.Weekly, 2)
	assert.Equal(t, "2025-06-09", got.Weekly[0].Key)
	assert.Equal(t, 20.0, got.Weekly[0].Overtime)
	assert.Equal(t, "2025-06-16", got.Weekly[1].Key)
	assert.Equal(t, 9.0, got.Weekly[1].Overtime)

	// AND: Thursday crosses the threshold part way through
	require.Len(t, got.Allocations, 11)
	thu := got.Allocations[3]
	assert.Equal(t, "2025-06-12", thu.Date)
	assert.Equal(t, 9.5, thu.Straight)
	assert.Equal(t, 1.0, thu.Overtime)
}

func TestGetAllocation_UnknownEmployee(t *testing.T) {
	_, router, _ := setupTestServer(t, "clean-week")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/nobody/allocation", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "nobody")
}

func TestGetIrregularities_ClockProblems(t *testing.T) {
	// GIVEN: Overlap, mismatch, duplicate, zero-hour and long-day rows
	_, router, _ := setupTestServer(t, "clock-problems")

	// WHEN: Running the detector
	rec := doRequest(t, router, http.MethodGet, "/api/employees/jordan-lee/irregularities", nil)

	// THEN: Each problem is reported
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ReportDTO](t, rec)

	categories := make(map[string]int)
	for _, f := range got.Flags {
		categories[f.Category]++
	}
	// The duplicated rows also overlap each other
	assert.Equal(t, 2, categories[string(irregularity.CategoryOverlap)])
	assert.Equal(t, 1, categories[string(irregularity.CategoryMismatch)])
	assert.Equal(t, 1, categories[string(irregularity.CategoryDuplicate)])
	assert.Equal(t, 1, categories[string(irregularity.CategoryZeroHours)])
	assert.Equal(t, 1, categories[string(irregularity.CategoryLongDay)])
	assert.GreaterOrEqual(t, categories[string(irregularity.CategoryUnusualHours)], 1)

	assert.Equal(t, 2, got.Summary.Overlaps)
	assert.Equal(t, 1, got.Summary.Mismatches)
	assert.Equal(t, 1, got.Summary.Duplicates)

	// AND: High severity flags come first
	assert.Equal(t, "high", got.Flags[0].Severity)
}

func TestGetIrregularities_UnrecognizedCodes(t *testing.T) {
	_, router, _ := setupTestServer(t, "unknown-jobs")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/taylor-kim/irregularities", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ReportDTO](t, rec)
	assert.ElementsMatch(t, []string{"ENG-25-09999", "XYZ-24-00012"}, got.Summary.UnrecognizedCodes)
}

func TestGetIrregularities_CleanWeekHasNoHighFlags(t *testing.T) {
	_, router, _ := setupTestServer(t, "clean-week")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/alex-rivera/irregularities", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ReportDTO](t, rec)
	assert.Zero(t, got.Summary.High)
	assert.Empty(t, got.Summary.UnrecognizedCodes)
}

func TestGetHours(t *testing.T) {
	// GIVEN: Sam Patel's two long weeks
	_, router, _ := setupTestServer(t, "overtime-heavy")

	// WHEN: Fetching the hours dashboard
	rec := doRequest(t, router, http.MethodGet, "/api/employees/sam-patel/hours", nil)

	// THEN: Metrics reflect the allocation
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[HoursDTO](t, rec)

	assert.Equal(t, 109.0, got.Metrics.TotalHours)
	assert.Equal(t, 29.0, got.Metrics.OvertimeHours)
	assert.Equal(t, 11, got.Metrics.TotalDays)
	assert.Equal(t, 11, got.Metrics.DaysOver8)
	assert.Equal(t, 1, got.Metrics.WeekendDays)

	// AND: Job statuses resolve through the registry, falling back to the
	// macro status when no status id is set
	require.Len(t, got.Statuses, 3)
	assert.Equal(t, StatusHoursDTO{Status: "Active", Jobs: 1, Hours: 69}, got.Statuses[0])
	assert.Equal(t, StatusHoursDTO{Status: "On Hold", Jobs: 1, Hours: 29.5}, got.Statuses[1])
	assert.Equal(t, StatusHoursDTO{Status: "Closed Out", Jobs: 1, Hours: 10.5}, got.Statuses[2])
}

// =============================================================================
// TEAM
// =============================================================================

func TestGetTeamIrregularities(t *testing.T) {
	_, router, _ := setupTestServer(t, "full-team")

	rec := doRequest(t, router, http.MethodGet, "/api/team/irregularities", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[TeamResponse](t, rec)
	require.Len(t, got.Employees, 5)
	assert.Equal(t, "Alex Rivera", got.Employees[0].Name)
	assert.Equal(t, "jordan-lee", got.Employees[2].Slug)

	sum := 0
	for _, e := range got.Employees {
		sum += e.Flags
	}
	assert.Equal(t, sum, got.Flags)
	assert.Positive(t, got.High)
}

type failingSource struct {
	*store.Memory
}

func (failingSource) FetchPage(context.Context, string, int, int) ([]timesheet.Entry, error) {
	return nil, errors.New("connection refused")
}

func TestGetTeamIrregularities_SourceDown(t *testing.T) {
	// GIVEN: A source that lists employees but cannot return rows
	mem := store.NewMemory()
	mem.Add(timesheet.Entry{Employee: "Jane Doe", Date: "2025-06-02"})
	analyzer := NewAnalyzer(failingSource{mem}, testSpec(), discardLogger())
	analyzer.Fetcher.MaxAttempts = 1
	router := NewRouter(NewHandler(analyzer, discardLogger()), nil)

	// WHEN: Running the team analysis
	rec := doRequest(t, router, http.MethodGet, "/api/team/irregularities", nil)

	// THEN: The failure surfaces as a bad gateway
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "connection refused")
}

// =============================================================================
// AD HOC ANALYSIS
// =============================================================================

func TestAnalyze_AdHocRows(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	// GIVEN: Hours as a JSON number and as numeric text, and a 10 hour week
	body := map[string]any{
		"employee": "Jane Doe",
		"entries": []map[string]any{
			{"date": "2025-06-02", "start": "08:00", "end": "17:00", "straight_hours": 9, "job": "Alpha"},
			{"date": "06/03/2025", "start": "8:00 AM", "end": "5:30 PM", "straight_hours": "9.5", "job": "Alpha"},
		},
		"analysis": map[string]any{"weekly_overtime_threshold": 10},
	}

	// WHEN: Posting them
	rec := doRequest(t, router, http.MethodPost, "/api/analyze", body)

	// THEN: The override threshold applies across both normalized dates
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[AnalyzeResponse](t, rec)

	assert.Equal(t, "Jane Doe", got.Allocation.Employee)
	require.Len(t, got.Allocation.Allocations, 2)
	assert.Equal(t, "2025-06-03", got.Allocation.Allocations[1].Date)
	assert.Equal(t, 10.0, got.Allocation.Totals.Straight)
	assert.Equal(t, 8.5, got.Allocation.Totals.Overtime)

	// AND: Clock spans match the reported hours
	for _, f := range got.Report.Flags {
		assert.NotEqual(t, string(irregularity.CategoryMismatch), f.Category)
	}
}

func TestAnalyze_EmptyRows(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	rec := doRequest(t, router, http.MethodPost, "/api/analyze", map[string]any{"entries": []any{}})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[AnalyzeResponse](t, rec)
	assert.Empty(t, got.Allocation.Allocations)
	assert.Empty(t, got.Report.Flags)
	assert.Equal(t, 0.0, got.Allocation.Totals.Total)
}

func TestAnalyze_InvalidInput(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	tests := []struct {
		name string
		body any
	}{
		{"bad ratio", map[string]any{"analysis": map[string]any{"admin_day_ratio": 2}}},
		{"unknown rule", map[string]any{"analysis": map[string]any{"disabled_rules": []string{"no-such-rule"}}}},
		{"bad today", map[string]any{"analysis": map[string]any{"today": "soon"}}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// IMPORT
// =============================================================================

func multipartCSV(t *testing.T, csv, employee string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if csv != "" {
		part, err := mw.CreateFormFile("file", "hours.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(csv))
		require.NoError(t, err)
	}
	if employee != "" {
		require.NoError(t, mw.WriteField("employee", employee))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportCSV(t *testing.T) {
	// GIVEN: An export where one row has no employee_name
	_, router, _ := setupTestServer(t, "")
	csv := strings.Join([]string{
		"employee_name,date,start,end,straight_code,straight_hours,premium_code,premium_hours,job,notes",
		"Jane Doe,2025-06-02,08:00,16:00,REG,8,,,ENG-25-01001,",
		",2025-06-03,08:00,12:00,REG,4,,,ENG-25-01001,",
	}, "\n")

	// WHEN: Uploading it with a default employee
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartCSV(t, csv, "John Roe"))

	// THEN: Both rows are stored under one batch
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[ImportResponse](t, rec)
	assert.Equal(t, 2, got.Rows)
	assert.NotEmpty(t, got.BatchID)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, got.Employees)

	// AND: The employees are now listed
	list := decode[[]EmployeeDTO](t, doRequest(t, router, http.MethodGet, "/api/employees", nil))
	assert.Len(t, list, 2)
}

func TestImportCSV_Rejected(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	tests := []struct {
		name string
		csv  string
	}{
		{"missing file", ""},
		{"header only", "employee_name,date,straight_hours\n"},
		{"no employee", "employee_name,date,straight_hours\n,2025-06-02,8\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, multipartCSV(t, tt.csv, ""))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

// importingMemory accepts imports without any SQL backend.
type importingMemory struct {
	*store.Memory
	batches []string
}

func (m *importingMemory) ImportEntries(_ context.Context, batchID string, entries []timesheet.Entry) (int, error) {
	m.batches = append(m.batches, batchID)
	m.Add(entries...)
	return len(entries), nil
}

func TestImportCSV_AnyImporter(t *testing.T) {
	// GIVEN: A store that is not SQLite but accepts imports
	mem := &importingMemory{Memory: store.NewMemory()}
	analyzer := NewAnalyzer(mem, testSpec(), discardLogger())
	router := NewRouter(NewHandler(analyzer, discardLogger()), nil)

	// WHEN: Uploading an export
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartCSV(t, "employee_name,date,straight_hours,job\nJane Doe,6/2/2025,8h,emails\n", ""))

	// THEN: The parsed rows reach that store
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, mem.batches, 1)
	assert.Equal(t, mem.batches[0], decode[ImportResponse](t, rec).BatchID)

	rows, err := mem.FetchPage(context.Background(), "Jane Doe", 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "6/2/2025", rows[0].Date)
	assert.Equal(t, "8", rows[0].StraightHours.String())
}

func TestImportCSV_UnsupportedStore(t *testing.T) {
	analyzer := NewAnalyzer(store.NewMemory(), testSpec(), discardLogger())
	router := NewRouter(NewHandler(analyzer, discardLogger()), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartCSV(t, "employee_name,date\nA,2025-06-02\n", ""))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// =============================================================================
// RUNS
// =============================================================================

func TestRuns_TriggerAndList(t *testing.T) {
	// GIVEN: The full team
	_, router, _ := setupTestServer(t, "full-team")

	// WHEN: Triggering a run
	rec := doRequest(t, router, http.MethodPost, "/api/runs", nil)

	// THEN: It completes over every employee
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	assert.Equal(t, RunManual, run.Kind)
	assert.Equal(t, RunCompleted, run.Status)
	assert.Equal(t, 5, run.Employees)
	assert.Positive(t, run.Flags)
	assert.NotEmpty(t, run.CompletedAt)

	// AND: It is listed
	runs := decode[[]RunDTO](t, doRequest(t, router, http.MethodGet, "/api/runs?limit=5", nil))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestRuns_TriggerFailedAnalysisIsRecorded(t *testing.T) {
	// GIVEN: A source whose pages always fail
	mem := store.NewMemory()
	mem.Add(timesheet.Entry{Employee: "Jane Doe", Date: "2025-06-02"})
	analyzer := NewAnalyzer(failingSource{mem}, testSpec(), discardLogger())
	analyzer.Fetcher.MaxAttempts = 1
	router := NewRouter(NewHandler(analyzer, discardLogger()), nil)

	// WHEN: Triggering a run
	rec := doRequest(t, router, http.MethodPost, "/api/runs", nil)

	// THEN: The failed run is returned as a record
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, RunFailed, decode[RunDTO](t, rec).Status)
}

func TestRuns_TriggerUnrecordedFailure(t *testing.T) {
	// GIVEN: A failing analysis whose final record cannot be saved
	analyzer := NewAnalyzer(newLostFinalRecord(), testSpec(), discardLogger())
	analyzer.Fetcher.MaxAttempts = 1
	router := NewRouter(NewHandler(analyzer, discardLogger()), nil)

	// WHEN: Triggering a run
	rec := doRequest(t, router, http.MethodPost, "/api/runs", nil)

	// THEN: The caller is told the run was not recorded
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	got := decode[ErrorResponse](t, rec)
	assert.Equal(t, "Failed to record run", got.Error)
	assert.Contains(t, got.Details, "disk full")
}

func TestListRuns_BadLimit(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	for _, limit := range []string{"0", "-3", "ten"} {
		rec := doRequest(t, router, http.MethodGet, "/api/runs?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

// =============================================================================
// HEALTH, METRICS, ERRORS
// =============================================================================

func TestHealth(t *testing.T) {
	_, router, _ := setupTestServer(t, "")

	rec := doRequest(t, router, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	_, router, _ := setupTestServer(t, "clean-week")
	doRequest(t, router, http.MethodGet, "/api/employees/alex-rivera/irregularities", nil)

	rec := doRequest(t, router, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `enforcer_analyses_total{kind="irregularities",status="success"}`)
	assert.Contains(t, rec.Body.String(), "enforcer_rows_fetched_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&timesheet.ConfigError{Field: "today", Message: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("parse: %w", timesheet.ErrInvalidImport), http.StatusBadRequest},
		{timesheet.ErrEmployeeNotFound, http.StatusNotFound},
		{&timesheet.FetchError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{&timesheet.LookupError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
