/*
handlers.go - HTTP API handlers

PURPOSE:
  Exposes allocation, irregularity detection and the hours dashboard over a
  JSON API. Handlers parse the request, call the Analyzer, and convert the
  result to DTOs.

ENDPOINTS:
  Employees:
    GET    /api/employees                          Names and slugs
    GET    /api/employees/{slug}/allocation        Straight/overtime split
    GET    /api/employees/{slug}/irregularities    Detector report
    GET    /api/employees/{slug}/hours             Hours dashboard

  Team:
    GET    /api/team/irregularities                Every employee's summary

  Ad hoc:
    POST   /api/analyze                            Rows in the body

  Admin:
    POST   /api/import                             Multipart CSV upload
    GET    /api/runs                               Team run history
    POST   /api/runs                               Run the team analysis now

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with status:
  - 400: Invalid configuration or import
  - 404: Unknown employee slug
  - 502: Row source or job registry failure
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dpanfilo/enforcer/irregularity"
	"github.com/dpanfilo/enforcer/timesheet"
)

// maxUploadBytes caps multipart CSV uploads.
const maxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Importer stores parsed timesheet rows under a batch id.
type Importer interface {
	ImportEntries(ctx context.Context, batchID string, entries []timesheet.Entry) (int, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Analyzer  *Analyzer
	Scheduler *AnalysisScheduler
	Logger    *slog.Logger

	mu sync.Mutex
	// currentScenario is the last demo dataset loaded.
	currentScenario string
}

// NewHandler creates a handler over analyzer with an unstarted scheduler
// for manual runs.
func NewHandler(analyzer *Analyzer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Analyzer:  analyzer,
		Scheduler: NewAnalysisScheduler(analyzer, logger),
		Logger:    logger,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns every employee with its slug.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Analyzer.Employees(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// resolve maps the {slug} URL parameter to an employee name, writing the
// error response itself when that fails.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	slug := chi.URLParam(r, "slug")
	name, err := h.Analyzer.Resolve(r.Context(), slug)
	if err != nil {
		h.fail(w, r, fmt.Sprintf("Employee %q not found", slug), err)
		return "", false
	}
	return name, true
}

// GetAllocation returns the weekly overtime allocation of one employee.
func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	name, ok := h.resolve(w, r)
	if !ok {
		return
	}

	res, err := h.Analyzer.Allocation(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to allocate hours", err)
		return
	}
	writeJSON(w, http.StatusOK, NewAllocationResponse(res))
}

// GetIrregularities returns the detector report of one employee.
func (h *Handler) GetIrregularities(w http.ResponseWriter, r *http.Request) {
	name, ok := h.resolve(w, r)
	if !ok {
		return
	}

	rep, err := h.Analyzer.Irregularities(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to analyze timesheet", err)
		return
	}
	writeJSON(w, http.StatusOK, NewReportDTO(name, rep))
}

// GetHours returns the hours dashboard of one employee.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	name, ok := h.resolve(w, r)
	if !ok {
		return
	}

	hours, err := h.Analyzer.Hours(r.Context(), name)
	if err != nil {
		h.fail(w, r, "Failed to summarize hours", err)
		return
	}
	writeJSON(w, http.StatusOK, toHoursDTO(name, hours))
}

// =============================================================================
// TEAM
// =============================================================================

// GetTeamIrregularities runs the detector for everyone.
func (h *Handler) GetTeamIrregularities(w http.ResponseWriter, r *http.Request) {
	results, err := h.Analyzer.Team(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to analyze team", err)
		return
	}

	resp := TeamResponse{Employees: make([]TeamEmployeeDTO, len(results))}
	for i, res := range results {
		resp.Employees[i] = TeamEmployeeDTO{
			Name:    res.Employee,
			Slug:    timesheet.Slug(res.Employee),
			Flags:   len(res.Report.Flags),
			Summary: toSummaryDTO(res.Report.Summary),
		}
		resp.Flags += len(res.Report.Flags)
		resp.High += countSeverity(res.Report.Flags, irregularity.SeverityHigh)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// AD HOC ANALYSIS
// =============================================================================

// Analyze allocates and checks rows supplied in the request body. The
// optional "analysis" object overrides the configured settings.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	alloc, rep, err := h.Analyzer.AnalyzeEntries(r.Context(), req.toEntries(), req.Analysis)
	if err != nil {
		h.fail(w, r, "Failed to analyze rows", err)
		return
	}
	alloc.Employee = req.Employee

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Allocation: NewAllocationResponse(alloc),
		Report:     NewReportDTO(req.Employee, rep),
	})
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportCSV loads an uploaded hours export. The form field "file" holds the
// CSV; "employee" names the employee for rows without employee_name.
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	importer, ok := h.Analyzer.Store.(Importer)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support imports", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	entries, err := timesheet.ParseCSV(file, r.FormValue("employee"))
	if err != nil {
		h.fail(w, r, "Failed to parse CSV", err)
		return
	}

	batchID := uuid.NewString()
	n, err := importer.ImportEntries(r.Context(), batchID, entries)
	if err != nil {
		h.fail(w, r, "Failed to import rows", err)
		return
	}

	h.Logger.Info("csv imported", "batch", batchID, "rows", n)
	writeJSON(w, http.StatusCreated, ImportResponse{
		BatchID:   batchID,
		Rows:      n,
		Employees: timesheet.DistinctEmployees(entries),
	})
}

// =============================================================================
// RUNS
// =============================================================================

// ListRuns returns recent team runs, newest first. ?limit= defaults to 20.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Analyzer.Store.ListAnalysisRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TriggerRun runs the team analysis synchronously and returns its record.
// A failed analysis that was recorded is reported with 200.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Scheduler.RunNow(r.Context(), RunManual)
	if errors.Is(err, ErrRunNotRecorded) {
		h.Logger.Error("Failed to record run", "path", r.URL.Path, "run", run.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// =============================================================================
// HEALTH
// =============================================================================

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Analyzer.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case timesheet.IsClientError(err):
		return http.StatusBadRequest
	case timesheet.IsNotFound(err):
		return http.StatusNotFound
	case timesheet.IsRetryable(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the status statusFor picks.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
