/*
Package postgres reads timesheet rows and job metadata from a hosted
Postgres database.

PURPOSE:
  Same table layout as store/sqlite (hours_import, jobs, statuses,
  analysis_runs), accessed through a pgx connection pool. The hosted
  database is usually populated by other systems; Migrate only creates
  tables that do not exist yet.

INTERFACES IMPLEMENTED:
  timesheet.RowSource
  timesheet.JobRegistry
  timesheet.StatusRegistry
  timesheet.RunStore

SEE ALSO:
  - store/sqlite/sqlite.go: Local implementation
*/
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dpanfilo/enforcer/timesheet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements the timesheet collaborator interfaces over pgxpool.
type Store struct {
	pool *pgxpool.Pool
	dsn  string
}

// New connects to dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return &Store{pool: pool, dsn: dsn}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending migrations through golang-migrate's pgx driver.
func (s *Store) Migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(s.dsn))
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// migrateURL rewrites a postgres:// DSN to the pgx5:// scheme the migrate
// driver registers under.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// =============================================================================
// ROW SOURCE
// =============================================================================

func (s *Store) Employees(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT employee_name FROM hours_import
		WHERE employee_name IS NOT NULL AND employee_name <> ''
		ORDER BY employee_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// FetchPage casts every column to text so numeric and text exports read
// the same way.
func (s *Store) FetchPage(ctx context.Context, employee string, offset, limit int) ([]timesheet.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT employee_name, date::text, start::text, "end"::text, straight_code,
		       straight_hours::text, premium_code, premium_hours::text, job, notes
		FROM hours_import
		WHERE employee_name = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, employee, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hours: %w", classify(err))
	}
	defer rows.Close()

	var out []timesheet.Entry
	for rows.Next() {
		var (
			e                                      timesheet.Entry
			date, start, end, sCode, sHours, pCode *string
			pHours, job, notes                     *string
		)
		if err := rows.Scan(&e.Employee, &date, &start, &end, &sCode, &sHours, &pCode, &pHours, &job, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan hours row: %w", err)
		}
		e.Date = deref(date)
		e.Start = deref(start)
		e.End = deref(end)
		e.StraightCode = deref(sCode)
		e.StraightHours = timesheet.ToNumber(sHours)
		e.PremiumCode = deref(pCode)
		e.PremiumHours = timesheet.ToNumber(pHours)
		e.JobCode = deref(job)
		e.Notes = deref(notes)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ImportEntries bulk-loads entries with COPY.
func (s *Store) ImportEntries(ctx context.Context, batchID string, entries []timesheet.Entry) (int, error) {
	for i, e := range entries {
		if strings.TrimSpace(e.Employee) == "" {
			return 0, fmt.Errorf("%w: row %d has no employee", timesheet.ErrInvalidImport, i+1)
		}
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"hours_import"},
		[]string{"batch_id", "employee_name", "date", "start", "end", "straight_code",
			"straight_hours", "premium_code", "premium_hours", "job", "notes"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{batchID, e.Employee, e.Date, e.Start, e.End, e.StraightCode,
				e.StraightHours.String(), e.PremiumCode, e.PremiumHours.String(), e.JobCode, e.Notes}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy rows: %w", err)
	}
	return int(n), nil
}

// =============================================================================
// JOB REGISTRY
// =============================================================================

func (s *Store) LookupJobs(ctx context.Context, codes []string) (map[string]timesheet.JobDetail, error) {
	found := make(map[string]timesheet.JobDetail)
	if len(codes) == 0 {
		return found, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT full_number, project_description, city, state, macro_status, status_id, rush::text
		FROM jobs
		WHERE full_number = ANY($1)
	`, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			j                              timesheet.JobDetail
			desc, city, state, macro, rush *string
			statusID                       *int32
		)
		if err := rows.Scan(&j.Code, &desc, &city, &state, &macro, &statusID, &rush); err != nil {
			return nil, err
		}
		j.Description = deref(desc)
		j.City = deref(city)
		j.State = deref(state)
		j.MacroStatus = deref(macro)
		if statusID != nil {
			id := int(*statusID)
			j.StatusID = &id
		}
		j.Rush = isTrue(deref(rush))
		found[j.Code] = j
	}
	return found, rows.Err()
}

func (s *Store) StatusNames(ctx context.Context) (map[int]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT "index", name FROM statuses`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int32
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[int(id)] = name
	}
	return out, rows.Err()
}

// =============================================================================
// ANALYSIS RUNS
// =============================================================================

func (s *Store) SaveAnalysisRun(ctx context.Context, r timesheet.AnalysisRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, kind, status, employees, flags, high_flags, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			employees = EXCLUDED.employees,
			flags = EXCLUDED.flags,
			high_flags = EXCLUDED.high_flags,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`, r.ID, r.Kind, r.Status, r.Employees, r.Flags, r.HighFlags, r.Error, r.StartedAt, r.CompletedAt)
	return err
}

func (s *Store) ListAnalysisRuns(ctx context.Context, limit int) ([]timesheet.AnalysisRun, error) {
	query := `
		SELECT id, kind, status, employees, flags, high_flags, error, started_at, completed_at
		FROM analysis_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []timesheet.AnalysisRun
	for rows.Next() {
		var r timesheet.AnalysisRun
		if err := rows.Scan(&r.ID, &r.Kind, &r.Status, &r.Employees, &r.Flags, &r.HighFlags,
			&r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// classify marks errors in SQLSTATE class 42 (syntax error or access rule
// violation, which covers undefined tables and columns) as invalid queries.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "42") {
		return fmt.Errorf("%w: %w", timesheet.ErrInvalidQuery, err)
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes":
		return true
	}
	return false
}

var (
	_ timesheet.RowSource      = (*Store)(nil)
	_ timesheet.JobRegistry    = (*Store)(nil)
	_ timesheet.StatusRegistry = (*Store)(nil)
	_ timesheet.RunStore       = (*Store)(nil)
)
