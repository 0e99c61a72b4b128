/*
Package sqlite provides a SQLite-backed implementation of the timesheet
collaborator interfaces.

PURPOSE:
  Holds imported timesheet rows, the job registry and the analysis run
  history in a single local database file. The Postgres adapter reads the
  same table layout from the hosted store.

INTERFACES IMPLEMENTED:
  timesheet.RowSource:      Paginated rows per employee
  timesheet.JobRegistry:    Job code lookup by full_number
  timesheet.StatusRegistry: Status index -> name
  timesheet.RunStore:       Analysis run history

KEY TABLES:
  hours_import:  Raw timesheet rows, one per import line
  jobs:          Job registry keyed by full_number
  statuses:      Job status names
  analysis_runs: Scheduler and manual team analysis runs

RAW VALUES:
  Hours columns are TEXT so rows loaded by other tools keep their raw form.
  They are parsed on read with timesheet.ToNumber: a malformed value
  degrades to 0 instead of failing the read.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to a
  single connection so every query sees the same schema.

MIGRATION:
  Versioned migrations are embedded from migrations/*.sql and applied with
  golang-migrate on New().

USAGE:
  store, err := sqlite.New("./data/enforcer.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timesheet/source.go: Interface definitions
  - csv.go: CSV import into hours_import
  - store/postgres/postgres.go: Hosted implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/dpanfilo/enforcer/timesheet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store implements the timesheet collaborator interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// MigrationStatus describes the schema version of an open store.
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// New opens the database at dbPath and applies pending migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies every pending migration.
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// MigrationStatus reports the applied and latest available versions.
func (s *Store) MigrationStatus() (*MigrationStatus, error) {
	m, err := s.migrator()
	if err != nil {
		return nil, err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, err
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var latest uint
	if first, err := source.First(); err == nil {
		latest = first
		for {
			next, err := source.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
	}

	return &MigrationStatus{
		CurrentVersion: version,
		LatestVersion:  latest,
		Dirty:          dirty,
		Pending:        version < latest,
	}, nil
}

// migrator builds a migrate instance over the open handle. It is never
// closed: closing it would close s.db.
func (s *Store) migrator() (*migrate.Migrate, error) {
	driver, err := sqlite3migrate.WithInstance(s.db, &sqlite3migrate.Config{})
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", source, "sqlite3", driver)
}

// =============================================================================
// ROW SOURCE (timesheet.RowSource interface)
// =============================================================================

// Employees returns distinct employee names, sorted.
func (s *Store) Employees(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT employee_name FROM hours_import
		WHERE employee_name <> ''
		ORDER BY employee_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// FetchPage returns rows for employee in import order.
func (s *Store) FetchPage(ctx context.Context, employee string, offset, limit int) ([]timesheet.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_name, date, start, "end", straight_code, straight_hours,
		       premium_code, premium_hours, job, notes
		FROM hours_import
		WHERE employee_name = ?
		ORDER BY id
		LIMIT ? OFFSET ?
	`, employee, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hours: %w", classify(err))
	}
	defer rows.Close()

	var out []timesheet.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// classify marks generic SQL errors (missing table or column, syntax) as
// invalid queries. Busy and locked databases stay retryable.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrError {
		return fmt.Errorf("%w: %w", timesheet.ErrInvalidQuery, err)
	}
	return err
}

func scanEntry(rows *sql.Rows) (timesheet.Entry, error) {
	var (
		e                                      timesheet.Entry
		date, start, end, sCode, sHours, pCode sql.NullString
		pHours, job, notes                     sql.NullString
	)
	if err := rows.Scan(&e.Employee, &date, &start, &end, &sCode, &sHours, &pCode, &pHours, &job, &notes); err != nil {
		return e, fmt.Errorf("failed to scan hours row: %w", err)
	}
	e.Date = date.String
	e.Start = start.String
	e.End = end.String
	e.StraightCode = sCode.String
	e.StraightHours = timesheet.ToNumber(sHours.String)
	e.PremiumCode = pCode.String
	e.PremiumHours = timesheet.ToNumber(pHours.String)
	e.JobCode = job.String
	e.Notes = notes.String
	return e, nil
}

// =============================================================================
// IMPORT
// =============================================================================

// ImportEntries appends entries under batchID in a single transaction and
// returns the number of rows written.
func (s *Store) ImportEntries(ctx context.Context, batchID string, entries []timesheet.Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hours_import
		(batch_id, employee_name, date, start, "end", straight_code, straight_hours,
		 premium_code, premium_hours, job, notes, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, e := range entries {
		if strings.TrimSpace(e.Employee) == "" {
			return 0, fmt.Errorf("%w: row %d has no employee", timesheet.ErrInvalidImport, i+1)
		}
		_, err := stmt.ExecContext(ctx,
			batchID, e.Employee,
			nullString(e.Date), nullString(e.Start), nullString(e.End),
			nullString(e.StraightCode), e.StraightHours.String(),
			nullString(e.PremiumCode), e.PremiumHours.String(),
			nullString(e.JobCode), nullString(e.Notes),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// DeleteBatch removes the rows of one import batch.
func (s *Store) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM hours_import WHERE batch_id = ?", batchID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Reset deletes all rows, jobs, statuses and runs.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"hours_import", "jobs", "statuses", "analysis_runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// JOB REGISTRY (timesheet.JobRegistry / StatusRegistry interfaces)
// =============================================================================

// SaveStatus inserts or renames a status.
func (s *Store) SaveStatus(ctx context.Context, id int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statuses ("index", name) VALUES (?, ?)
		ON CONFLICT("index") DO UPDATE SET name = excluded.name
	`, id, name)
	return err
}

// SaveJob inserts or updates a job by full_number.
func (s *Store) SaveJob(ctx context.Context, j timesheet.JobDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var statusID sql.NullInt64
	if j.StatusID != nil {
		statusID = sql.NullInt64{Int64: int64(*j.StatusID), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (full_number, project_description, city, state, macro_status, status_id, rush)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(full_number) DO UPDATE SET
			project_description = excluded.project_description,
			city = excluded.city,
			state = excluded.state,
			macro_status = excluded.macro_status,
			status_id = excluded.status_id,
			rush = excluded.rush
	`, j.Code, j.Description, j.City, j.State, j.MacroStatus, statusID, j.Rush)
	return err
}

// LookupJobs returns the jobs whose full_number is in codes.
func (s *Store) LookupJobs(ctx context.Context, codes []string) (map[string]timesheet.JobDetail, error) {
	found := make(map[string]timesheet.JobDetail)
	if len(codes) == 0 {
		return found, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	query := `
		SELECT full_number, project_description, city, state, macro_status, status_id, rush
		FROM jobs
		WHERE full_number IN (` + placeholders(len(codes)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			j                        timesheet.JobDetail
			desc, city, state, macro sql.NullString
			statusID                 sql.NullInt64
			rush                     sql.NullBool
		)
		if err := rows.Scan(&j.Code, &desc, &city, &state, &macro, &statusID, &rush); err != nil {
			return nil, err
		}
		j.Description = desc.String
		j.City = city.String
		j.State = state.String
		j.MacroStatus = macro.String
		if statusID.Valid {
			id := int(statusID.Int64)
			j.StatusID = &id
		}
		j.Rush = rush.Bool
		found[j.Code] = j
	}
	return found, rows.Err()
}

// StatusNames returns every status keyed by index.
func (s *Store) StatusNames(ctx context.Context) (map[int]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT "index", name FROM statuses`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

// =============================================================================
// ANALYSIS RUNS (timesheet.RunStore interface)
// =============================================================================

// SaveAnalysisRun inserts a run or updates it by ID.
func (s *Store) SaveAnalysisRun(ctx context.Context, r timesheet.AnalysisRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt *string
	if r.CompletedAt != nil {
		c := r.CompletedAt.UTC().Format(timeLayout)
		completedAt = &c
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, kind, status, employees, flags, high_flags, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			employees = excluded.employees,
			flags = excluded.flags,
			high_flags = excluded.high_flags,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.ID, r.Kind, r.Status, r.Employees, r.Flags, r.HighFlags, r.Error,
		r.StartedAt.UTC().Format(timeLayout), completedAt)
	return err
}

// ListAnalysisRuns returns runs newest first. limit <= 0 returns all.
func (s *Store) ListAnalysisRuns(ctx context.Context, limit int) ([]timesheet.AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, kind, status, employees, flags, high_flags, error, started_at, completed_at
		FROM analysis_runs
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []timesheet.AnalysisRun
	for rows.Next() {
		var r timesheet.AnalysisRun
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.Status, &r.Employees, &r.Flags, &r.HighFlags,
			&r.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(timeLayout, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

var (
	_ timesheet.RowSource      = (*Store)(nil)
	_ timesheet.JobRegistry    = (*Store)(nil)
	_ timesheet.StatusRegistry = (*Store)(nil)
	_ timesheet.RunStore       = (*Store)(nil)
)
