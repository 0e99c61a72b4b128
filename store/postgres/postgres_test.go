package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/timesheet"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/hours", migrateURL("postgres://u:p@db:5432/hours"))
	assert.Equal(t, "pgx5://db/hours", migrateURL("postgresql://db/hours"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func TestIsTrue(t *testing.T) {
	for _, s := range []string{"true", "TRUE", " t ", "1", "yes"} {
		assert.True(t, isTrue(s), s)
	}
	for _, s := range []string{"", "false", "f", "0", "no"} {
		assert.False(t, isTrue(s), s)
	}
}

func TestClassify(t *testing.T) {
	// GIVEN: An undefined table error from the server
	undefined := &pgconn.PgError{Code: "42P01", Message: `relation "hours_import" does not exist`}

	// THEN: It is final and keeps the server error
	err := classify(undefined)
	assert.True(t, errors.Is(err, timesheet.ErrInvalidQuery))
	assert.False(t, timesheet.IsTransient(err))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "42P01", pgErr.Code)

	// AND: Serialization failures and connection errors stay transient
	for _, e := range []error{&pgconn.PgError{Code: "40001"}, errors.New("connection refused")} {
		err := classify(e)
		assert.False(t, errors.Is(err, timesheet.ErrInvalidQuery))
		assert.True(t, timesheet.IsTransient(err))
	}
}

// TestStore_Integration runs against a real database when
// ENFORCER_TEST_POSTGRES_DSN is set.
func TestStore_Integration(t *testing.T) {
	dsn := os.Getenv("ENFORCER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ENFORCER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate())

	employee := "it-" + uuid.NewString()
	n, err := s.ImportEntries(ctx, uuid.NewString(), []timesheet.Entry{
		{Employee: employee, Date: "6/2/2025", StraightHours: decimal.NewFromInt(8), JobCode: "ABC-25-00001"},
		{Employee: employee, Date: "6/3/2025", StraightHours: decimal.RequireFromString("7.5")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := s.FetchPage(ctx, employee, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "6/2/2025", rows[0].Date)
	assert.True(t, decimal.RequireFromString("7.5").Equal(rows[1].StraightHours))

	names, err := s.Employees(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, employee)

	runID := uuid.NewString()
	require.NoError(t, s.SaveAnalysisRun(ctx, timesheet.AnalysisRun{
		ID: runID, Kind: "manual", Status: "completed", StartedAt: time.Now().UTC(),
	}))
	runs, err := s.ListAnalysisRuns(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, runs)
}
