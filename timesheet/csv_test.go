package timesheet_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpanfilo/enforcer/timesheet"
)

const sampleCSV = `employee_name,date,start,end,straight_code,straight_hours,premium_code,premium_hours,job,notes
Jane Doe,6/2/2025,7:00 AM,5:30 PM,REG,8,OT,2.5,ABC-25-00001,site visit
Jane Doe,2025-06-03,08:00,16:00,REG,8h,,,emails,
Bob Ray,6/3/2025,,,REG,abc,,,,
`

func TestParseCSV(t *testing.T) {
	entries, err := timesheet.ParseCSV(strings.NewReader(sampleCSV), "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "Jane Doe", first.Employee)
	assert.Equal(t, "7:00 AM", first.Start)
	assert.True(t, decimal.RequireFromString("10.5").Equal(first.Hours()))
	assert.Equal(t, "site visit", first.Notes)

	// Hours with a suffix keep the numeric prefix; junk is zero
	assert.True(t, decimal.NewFromInt(8).Equal(entries[1].StraightHours))
	assert.True(t, entries[2].StraightHours.IsZero())
}

func TestParseCSV_DefaultEmployee(t *testing.T) {
	in := "date,straight_hours,job\n2025-06-02,8,ABC-25-00001\n"

	_, err := timesheet.ParseCSV(strings.NewReader(in), "")
	assert.True(t, errors.Is(err, timesheet.ErrInvalidImport))

	entries, err := timesheet.ParseCSV(strings.NewReader(in), "Jane Doe")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Jane Doe", entries[0].Employee)
}

func TestParseCSV_Invalid(t *testing.T) {
	for _, in := range []string{"", "employee_name,date\n"} {
		_, err := timesheet.ParseCSV(strings.NewReader(in), "")
		assert.True(t, errors.Is(err, timesheet.ErrInvalidImport), "input %q", in)
	}
}

func TestWriteCSV_ReadsBack(t *testing.T) {
	in := []timesheet.Entry{{Employee: "Jane Doe", Date: "2025-06-02", StraightHours: decimal.RequireFromString("8.5"), JobCode: "ABC-25-00001"}}

	var buf bytes.Buffer
	require.NoError(t, timesheet.WriteCSV(&buf, in))

	out, err := timesheet.ParseCSV(&buf, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in[0].JobCode, out[0].JobCode)
	assert.True(t, in[0].StraightHours.Equal(out[0].StraightHours))
}
