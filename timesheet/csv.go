package timesheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// =============================================================================
// CSV - hours_import export format
// =============================================================================

// csvRow mirrors the hours_import export columns.
type csvRow struct {
	Employee      string `csv:"employee_name"`
	Date          string `csv:"date"`
	Start         string `csv:"start"`
	End           string `csv:"end"`
	StraightCode  string `csv:"straight_code"`
	StraightHours string `csv:"straight_hours"`
	PremiumCode   string `csv:"premium_code"`
	PremiumHours  string `csv:"premium_hours"`
	Job           string `csv:"job"`
	Notes         string `csv:"notes"`
}

// ParseCSV reads an hours export. Rows without an employee_name column value
// take defaultEmployee; if that is empty too the import is rejected.
func ParseCSV(r io.Reader, defaultEmployee string) ([]Entry, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidImport)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		employee := strings.TrimSpace(row.Employee)
		if employee == "" {
			employee = strings.TrimSpace(defaultEmployee)
		}
		if employee == "" {
			return nil, fmt.Errorf("%w: line %d has no employee_name", ErrInvalidImport, i+2)
		}
		entries = append(entries, Entry{
			Employee:      employee,
			Date:          strings.TrimSpace(row.Date),
			Start:         strings.TrimSpace(row.Start),
			End:           strings.TrimSpace(row.End),
			StraightCode:  strings.TrimSpace(row.StraightCode),
			StraightHours: ToNumber(row.StraightHours),
			PremiumCode:   strings.TrimSpace(row.PremiumCode),
			PremiumHours:  ToNumber(row.PremiumHours),
			JobCode:       strings.TrimSpace(row.Job),
			Notes:         row.Notes,
		})
	}
	return entries, nil
}

// WriteCSV writes entries in the import format.
func WriteCSV(w io.Writer, entries []Entry) error {
	rows := make([]*csvRow, len(entries))
	for i, e := range entries {
		rows[i] = &csvRow{
			Employee:      e.Employee,
			Date:          e.Date,
			Start:         e.Start,
			End:           e.End,
			StraightCode:  e.StraightCode,
			StraightHours: e.StraightHours.String(),
			PremiumCode:   e.PremiumCode,
			PremiumHours:  e.PremiumHours.String(),
			Job:           e.JobCode,
			Notes:         e.Notes,
		}
	}
	return gocsv.Marshal(rows, w)
}
