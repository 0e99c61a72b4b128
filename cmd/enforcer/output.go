package main

import (
	"context"
	"encoding/json"
	"io"
	"text/tabwriter"

	"github.com/dpanfilo/enforcer/api"
	"github.com/dpanfilo/enforcer/timesheet"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// resolveEmployee accepts an exact employee name or a slug.
func resolveEmployee(ctx context.Context, a *api.Analyzer, arg string) (string, error) {
	names, err := a.Store.Employees(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if n == arg {
			return n, nil
		}
	}
	return a.Resolve(ctx, timesheet.Slug(arg))
}
