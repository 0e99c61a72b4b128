package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dpanfilo/enforcer/api"
	"github.com/dpanfilo/enforcer/timesheet"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var employee string

	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Load an hours export into the store",
		Long: `Reads a CSV with the columns employee_name, date, start, end,
straight_code, straight_hours, premium_code, premium_hours, job and notes.
Rows without employee_name take --employee.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := timesheet.ParseCSV(f, employee)
			if err != nil {
				return err
			}

			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			importer, ok := a.store.(api.Importer)
			if !ok {
				return fmt.Errorf("store %q does not support imports", a.cfg.Store.Driver)
			}

			batchID := uuid.NewString()
			n, err := importer.ImportEntries(cmd.Context(), batchID, entries)
			if err != nil {
				return err
			}
			a.logger.Info("csv imported", "file", args[0], "batch", batchID, "rows", n)

			resp := api.ImportResponse{BatchID: batchID, Rows: n, Employees: timesheet.DistinctEmployees(entries)}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows for %d employees (batch %s)\n",
				resp.Rows, len(resp.Employees), resp.BatchID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&employee, "employee", "e", "", "employee name for rows without one")
	return cmd
}
