package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEmployeesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "employees",
		Short: "List employees and their slugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			employees, err := a.analyzer.Employees(cmd.Context())
			if err != nil {
				return err
			}

			if opts.jsonOut {
				type row struct {
					Name string `json:"name"`
					Slug string `json:"slug"`
				}
				out := make([]row, len(employees))
				for i, e := range employees {
					out[i] = row{e.Name, e.Slug}
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			if len(employees) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No employees found.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tSLUG")
			for _, e := range employees {
				fmt.Fprintf(tw, "%s\t%s\n", e.Name, e.Slug)
			}
			return tw.Flush()
		},
	}
}
