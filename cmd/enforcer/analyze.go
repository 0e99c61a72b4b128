package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dpanfilo/enforcer/api"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "analyze <employee>",
		Short: "Print the irregularity report for one employee",
		Long:  "The employee may be given by exact name or by slug.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if today != "" {
				a.analyzer.Spec.Today = today
			}
			name, err := resolveEmployee(cmd.Context(), a.analyzer, args[0])
			if err != nil {
				return err
			}
			rep, err := a.analyzer.Irregularities(cmd.Context(), name)
			if err != nil {
				return err
			}

			dto := api.NewReportDTO(name, rep)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), dto)
			}
			return printReport(cmd.OutOrStdout(), dto)
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "reference date for the future-date check (YYYY-MM-DD)")
	return cmd
}

func printReport(w io.Writer, rep api.ReportDTO) error {
	s := rep.Summary
	fmt.Fprintf(w, "%s: %d high, %d medium, %d low\n", rep.Employee, s.High, s.Medium, s.Low)
	fmt.Fprintf(w, "Admin %.2fh (%d%%), longest streak %d days, %d weekend days\n\n",
		s.AdminHours, s.AdminPct, s.LongestStreak, s.WeekendDays)

	if len(rep.Flags) == 0 {
		fmt.Fprintln(w, "No irregularities found.")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SEVERITY\tDATE\tCATEGORY\tDETAIL")
	for _, f := range rep.Flags {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Severity, f.Date, f.Category, f.Detail)
	}
	return tw.Flush()
}

func newAllocateCmd(opts *rootOptions) *cobra.Command {
	var daily bool

	cmd := &cobra.Command{
		Use:   "allocate <employee>",
		Short: "Split one employee's hours into straight time and weekly overtime",
		Long:  "The employee may be given by exact name or by slug.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name, err := resolveEmployee(cmd.Context(), a.analyzer, args[0])
			if err != nil {
				return err
			}
			res, err := a.analyzer.Allocation(cmd.Context(), name)
			if err != nil {
				return err
			}

			resp := api.NewAllocationResponse(res)
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			return printAllocation(cmd.OutOrStdout(), resp, daily)
		},
	}
	cmd.Flags().BoolVar(&daily, "daily", false, "show every date instead of weekly totals")
	return cmd
}

func printAllocation(w io.Writer, resp api.AllocationResponse, daily bool) error {
	tw := newTable(w)
	if daily {
		fmt.Fprintln(tw, "DATE\tWEEK\tTOTAL\tSTRAIGHT\tOVERTIME")
		for _, a := range resp.Allocations {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\n", a.Date, a.WeekStart, a.Total, a.Straight, a.Overtime)
		}
	} else {
		fmt.Fprintln(tw, "WEEK\tDAYS\tTOTAL\tSTRAIGHT\tOVERTIME")
		for _, t := range resp.Weekly {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", t.Key, t.Days, t.Total, t.Straight, t.Overtime)
		}
	}
	t := resp.Totals
	fmt.Fprintf(tw, "TOTAL\t\t%.2f\t%.2f\t%.2f\n", t.Total, t.Straight, t.Overtime)
	return tw.Flush()
}
