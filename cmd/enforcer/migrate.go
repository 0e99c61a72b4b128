package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dpanfilo/enforcer/store/sqlite"
)

type migrator interface {
	Migrate() error
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m, ok := a.store.(migrator)
			if !ok {
				return fmt.Errorf("store %q has no migrations", a.cfg.Store.Driver)
			}
			if err := m.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			st, ok := a.store.(*sqlite.Store)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
				return nil
			}
			status, err := st.MigrationStatus()
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"current_version": status.CurrentVersion,
					"latest_version":  status.LatestVersion,
					"dirty":           status.Dirty,
					"pending":         status.Pending,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d of %d (dirty=%t)\n",
				status.CurrentVersion, status.LatestVersion, status.Dirty)
			return nil
		},
	}
}
