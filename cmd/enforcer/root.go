package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dpanfilo/enforcer/api"
	"github.com/dpanfilo/enforcer/config"
	"github.com/dpanfilo/enforcer/logging"
	"github.com/dpanfilo/enforcer/metrics"
	"github.com/dpanfilo/enforcer/store/postgres"
	"github.com/dpanfilo/enforcer/store/sqlite"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "enforcer",
		Short: "Timesheet overtime allocation and irregularity detection",
		Long: `enforcer reads employee timesheets, splits each week's hours into
straight time and overtime, and flags entries that look wrong.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newEmployeesCmd(opts),
		newAnalyzeCmd(opts),
		newAllocateCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// app is everything a subcommand needs, built from the configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    api.Store
	analyzer *api.Analyzer

	closeStore func()
	logOut     io.Closer
}

func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	logger, logOut, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		logOut.Close()
		return nil, err
	}

	analyzer := api.NewAnalyzer(store, cfg.Analysis, logger)
	analyzer.Fetcher = cfg.Fetcher(store)
	analyzer.Fetcher.OnPage = metrics.RecordRows
	analyzer.Concurrency = cfg.Team.Concurrency

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		analyzer:   analyzer,
		closeStore: closeStore,
		logOut:     logOut,
	}, nil
}

func (a *app) Close() {
	a.closeStore()
	a.logOut.Close()
}

// openStore connects to the configured backend. SQLite migrates on open;
// Postgres is migrated by the migrate command.
func openStore(ctx context.Context, sc config.StoreConfig) (api.Store, func(), error) {
	switch sc.Driver {
	case config.DriverPostgres:
		st, err := postgres.New(ctx, sc.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, st.Close, nil
	default:
		st, err := sqlite.New(sc.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, func() { st.Close() }, nil
	}
}
