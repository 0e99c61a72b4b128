/*
main.go - Application entry point

PURPOSE:
  Runs the enforcer command line. Every subcommand loads the same YAML
  configuration, builds the logger and opens the configured store.

COMMANDS:
  serve               HTTP API with the periodic team analysis
  import <csv>        Load an hours export into the store
  employees           List employees and their slugs
  analyze <employee>  Irregularity report for one employee
  allocate <employee> Weekly straight/overtime split for one employee
  migrate             Apply schema migrations and print the version

SIGNALS:
  SIGINT/SIGTERM cancel the command context. serve uses it to shut down
  gracefully; the other commands abort in-flight store calls.

EXAMPLES:
  enforcer --config enforcer.yaml serve --port 3000
  enforcer import hours.csv --employee "Jane Doe"
  enforcer analyze jane-doe --json

SEE ALSO:
  - config/config.go: Configuration file and environment
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
