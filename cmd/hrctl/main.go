/*
hrctl - command-line trigger for the batch operations

PURPOSE:
  Runs the payroll batch and the scheduled sweeps against the same
  database and configuration as the server, for cron jobs and operators.

COMMANDS:
  hrctl payroll run --start 2025-03-01 --end 2025-03-14
  hrctl payroll run --period biweekly --ref 2025-03-14 --employee EMP001
  hrctl sweep daily --date 2025-03-13
  hrctl sweep documents --date 2025-03-14
  hrctl sweep weekly
  hrctl sweep monthly --format json

  Dates default to the relevant day in the configured time zone.

SEE ALSO:
  - compensation/orchestrator.go: what the commands run
  - cmd/server/main.go: the HTTP server
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hrctl:", err)
		os.Exit(1)
	}
}
