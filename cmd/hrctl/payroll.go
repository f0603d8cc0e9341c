package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/workforce-engine/compensation"
	"github.com/warp/workforce-engine/hr"
)

// PayrollRunOptions holds flags for the payroll run command.
type PayrollRunOptions struct {
	*RootOptions
	Start     string
	End       string
	Period    string
	Reference string
	Employees []string
}

func newPayrollCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Payroll batches",
	}
	cmd.AddCommand(newPayrollRunCommand(rootOpts))
	return cmd
}

func newPayrollRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PayrollRunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create draft payrolls for a pay period",
		Long: `Create draft payrolls for every active employee (or the listed ones).

Employees that already have a payroll for the period are skipped, so the
command can be re-run safely. Either --start and --end, or --period with an
optional --ref date, select the period.

Example:
  hrctl payroll run --start 2025-03-01 --end 2025-03-14
  hrctl payroll run --period monthly --ref 2025-03-31 --employee EMP001 --employee EMP002`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPayroll(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.End, "end", "", "period end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Period, "period", "", "pay period kind (weekly|biweekly|monthly)")
	cmd.Flags().StringVar(&opts.Reference, "ref", "", "reference date for --period, default today")
	cmd.Flags().StringArrayVar(&opts.Employees, "employee", nil, "employee id (repeatable), default all active")
	cmd.MarkFlagsRequiredTogether("start", "end")
	cmd.MarkFlagsMutuallyExclusive("start", "period")
	cmd.MarkFlagsOneRequired("start", "period")

	return cmd
}

func runPayroll(ctx context.Context, opts *PayrollRunOptions, out io.Writer) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	var period hr.Period
	if opts.Period != "" {
		ref, err := dateFlag("ref", opts.Reference, a.orch.Today())
		if err != nil {
			return err
		}
		if period, err = hr.DefaultPayPeriod(hr.PayPeriodKind(opts.Period), ref); err != nil {
			return err
		}
	} else {
		if period.Start, err = dateFlag("start", opts.Start, hr.Date{}); err != nil {
			return err
		}
		if period.End, err = dateFlag("end", opts.End, hr.Date{}); err != nil {
			return err
		}
	}

	result, err := a.orch.RunPayrollBatch(ctx, hr.SystemActor, period, opts.Employees)
	if err != nil {
		return err
	}
	if opts.Format == "json" {
		return writeBatchJSON(out, result)
	}
	return writeBatchText(out, result)
}

type batchItemJSON struct {
	EmployeeID string `json:"employee_id"`
	PayrollID  string `json:"payroll_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func writeBatchJSON(out io.Writer, r compensation.BatchResult) error {
	items := func(in []compensation.ItemResult) []batchItemJSON {
		res := make([]batchItemJSON, 0, len(in))
		for _, it := range in {
			res = append(res, batchItemJSON(it))
		}
		return res
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"period_start": r.Period.Start.String(),
		"period_end":   r.Period.End.String(),
		"created":      items(r.Created),
		"skipped":      items(r.Skipped),
		"failed":       items(r.Failed),
	})
}

func writeBatchText(out io.Writer, r compensation.BatchResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "period\t%s\n", r.Period)
	fmt.Fprintf(tw, "created\t%d\n", len(r.Created))
	for _, it := range r.Created {
		fmt.Fprintf(tw, "  %s\t%s\n", it.EmployeeID, it.PayrollID)
	}
	fmt.Fprintf(tw, "skipped\t%d\n", len(r.Skipped))
	for _, it := range r.Skipped {
		fmt.Fprintf(tw, "  %s\t%s\n", it.EmployeeID, it.Reason)
	}
	fmt.Fprintf(tw, "failed\t%d\n", len(r.Failed))
	for _, it := range r.Failed {
		fmt.Fprintf(tw, "  %s\t%s\n", it.EmployeeID, it.Reason)
	}
	return tw.Flush()
}
