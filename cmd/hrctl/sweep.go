package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// SweepOptions holds flags for the sweep commands.
type SweepOptions struct {
	*RootOptions
	Date string
}

func newSweepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Scheduled checks",
	}
	cmd.AddCommand(newSweepDailyCommand(rootOpts))
	cmd.AddCommand(newSweepDocumentsCommand(rootOpts))
	cmd.AddCommand(newSweepWeeklyCommand(rootOpts))
	cmd.AddCommand(newSweepMonthlyCommand(rootOpts))
	return cmd
}

func newSweepDailyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Report late check-ins and missing check-outs for a day (default yesterday)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := dateFlag("date", opts.Date, a.orch.Today().AddDays(-1))
			if err != nil {
				return err
			}
			report, err := a.orch.CheckDailyAttendance(cmd.Context(), date)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]any{
				"date":              report.Date.String(),
				"late_check_ins":    report.LateCheckIns,
				"missed_check_outs": report.MissedCheckOuts,
			}, fmt.Sprintf("%s: %d late check-ins, %d missed check-outs\n",
				report.Date, report.LateCheckIns, report.MissedCheckOuts))
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "day to check (YYYY-MM-DD)")
	return cmd
}

func newSweepDocumentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Report documents expiring within the configured window (default from today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := dateFlag("date", opts.Date, a.orch.Today())
			if err != nil {
				return err
			}
			events, err := a.orch.CheckDocumentExpiry(cmd.Context(), date)
			if err != nil {
				return err
			}

			rows := make([]map[string]any, 0, len(events))
			text := fmt.Sprintf("%d documents expiring from %s\n", len(events), date)
			for _, ev := range events {
				rows = append(rows, map[string]any{
					"document_id": ev.Document.ID,
					"employee_id": ev.Document.EmployeeID,
					"title":       ev.Document.Title,
					"expiry_date": ev.Document.ExpiryDate.String(),
					"days_left":   ev.DaysLeft,
				})
				text += fmt.Sprintf("  %s  %s  %s (%d days)\n", ev.Document.EmployeeID, ev.Document.Title, ev.Document.ExpiryDate, ev.DaysLeft)
			}
			return write(cmd.OutOrStdout(), opts.Format, rows, text)
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "reference date (YYYY-MM-DD)")
	return cmd
}

func newSweepWeeklyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Send HR the attendance digest for the week ending on a date (default today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := dateFlag("date", opts.Date, a.orch.Today())
			if err != nil {
				return err
			}
			d, err := a.orch.WeeklyAttendanceDigest(cmd.Context(), date)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]any{
				"period_start":     d.Period.Start.String(),
				"period_end":       d.Period.End.String(),
				"active_employees": d.ActiveEmployees,
				"present":          d.Present,
				"late":             d.Late,
				"absent":           d.Absent,
				"attendance_rate":  d.Rate.StringFixed(1),
			}, fmt.Sprintf("%s: %d active, %d present, %d late, %d absent (%s%%)\n",
				d.Period, d.ActiveEmployees, d.Present, d.Late, d.Absent, d.Rate.StringFixed(1)))
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "last day of the week (YYYY-MM-DD)")
	return cmd
}

func newSweepMonthlyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Remind HR of payrolls still in draft, pending or approved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := dateFlag("date", opts.Date, a.orch.Today())
			if err != nil {
				return err
			}
			r, err := a.orch.PayrollReminder(cmd.Context(), date)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]any{
				"date":     r.Date.String(),
				"drafts":   r.Drafts,
				"pending":  r.Pending,
				"approved": r.Approved,
			}, fmt.Sprintf("%s: %d draft, %d pending, %d approved\n", r.Date, r.Drafts, r.Pending, r.Approved))
		},
	}
	cmd.Flags().StringVar(&opts.Date, "date", "", "reference date (YYYY-MM-DD)")
	return cmd
}

func write(out io.Writer, format string, v any, text string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(out, text)
	return err
}
