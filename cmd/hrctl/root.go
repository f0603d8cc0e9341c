package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/warp/workforce-engine/compensation"
	"github.com/warp/workforce-engine/config"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/notify"
	"github.com/warp/workforce-engine/payroll"
	"github.com/warp/workforce-engine/store/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	// Clock overrides the system clock (for testing).
	Clock hr.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hrctl",
		Short: "Run workforce engine batches",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newPayrollCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	return cmd
}

// app is the engine wired from configuration.
type app struct {
	store  *sqlite.Store
	orch   *compensation.Orchestrator
	logger *slog.Logger
}

func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	params, err := cfg.Engine.PayrollParams()
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = hr.SystemClock{}
	}
	rt := hr.Runtime{
		Clock:    clock,
		Location: cfg.Engine.Location,
		Events:   notify.NewService(store, store, notify.LogMailer{Logger: logger}, clock, logger),
		Audit:    store,
		Logger:   logger,
	}
	engine := payroll.NewEngine(store, params, cfg.Engine.PayslipDir, rt)
	return &app{
		store:  store,
		orch:   compensation.NewOrchestrator(store, engine, cfg.Engine.BatchWorkers, cfg.Engine.ExpiryWindow(), rt),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// dateFlag parses an optional YYYY-MM-DD flag value; empty means fallback.
func dateFlag(name, value string, fallback hr.Date) (hr.Date, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := hr.ParseDate(value)
	if err != nil {
		return hr.Date{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}
