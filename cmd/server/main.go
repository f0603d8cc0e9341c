/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the workforce engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file + WFE_* environment)
  2. Initialize SQLite store
  3. Wire the notification sink and the engine services
  4. Configure HTTP router
  5. Start the sweep scheduler (if enabled)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler
  4. Close database connection

EXAMPLES:
  # Run with a config file
  ./server -config=./workforce.yaml

  # Run in memory with everything from the environment
  WFE_DB_PATH=":memory:" WFE_JWT_SECRET=dev ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/workforce-engine/api"
	"github.com/warp/workforce-engine/config"
	"github.com/warp/workforce-engine/hr"
	"github.com/warp/workforce-engine/notify"
	"github.com/warp/workforce-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or WFE_JWT_SECRET) is required")
	}
	logger := cfg.Log.NewLogger()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Wire services
	clock := hr.SystemClock{}
	sink := notify.NewService(store, store, notify.LogMailer{Logger: logger}, clock, logger)
	handler, err := api.NewHandler(store, cfg.Engine, hr.Runtime{
		Clock:    clock,
		Location: cfg.Engine.Location,
		Events:   sink,
		Audit:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	router := api.NewRouter(handler, api.RouterOptions{
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		AllowedOrigins: cfg.Server.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	var scheduler *api.SweepScheduler
	if cfg.Engine.Scheduler.Enabled {
		scheduler = api.NewSweepScheduler(handler.Compensation, store, cfg.Engine.Scheduler.Interval, logger)
		scheduler.Start()
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "db", cfg.Database.Path, "timezone", cfg.Engine.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	logger.Info("server stopped")
	return nil
}
