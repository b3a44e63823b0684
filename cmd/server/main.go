/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment), then command-line flags
  2. Build the logger
  3. Load statutory parameters (factory)
  4. Initialize SQLite store
  5. Create engine, handler and router
  6. Start the draft scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port       HTTP server port (PAYROLL_PORT, default: 8080)
  -db         SQLite database path (PAYROLL_DB_PATH, default: ./data/payroll.db)
              Use ":memory:" for in-memory database
  -statutory  Statutory config JSON (PAYROLL_STATUTORY_CONFIG)

ENVIRONMENT:
  PAYROLL_ALLOW_REVERSAL, PAYROLL_SCHEDULER_INTERVAL, LOG_LEVEL, LOG_FORMAT,
  CORS_ALLOWED_ORIGINS. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "payroll server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	statutoryPath := flag.String("statutory", cfg.Payroll.StatutoryConfigPath, "statutory config JSON file")
	flag.Parse()

	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	statutory, err := factory.LoadStatutoryConfig(*statutoryPath)
	if err != nil {
		return err
	}
	rules, err := payroll.NewRules(statutory)
	if err != nil {
		return fmt.Errorf("statutory config: %w", err)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	engine := payroll.NewEngine(store, store, store,
		payroll.WithRules(rules),
		payroll.WithWorkflow(payroll.Workflow{AllowReversal: cfg.Payroll.AllowReversal}),
		payroll.WithLogger(logger),
	)

	handler := api.NewHandler(engine, store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.App.CORSAllowedOrigins,
	})

	scheduler := api.NewDraftScheduler(engine, logger)
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Enabled = cfg.Scheduler.Interval > 0
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
