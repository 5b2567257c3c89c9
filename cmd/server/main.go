/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the PDC lifecycle engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (configs/config.yaml + environment)
  2. Initialize SQLite store (cheques, directory, sweep runs)
  3. Wire the domain services: registrar, engine, sweeper, reporter
  4. Configure HTTP router and start the sweep scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweep scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DB_PATH="./data/pdc.db" ./server

  # Run with in-memory database
  DB_PATH=":memory:" ./server

  # Run on a different port
  PORT=3000 ./server

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atrium/pdc-engine/api"
	"github.com/atrium/pdc-engine/cheque"
	"github.com/atrium/pdc-engine/config"
	"github.com/atrium/pdc-engine/ledger"
	"github.com/atrium/pdc-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Wire up the domain. The invoice ledger is in-memory until the
	// accounting system integration lands.
	invoices := ledger.NewMemory()
	notifier := api.NewLogNotifier(logger)

	bridge := &cheque.PaymentBridge{Ledger: invoices}
	engine := cheque.NewEngine(store, bridge, notifier)
	registrar := &cheque.Registrar{Store: store, Directory: store, Ledger: invoices}
	sweeper := cheque.NewSweeper(store, engine, notifier, cheque.SweepConfig{
		DueWindowDays:      cfg.Sweep.DueWindowDays,
		ReminderWindowDays: cfg.Sweep.ReminderWindowDays,
	}, logger)
	reporter := &cheque.Reporter{Store: store}

	// HTTP layer
	handler := api.NewHandler(store, registrar, engine, sweeper, reporter)
	router := api.NewRouter(handler, cfg.Server.CorsAllowedOrigins)

	// Background sweep
	scheduler := api.NewSweepScheduler(store, sweeper, logger)
	scheduler.CheckInterval = cfg.Sweep.Interval
	scheduler.Enabled = cfg.Sweep.SchedulerEnabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
