package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autonomiq/opsengine/api"
	"github.com/autonomiq/opsengine/internal/collector"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/orchestrator"
	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	} else {
		logger.Info("Running without persistent storage")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("migrations require database.enabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.MigrationTimeout)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	engine := orchestrator.New(cfg, db, nil)
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	if cfg.Prometheus.Enabled {
		engine.Metrics().StartServer(cfg.Prometheus.Port)
	}

	var poller *collector.Poller
	if len(cfg.Telemetry.Scrape.Targets) > 0 {
		poller = collector.NewPoller(engine, cfg.Telemetry.Scrape.Interval)
		for service, endpoint := range cfg.Telemetry.Scrape.Targets {
			coll := collector.NewResilientCollector(collector.ResilientCollectorConfig{
				Collector: collector.NewHTTPCollector(collector.HTTPCollectorConfig{
					Endpoint: endpoint,
					Timeout:  cfg.Telemetry.Scrape.Timeout,
				}),
				MaxFailures: cfg.Resolution.CircuitBreaker.MaxFailures,
				Timeout:     cfg.Resolution.CircuitBreaker.Timeout,
			})
			poller.Register(service, coll)
		}
		poller.Start()
	}

	server := api.NewServer(cfg.API, cfg.WebSocket, db, engine, cfg.App.Mode)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		engine.Stop()
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown error: %v", err)
	}
	if poller != nil {
		poller.Stop()
	}
	engine.Stop()

	logger.Info("Server stopped gracefully")
	return nil
}
