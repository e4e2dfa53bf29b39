package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "simulator control port")
	target := flag.String("target", "http://localhost:8080/api/v1/telemetry", "engine telemetry endpoint")
	interval := flag.Duration("interval", time.Second, "emission interval")
	services := flag.String("services", "api-gateway,checkout,payments", "comma-separated services to simulate")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting telemetry simulator")

	sim := simulator.New(simulator.Config{
		Port:      *port,
		TargetURL: *target,
		Interval:  *interval,
	})

	for _, name := range strings.Split(*services, ",") {
		if name = strings.TrimSpace(name); name != "" {
			sim.GetOrCreateService(name)
		}
	}

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	return sim.Stop()
}
