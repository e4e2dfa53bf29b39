package collector

import (
	"context"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/resilience"
	"github.com/autonomiq/opsengine/pkg/models"
)

// ResilientCollector wraps another collector with retries and a circuit
// breaker so a flapping metrics source cannot stall the scrape loop.
type ResilientCollector struct {
	collector      Collector
	circuitBreaker *resilience.CircuitBreaker
	retryAttempts  int
	retryDelay     time.Duration
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "collector",
		MaxFailures:   cfg.MaxFailures,
		Timeout:       cfg.Timeout,
		OnStateChange: cfg.OnStateChange,
	})

	return &ResilientCollector{
		collector:      cfg.Collector,
		circuitBreaker: cb,
		retryAttempts:  cfg.RetryAttempts,
		retryDelay:     cfg.RetryDelay,
	}
}

func (c *ResilientCollector) Collect(ctx context.Context, serviceName string) (*models.MetricsSnapshot, error) {
	var snapshot *models.MetricsSnapshot
	var lastErr error

	err := c.circuitBreaker.Execute(func() error {
		for attempt := 1; attempt <= c.retryAttempts; attempt++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			var err error
			snapshot, err = c.collector.Collect(ctx, serviceName)
			if err == nil {
				return nil
			}

			lastErr = err
			logger.WithService(serviceName).Warnf(
				"Collection attempt %d/%d failed: %v",
				attempt, c.retryAttempts, err,
			)

			if attempt < c.retryAttempts {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
		}
		return lastErr
	})

	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (c *ResilientCollector) HealthCheck(ctx context.Context) error {
	return c.collector.HealthCheck(ctx)
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}

func (c *ResilientCollector) ResetCircuit() {
	c.circuitBreaker.Reset()
}
