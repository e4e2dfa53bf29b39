package collector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

type MockCollector struct {
	mu           sync.Mutex
	services     map[string]bool
	baseValues   map[string]float64
	variance     float64
	shouldFail   bool
	failureError error
}

type MockCollectorConfig struct {
	BaseValues map[string]float64
	Variance   float64
}

func NewMockCollector(cfg MockCollectorConfig) *MockCollector {
	baseValues := cfg.BaseValues
	if len(baseValues) == 0 {
		baseValues = map[string]float64{
			models.MetricCPUUsage:     0.5,
			models.MetricMemoryUsage:  0.6,
			models.MetricErrorRate:    0.01,
			models.MetricResponseTime: 120,
			models.MetricThroughput:   200,
		}
	}

	variance := cfg.Variance
	if variance == 0 {
		variance = 0.05
	}

	return &MockCollector{
		services:   make(map[string]bool),
		baseValues: baseValues,
		variance:   variance,
	}
}

func (c *MockCollector) AddService(serviceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[serviceName] = true
}

func (c *MockCollector) SetBaseValue(metric string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseValues[metric] = value
}

func (c *MockCollector) SetShouldFail(shouldFail bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldFail = shouldFail
	c.failureError = err
}

func (c *MockCollector) Collect(ctx context.Context, serviceName string) (*models.MetricsSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shouldFail {
		if c.failureError != nil {
			return nil, c.failureError
		}
		return nil, ErrCollectionFailed
	}

	if !c.services[serviceName] {
		return nil, ErrServiceNotFound
	}

	snapshot := models.NewMetricsSnapshot(serviceName)
	snapshot.Timestamp = time.Now()
	for metric, base := range c.baseValues {
		value := base + (rand.Float64()*2-1)*c.variance*base
		if value < 0 {
			value = 0
		}
		snapshot.Set(metric, value)
	}

	return snapshot, nil
}

func (c *MockCollector) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldFail {
		return ErrCollectionFailed
	}
	return nil
}

func (c *MockCollector) Close() error {
	return nil
}
