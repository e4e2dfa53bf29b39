package scaling

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
)

var (
	ErrScalingFailed = errors.New("scaling operation failed")
	ErrInvalidTarget = errors.New("invalid target instance count")
)

// ScaleResult contains the outcome of applying one scaling decision.
type ScaleResult struct {
	ServiceName       string
	PreviousInstances int
	Instances         int
	Success           bool
}

// InstanceScaler applies scaling decisions to actual capacity.
type InstanceScaler interface {
	// ScaleTo moves the service to the target instance count
	ScaleTo(ctx context.Context, serviceName string, target int) (*ScaleResult, error)

	// Instances reports the current instance count for a service
	Instances(serviceName string) int

	// Close releases resources
	Close() error
}

// SimulatedScaler tracks instance counts in memory and applies changes
// after a simulated provisioning delay.
type SimulatedScaler struct {
	provisionTime time.Duration
	mu            sync.Mutex
	instances     map[string]int
}

type SimulatedScalerConfig struct {
	ProvisionTime   time.Duration
	InitialCapacity map[string]int
}

func NewSimulatedScaler(cfg SimulatedScalerConfig) *SimulatedScaler {
	instances := make(map[string]int)
	for service, count := range cfg.InitialCapacity {
		instances[service] = count
	}

	return &SimulatedScaler{
		provisionTime: cfg.ProvisionTime,
		instances:     instances,
	}
}

func (s *SimulatedScaler) ScaleTo(ctx context.Context, serviceName string, target int) (*ScaleResult, error) {
	if target <= 0 {
		return nil, ErrInvalidTarget
	}

	s.mu.Lock()
	previous := s.instances[serviceName]
	if previous == 0 {
		previous = 1
	}
	s.mu.Unlock()

	if s.provisionTime > 0 && target > previous {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.provisionTime):
		}
	}

	s.mu.Lock()
	s.instances[serviceName] = target
	s.mu.Unlock()

	logger.WithService(serviceName).Infof("Scaled from %d to %d instances", previous, target)

	return &ScaleResult{
		ServiceName:       serviceName,
		PreviousInstances: previous,
		Instances:         target,
		Success:           true,
	}, nil
}

func (s *SimulatedScaler) Instances(serviceName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.instances[serviceName]
	if count == 0 {
		count = 1
	}
	return count
}

func (s *SimulatedScaler) Close() error {
	return nil
}
