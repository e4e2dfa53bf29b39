package resolution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

// ActionExecutor carries out remediation actions against a service. The
// engine ships a simulated executor; real deployments plug in their own.
type ActionExecutor interface {
	Execute(ctx context.Context, serviceName string, action models.ActionType) (*models.ActionResult, error)
	Rollback(ctx context.Context, serviceName string, rollbackAction string) error
}

// actionEffects describes how a simulated action shifts service metrics:
// multipliers applied to the latest buffered value of each metric.
var actionEffects = map[models.ActionType]map[string]float64{
	models.ActionRestartService: {
		models.MetricCPUUsage:     0.5,
		models.MetricMemoryUsage:  0.4,
		models.MetricErrorRate:    0.3,
		models.MetricResponseTime: 0.6,
	},
	models.ActionScaleUp: {
		models.MetricCPUUsage:     0.6,
		models.MetricMemoryUsage:  0.7,
		models.MetricResponseTime: 0.7,
		models.MetricQueueDepth:   0.5,
	},
	models.ActionScaleDown: {
		models.MetricCPUUsage:    1.3,
		models.MetricMemoryUsage: 1.2,
	},
	models.ActionClearCache: {
		models.MetricMemoryUsage:  0.8,
		models.MetricResponseTime: 0.5,
	},
	models.ActionCircuitBreaker: {
		models.MetricErrorRate: 0.2,
	},
	models.ActionResetConnections: {
		models.MetricErrorRate:    0.5,
		models.MetricResponseTime: 0.7,
	},
	models.ActionFailover: {
		models.MetricErrorRate:    0.1,
		models.MetricResponseTime: 0.5,
	},
	models.ActionRollbackDeployment: {
		models.MetricErrorRate:    0.1,
		models.MetricResponseTime: 0.6,
	},
}

// SimulatedExecutor applies action effects to buffered telemetry so that
// verification sees the improvement. Failures can be injected per action
// for testing the rollback and escalation paths.
type SimulatedExecutor struct {
	buffer *telemetry.Buffer

	mu        sync.Mutex
	failures  map[models.ActionType]error
	critical  map[models.ActionType]bool
	executed  []models.ActionType
	rolledBck []string
}

func NewSimulatedExecutor(buffer *telemetry.Buffer) *SimulatedExecutor {
	return &SimulatedExecutor{
		buffer:   buffer,
		failures: make(map[models.ActionType]error),
		critical: make(map[models.ActionType]bool),
	}
}

// FailOn makes the given action fail; critical failures trigger workflow
// rollback.
func (s *SimulatedExecutor) FailOn(action models.ActionType, critical bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[action] = fmt.Errorf("simulated failure of %s", action)
	s.critical[action] = critical
}

func (s *SimulatedExecutor) Execute(ctx context.Context, serviceName string, action models.ActionType) (*models.ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	failure := s.failures[action]
	critical := s.critical[action]
	s.executed = append(s.executed, action)
	s.mu.Unlock()

	start := time.Now()
	if failure != nil {
		return &models.ActionResult{
			Success:         false,
			Error:           failure.Error(),
			CriticalFailure: critical,
			Duration:        time.Since(start),
		}, nil
	}

	s.applyEffects(serviceName, action)

	return &models.ActionResult{
		Success:  true,
		Details:  fmt.Sprintf("%s applied to %s", action, serviceName),
		Duration: time.Since(start),
	}, nil
}

func (s *SimulatedExecutor) Rollback(ctx context.Context, serviceName string, rollbackAction string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.rolledBck = append(s.rolledBck, rollbackAction)
	s.mu.Unlock()
	return nil
}

// Executed returns the actions run so far, in order.
func (s *SimulatedExecutor) Executed() []models.ActionType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ActionType, len(s.executed))
	copy(out, s.executed)
	return out
}

// RolledBack returns the compensating actions run so far, in order.
func (s *SimulatedExecutor) RolledBack() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.rolledBck))
	copy(out, s.rolledBck)
	return out
}

func (s *SimulatedExecutor) applyEffects(serviceName string, action models.ActionType) {
	effects, ok := actionEffects[action]
	if !ok || s.buffer == nil {
		return
	}
	now := time.Now()
	for metric, factor := range effects {
		values := s.buffer.Values(serviceName, metric, 1)
		if len(values) == 0 {
			continue
		}
		s.buffer.Append(models.MetricSample{
			ServiceName: serviceName,
			MetricName:  metric,
			Value:       values[0] * factor,
			Timestamp:   now,
		})
	}
}
