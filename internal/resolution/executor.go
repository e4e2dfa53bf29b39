package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/incident"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/resilience"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

var (
	// ErrResolutionInProgress means a workflow is already running for the
	// incident.
	ErrResolutionInProgress = errors.New("resolution already in progress for incident")
	// ErrTooManyWorkflows means the concurrent workflow cap is reached.
	ErrTooManyWorkflows = errors.New("maximum concurrent workflows reached")
)

const (
	DefaultConfidenceThreshold = 0.7
	DefaultMaxConcurrent       = 5
	DefaultActionTimeout       = 30 * time.Second
	DefaultSettleDelay         = 2 * time.Second
	DefaultWorkflowRetention   = time.Hour
)

type Config struct {
	Enabled             bool
	ConfidenceThreshold float64
	MaxConcurrent       int
	ActionTimeout       time.Duration
	SettleDelay         time.Duration
	WorkflowRetention   time.Duration
	BreakerMaxFailures  int
	BreakerTimeout      time.Duration
}

// Engine runs resolution workflows: one at a time per incident, a bounded
// number in flight overall, each action behind a per-service circuit
// breaker.
type Engine struct {
	cfg      Config
	buffer   *telemetry.Buffer
	executor ActionExecutor
	manager  *incident.Manager
	kb       *incident.KnowledgeBase

	mu        sync.Mutex
	inFlight  map[string]bool
	breakers  map[string]*resilience.CircuitBreaker
	completed []*models.ResolutionWorkflow
	sem       chan struct{}
}

func NewEngine(cfg Config, buffer *telemetry.Buffer, executor ActionExecutor, manager *incident.Manager, kb *incident.KnowledgeBase) *Engine {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultActionTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.WorkflowRetention <= 0 {
		cfg.WorkflowRetention = DefaultWorkflowRetention
	}
	return &Engine{
		cfg:      cfg,
		buffer:   buffer,
		executor: executor,
		manager:  manager,
		kb:       kb,
		inFlight: make(map[string]bool),
		breakers: make(map[string]*resilience.CircuitBreaker),
		sem:      make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Resolve runs the full resolution workflow for an incident and closes it
// with a terminal status. A success probability below the confidence
// threshold and disabled auto-resolution both short-circuit to escalation
// before any action runs.
func (e *Engine) Resolve(ctx context.Context, inc *models.Incident) (*models.ResolutionResult, error) {
	if !e.cfg.Enabled {
		return e.escalate(inc, nil, "auto-resolution disabled"), nil
	}
	probability := incident.SuccessProbability(inc, inc.RecommendedActions)
	if probability < e.cfg.ConfidenceThreshold {
		reason := fmt.Sprintf("success probability %.2f below confidence threshold %.2f",
			probability, e.cfg.ConfidenceThreshold)
		return e.escalate(inc, nil, reason), nil
	}

	if err := e.acquire(inc.ID); err != nil {
		return nil, err
	}
	defer e.release(inc.ID)

	workflow := models.NewResolutionWorkflow(inc.ID, inc.RecommendedActions, probability)
	now := time.Now()
	workflow.StartedAt = &now

	inc.Transition(models.IncidentResolving, fmt.Sprintf("executing workflow %s", workflow.ID))
	logger.WithIncident(inc.ID).Infof(
		"Starting resolution workflow %s: actions=%v probability=%.2f",
		workflow.ID, workflow.Actions, probability,
	)

	aborted, verified := e.runActions(ctx, inc, workflow)

	done := time.Now()
	workflow.CompletedAt = &done
	e.retain(workflow)

	result := e.buildResult(inc, workflow, verified)

	switch {
	case verified:
		e.kb.Record(inc.Type, successfulActions(workflow))
		e.manager.Close(inc, models.IncidentResolved, "resolution verified")
	case aborted:
		e.manager.Close(inc, models.IncidentFailed, "critical action failure, rolled back")
	default:
		reason := "resolution actions did not restore service health"
		result.Impact.EscalationReason = reason
		inc.EscalationReason = reason
		if inc.Severity.AtLeast(models.SeverityCritical) {
			notifyEscalation(inc, reason)
		}
		e.manager.Close(inc, models.IncidentFailed, reason)
	}

	return result, nil
}

// runActions executes the plan sequentially, checking service health after
// each successful action. Once one action verifies, the rest of the plan is
// skipped. aborted means a critical failure forced a rollback.
func (e *Engine) runActions(ctx context.Context, inc *models.Incident, workflow *models.ResolutionWorkflow) (aborted, verified bool) {
	for i, action := range workflow.Actions {
		workflow.CurrentStep = i
		before := e.buffer.Latest(inc.ServiceName).Values

		result, err := e.executeWithRetry(ctx, inc.ServiceName, action)
		if err != nil {
			result = &models.ActionResult{Success: false, Error: err.Error()}
		}

		inc.AttemptedActions = append(inc.AttemptedActions, action)

		if result.Success {
			e.settle(ctx)
		}
		after := e.buffer.Latest(inc.ServiceName).Values

		workflow.ExecutionLog = append(workflow.ExecutionLog, models.ExecutionLogEntry{
			Action:        string(action),
			Timestamp:     time.Now(),
			Success:       result.Success,
			Details:       result.Details,
			Error:         result.Error,
			MetricsBefore: before,
			MetricsAfter:  after,
		})

		if !result.Success {
			logger.WithIncident(inc.ID).Warnf("Action %s failed: %s", action, result.Error)
			if result.CriticalFailure {
				e.rollback(ctx, inc, workflow, i)
				return true, false
			}
			continue
		}

		if e.verify(inc) {
			return false, true
		}
	}
	return false, false
}

func (e *Engine) executeWithRetry(ctx context.Context, serviceName string, action models.ActionType) (*models.ActionResult, error) {
	result, err := e.executeOnce(ctx, serviceName, action)
	if err != nil && ctx.Err() == nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		logger.WithService(serviceName).Warnf("Retrying action %s after error: %v", action, err)
		result, err = e.executeOnce(ctx, serviceName, action)
	}
	return result, err
}

func (e *Engine) executeOnce(ctx context.Context, serviceName string, action models.ActionType) (*models.ActionResult, error) {
	actionCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()

	var result *models.ActionResult
	err := e.breaker(serviceName).Execute(func() error {
		var execErr error
		result, execErr = e.executor.Execute(actionCtx, serviceName, action)
		return execErr
	})
	return result, err
}

// rollback runs compensating actions in reverse order, starting from the
// step that failed.
func (e *Engine) rollback(ctx context.Context, inc *models.Incident, workflow *models.ResolutionWorkflow, failedStep int) {
	logger.WithIncident(inc.ID).Errorf("Critical failure at step %d, rolling back", failedStep)
	for i := failedStep; i >= 0; i-- {
		rollbackAction := workflow.RollbackActions[i]
		if err := e.executor.Rollback(ctx, inc.ServiceName, rollbackAction); err != nil {
			logger.WithIncident(inc.ID).Errorf("Rollback %s failed: %v", rollbackAction, err)
			continue
		}
		workflow.ExecutionLog = append(workflow.ExecutionLog, models.ExecutionLogEntry{
			Action:    rollbackAction,
			Timestamp: time.Now(),
			Success:   true,
			Details:   "rollback",
		})
	}
}

// verify checks the incident-type predicate against the latest snapshot.
// Types without a predicate verify by the absence of the triggering
// condition being unknowable, so they pass.
func (e *Engine) verify(inc *models.Incident) bool {
	snap := e.buffer.Latest(inc.ServiceName)
	typeName := string(inc.Type)

	switch {
	case strings.Contains(typeName, "cpu"):
		return snap.Get(models.MetricCPUUsage) < 0.8
	case strings.Contains(typeName, "memory"):
		return snap.Get(models.MetricMemoryUsage) < 0.85
	case strings.Contains(typeName, "error"):
		return snap.Get(models.MetricErrorRate) < 0.05
	case strings.Contains(typeName, "response") || strings.Contains(typeName, "slow"):
		return snap.Get(models.MetricResponseTime) < 2000
	}
	return true
}

func (e *Engine) buildResult(inc *models.Incident, workflow *models.ResolutionWorkflow, success bool) *models.ResolutionResult {
	executed := make([]string, 0, len(workflow.ExecutionLog))
	for _, entry := range workflow.ExecutionLog {
		executed = append(executed, entry.Action)
	}

	var resolutionTime time.Duration
	if workflow.StartedAt != nil && workflow.CompletedAt != nil {
		resolutionTime = workflow.CompletedAt.Sub(*workflow.StartedAt)
	}

	return &models.ResolutionResult{
		WorkflowID:         workflow.ID,
		IncidentID:         inc.ID,
		Success:            success,
		ActionsExecuted:    executed,
		ResolutionTime:     resolutionTime,
		ConfidenceScore:    workflow.SuccessProbability,
		Impact:             assessImpact(workflow),
		LessonsLearned:     lessonsLearned(workflow, resolutionTime, success),
		RequireHumanReview: !success || len(workflow.Actions) > 2,
	}
}

// escalate closes the incident without running any actions.
func (e *Engine) escalate(inc *models.Incident, workflow *models.ResolutionWorkflow, reason string) *models.ResolutionResult {
	inc.EscalationReason = reason
	notifyEscalation(inc, reason)
	e.manager.Close(inc, models.IncidentEscalated, reason)

	result := &models.ResolutionResult{
		IncidentID:         inc.ID,
		Escalated:          true,
		RequireHumanReview: true,
		Impact:             models.ImpactAssessment{EscalationReason: reason},
	}
	if workflow != nil {
		result.WorkflowID = workflow.ID
	}
	return result
}

func (e *Engine) settle(ctx context.Context) {
	select {
	case <-time.After(e.cfg.SettleDelay):
	case <-ctx.Done():
	}
}

func (e *Engine) acquire(incidentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight[incidentID] {
		return ErrResolutionInProgress
	}
	select {
	case e.sem <- struct{}{}:
	default:
		return ErrTooManyWorkflows
	}
	e.inFlight[incidentID] = true
	return nil
}

func (e *Engine) release(incidentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, incidentID)
	<-e.sem
}

func (e *Engine) breaker(serviceName string) *resilience.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	cb, ok := e.breakers[serviceName]
	if !ok {
		cb = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "resolution-" + serviceName,
			MaxFailures: e.cfg.BreakerMaxFailures,
			Timeout:     e.cfg.BreakerTimeout,
		})
		e.breakers[serviceName] = cb
	}
	return cb
}

// retain stores the completed workflow and drops ones older than the
// retention window.
func (e *Engine) retain(workflow *models.ResolutionWorkflow) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-e.cfg.WorkflowRetention)
	kept := e.completed[:0]
	for _, w := range e.completed {
		if w.CompletedAt != nil && w.CompletedAt.After(cutoff) {
			kept = append(kept, w)
		}
	}
	e.completed = append(kept, workflow)
}

// Workflows returns retained completed workflows, oldest first.
func (e *Engine) Workflows() []*models.ResolutionWorkflow {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.ResolutionWorkflow, len(e.completed))
	copy(out, e.completed)
	return out
}

func successfulActions(workflow *models.ResolutionWorkflow) []models.ActionType {
	var out []models.ActionType
	for _, entry := range workflow.ExecutionLog {
		if !entry.Success {
			continue
		}
		for _, a := range workflow.Actions {
			if string(a) == entry.Action {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
