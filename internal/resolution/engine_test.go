package resolution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/internal/incident"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

type testHarness struct {
	engine   *Engine
	buffer   *telemetry.Buffer
	executor *SimulatedExecutor
	manager  *incident.Manager
	kb       *incident.KnowledgeBase
}

func newHarness(cfg Config) *testHarness {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Millisecond
	}
	buffer := telemetry.NewBuffer(100)
	executor := NewSimulatedExecutor(buffer)
	kb := incident.NewKnowledgeBase()
	manager := incident.NewManager(incident.NewClassifier(nil), incident.NewPlanner(kb, nil, 3))
	return &testHarness{
		engine:   NewEngine(cfg, buffer, executor, manager, kb),
		buffer:   buffer,
		executor: executor,
		manager:  manager,
		kb:       kb,
	}
}

func (h *testHarness) seed(metric string, value float64) {
	h.buffer.Append(models.MetricSample{
		ServiceName: "checkout",
		MetricName:  metric,
		Value:       value,
		Timestamp:   time.Now(),
	})
}

// highCPUIncident estimates a success probability of 0.4: base 0.5 with the
// high-severity penalty. Tests that need the workflow to run set the
// threshold at or below that.
func highCPUIncident(confidence float64) *models.Incident {
	inc := models.NewIncident("checkout", models.IncidentHighCPU, models.SeverityHigh)
	inc.ClassificationConfidence = confidence
	inc.RecommendedActions = []models.ActionType{models.ActionScaleUp}
	return inc
}

func TestResolve_SuccessfulWorkflow(t *testing.T) {
	h := newHarness(Config{Enabled: true, ConfidenceThreshold: 0.4})
	h.seed(models.MetricCPUUsage, 0.9)

	inc := highCPUIncident(0.9)
	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Escalated)
	assert.Equal(t, []string{string(models.ActionScaleUp)}, result.ActionsExecuted)
	assert.Equal(t, models.IncidentResolved, inc.Status)
	assert.NotNil(t, inc.ResolvedAt)

	// The simulated scale-up dropped CPU below the verification threshold.
	assert.Less(t, h.buffer.Latest("checkout").Get(models.MetricCPUUsage), 0.8)

	// Verified success feeds the knowledge base.
	assert.Equal(t, []models.ActionType{models.ActionScaleUp}, h.kb.Actions(models.IncidentHighCPU))

	workflows := h.engine.Workflows()
	require.Len(t, workflows, 1)
	assert.NotNil(t, workflows[0].CompletedAt)
}

func TestResolve_DisabledEscalates(t *testing.T) {
	h := newHarness(Config{Enabled: false})

	inc := highCPUIncident(0.9)
	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.True(t, result.RequireHumanReview)
	assert.Equal(t, models.IncidentEscalated, inc.Status)
	assert.Empty(t, h.executor.Executed())
}

func TestResolve_LowSuccessProbabilityEscalates(t *testing.T) {
	h := newHarness(Config{Enabled: true, ConfidenceThreshold: 0.7})

	// The high-severity single-action plan estimates 0.4, well under the
	// threshold, so the workflow never starts.
	inc := highCPUIncident(0.9)
	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Contains(t, inc.EscalationReason, "probability")
	assert.Equal(t, models.IncidentEscalated, inc.Status)
	assert.Empty(t, h.executor.Executed())
}

func TestResolve_HighClassificationConfidenceDoesNotBypassGate(t *testing.T) {
	h := newHarness(Config{Enabled: true})
	h.seed(models.MetricCPUUsage, 0.9)

	// Medium severity with a three-action plan estimates 0.5. Even a very
	// confident classification must not start a workflow under the default
	// 0.7 threshold.
	inc := models.NewIncident("checkout", models.IncidentHighCPU, models.SeverityMedium)
	inc.ClassificationConfidence = 0.9
	inc.RecommendedActions = []models.ActionType{
		models.ActionScaleUp, models.ActionRestartService, models.ActionClearCache,
	}

	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.True(t, result.Escalated)
	assert.Equal(t, models.IncidentEscalated, inc.Status)
	assert.Empty(t, h.executor.Executed())
	assert.Empty(t, inc.AttemptedActions)
}

func TestResolve_StopsAfterVerifyingAction(t *testing.T) {
	h := newHarness(Config{Enabled: true})
	h.seed(models.MetricCPUUsage, 0.9)

	inc := models.NewIncident("checkout", models.IncidentHighCPU, models.SeverityLow)
	inc.ClassificationConfidence = 0.9
	inc.RecommendedActions = []models.ActionType{
		models.ActionScaleUp, models.ActionRestartService, models.ActionClearCache,
	}

	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.IncidentResolved, inc.Status)

	// Scale-up alone brought CPU under the verification threshold, so the
	// remaining planned actions never ran.
	assert.Equal(t, []models.ActionType{models.ActionScaleUp}, h.executor.Executed())
	assert.Equal(t, []string{string(models.ActionScaleUp)}, result.ActionsExecuted)
	assert.Equal(t, []models.ActionType{models.ActionScaleUp}, inc.AttemptedActions)
}

func TestResolve_CriticalFailureRollsBack(t *testing.T) {
	h := newHarness(Config{Enabled: true, ConfidenceThreshold: 0.4})
	h.seed(models.MetricCPUUsage, 0.9)
	h.executor.FailOn(models.ActionScaleUp, true)

	inc := highCPUIncident(0.9)
	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.Escalated)
	assert.Equal(t, models.IncidentFailed, inc.Status)
	assert.Equal(t, []string{models.ActionScaleUp.RollbackAction()}, h.executor.RolledBack())
}

func TestResolve_UnverifiedOutcomeFails(t *testing.T) {
	h := newHarness(Config{Enabled: true, ConfidenceThreshold: 0.4})
	h.seed(models.MetricCPUUsage, 0.9)
	// Non-critical failure: the workflow finishes but CPU never drops.
	h.executor.FailOn(models.ActionScaleUp, false)

	inc := highCPUIncident(0.9)
	result, err := h.engine.Resolve(context.Background(), inc)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.Escalated)
	assert.Equal(t, models.IncidentFailed, inc.Status)
	assert.NotEmpty(t, inc.EscalationReason)
	assert.Empty(t, h.executor.RolledBack())
}

func TestResolve_ConcurrencyCap(t *testing.T) {
	h := newHarness(Config{Enabled: true, MaxConcurrent: 1, ConfidenceThreshold: 0.4})

	require.NoError(t, h.engine.acquire("incident-1"))

	_, err := h.engine.Resolve(context.Background(), highCPUIncident(0.9))
	assert.ErrorIs(t, err, ErrTooManyWorkflows)

	h.engine.release("incident-1")
}

func TestResolve_DuplicateWorkflowRejected(t *testing.T) {
	h := newHarness(Config{Enabled: true, ConfidenceThreshold: 0.4})

	inc := highCPUIncident(0.9)
	require.NoError(t, h.engine.acquire(inc.ID))

	_, err := h.engine.Resolve(context.Background(), inc)
	assert.ErrorIs(t, err, ErrResolutionInProgress)

	h.engine.release(inc.ID)
}

func TestSimulatedExecutor_AppliesEffects(t *testing.T) {
	buffer := telemetry.NewBuffer(10)
	buffer.Append(models.MetricSample{
		ServiceName: "checkout",
		MetricName:  models.MetricMemoryUsage,
		Value:       1.0,
		Timestamp:   time.Now(),
	})
	executor := NewSimulatedExecutor(buffer)

	result, err := executor.Execute(context.Background(), "checkout", models.ActionClearCache)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.InDelta(t, 0.8, buffer.Latest("checkout").Get(models.MetricMemoryUsage), 1e-9)
}

func TestSimulatedExecutor_ContextCancelled(t *testing.T) {
	executor := NewSimulatedExecutor(telemetry.NewBuffer(10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executor.Execute(ctx, "checkout", models.ActionRestartService)
	assert.ErrorIs(t, err, context.Canceled)
}
