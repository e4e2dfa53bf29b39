package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/autonomiq/opsengine/pkg/models"
)

func TestSeverity_Ordering(t *testing.T) {
	assert.Less(t, models.SeverityLow.Rank(), models.SeverityMedium.Rank())
	assert.Less(t, models.SeverityHigh.Rank(), models.SeverityCritical.Rank())
	assert.Less(t, models.SeverityCritical.Rank(), models.SeverityEmergency.Rank())

	assert.True(t, models.SeverityCritical.AtLeast(models.SeverityHigh))
	assert.True(t, models.SeverityHigh.AtLeast(models.SeverityHigh))
	assert.False(t, models.SeverityLow.AtLeast(models.SeverityMedium))
}

func TestSeverity_Escalate(t *testing.T) {
	tests := []struct {
		from models.Severity
		to   models.Severity
	}{
		{models.SeverityLow, models.SeverityMedium},
		{models.SeverityMedium, models.SeverityHigh},
		{models.SeverityHigh, models.SeverityCritical},
		{models.SeverityCritical, models.SeverityEmergency},
		{models.SeverityEmergency, models.SeverityEmergency},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.to, tt.from.Escalate())
	}
}

func TestAlert_DedupKey(t *testing.T) {
	a := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyCPUSaturation, models.SeverityHigh)
	b := models.NewAlert("checkout", models.MetricMemoryUsage, models.AnomalyCPUSaturation, models.SeverityHigh)
	c := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyCPUSaturation, models.SeverityCritical)

	// Metric does not participate in deduplication; severity does.
	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestIncident_Lifecycle(t *testing.T) {
	inc := models.NewIncident("checkout", models.IncidentHighCPU, models.SeverityHigh)

	assert.Equal(t, models.IncidentDetected, inc.Status)
	assert.Equal(t, "checkout|high_cpu_utilization", inc.Key())
	assert.False(t, inc.Status.IsTerminal())

	inc.Transition(models.IncidentResolving, "workflow started")
	inc.Transition(models.IncidentResolved, "verified")

	assert.True(t, inc.Status.IsTerminal())
	assert.NotNil(t, inc.ResolvedAt)
	assert.Len(t, inc.ResolutionHistory, 2)
	assert.Equal(t, models.IncidentResolving, inc.ResolutionHistory[0].Status)
}

func TestIncidentStatus_IsTerminal(t *testing.T) {
	assert.True(t, models.IncidentResolved.IsTerminal())
	assert.True(t, models.IncidentEscalated.IsTerminal())
	assert.True(t, models.IncidentFailed.IsTerminal())
	assert.False(t, models.IncidentDetected.IsTerminal())
	assert.False(t, models.IncidentClassifying.IsTerminal())
	assert.False(t, models.IncidentResolving.IsTerminal())
}

func TestScalingDecision(t *testing.T) {
	up := models.NewScalingDecision("checkout", 2, 5, models.ScaleUp, models.TriggerForecast)
	assert.Equal(t, 3, up.InstanceDelta())
	assert.True(t, up.ShouldExecute())
	assert.Equal(t, models.DefaultRollbackCriteria(), up.Rollback)

	hold := models.NewScalingDecision("checkout", 2, 2, models.ScaleMaintain, models.TriggerForecast)
	assert.Zero(t, hold.InstanceDelta())
	assert.False(t, hold.ShouldExecute())
}

func TestCapacityForecast(t *testing.T) {
	fc := &models.CapacityForecast{
		CurrentValue: 0.5,
		ForecastPoints: []models.ForecastPoint{
			{Time: time.Now(), Value: 0.6},
			{Time: time.Now().Add(time.Minute), Value: 0.9},
			{Time: time.Now().Add(2 * time.Minute), Value: 0.7},
		},
	}

	assert.Equal(t, 0.9, fc.PeakValue())
	assert.False(t, fc.WillExhaust())

	ttc := 10 * time.Minute
	fc.TimeToCapacity = &ttc
	assert.True(t, fc.WillExhaust())

	var nilForecast *models.CapacityForecast
	assert.False(t, nilForecast.WillExhaust())
}

func TestStatusForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.HealthStatus
	}{
		{100, models.HealthHealthy},
		{90, models.HealthHealthy},
		{75, models.HealthWarning},
		{60, models.HealthDegraded},
		{30, models.HealthCritical},
		{10, models.HealthDown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, models.StatusForScore(tt.score), "score %v", tt.score)
	}
}

func TestActionType_RollbackAction(t *testing.T) {
	assert.Equal(t, "scale_down_to_original", models.ActionScaleUp.RollbackAction())
	assert.Equal(t, "failback_to_primary", models.ActionFailover.RollbackAction())
	assert.Equal(t, "undo_apply_hotfix", models.ActionApplyHotfix.RollbackAction())
}

func TestResolutionWorkflow_RollbackPlan(t *testing.T) {
	wf := models.NewResolutionWorkflow("inc-1", []models.ActionType{
		models.ActionScaleUp,
		models.ActionClearCache,
	}, 0.8)

	assert.Equal(t, []string{"scale_down_to_original", "restore_cache_if_possible"}, wf.RollbackActions)
	assert.Equal(t, 0.8, wf.SuccessProbability)
}
