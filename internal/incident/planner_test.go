package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func incidentWith(incidentType models.IncidentType, severity models.Severity, values map[string]float64) *models.Incident {
	inc := models.NewIncident("checkout", incidentType, severity)
	inc.Metrics = snapshotWith(values)
	return inc
}

func TestPlanner_UsesKnowledgeBasePattern(t *testing.T) {
	p := NewPlanner(NewKnowledgeBase(), nil, 3)

	inc := incidentWith(models.IncidentMemoryLeak, models.SeverityHigh, nil)
	plan := p.Plan(inc)

	require.NotEmpty(t, plan)
	assert.Contains(t, plan, models.ActionRestartService)
	assert.Contains(t, plan, models.ActionClearCache)
}

func TestPlanner_PlanIsBoundedAndDeduped(t *testing.T) {
	p := NewPlanner(NewKnowledgeBase(), nil, 2)

	inc := incidentWith(models.IncidentResourceContention, models.SeverityMedium, map[string]float64{
		models.MetricCPUUsage:     0.9,
		models.MetricMemoryUsage:  0.95,
		models.MetricResponseTime: 4000,
	})
	plan := p.Plan(inc)

	assert.LessOrEqual(t, len(plan), 2)
	seen := make(map[models.ActionType]bool)
	for _, a := range plan {
		assert.False(t, seen[a], "duplicate action %s", a)
		seen[a] = true
	}
}

func TestPlanner_RecentDeploymentPrefersRollback(t *testing.T) {
	p := NewPlanner(NewKnowledgeBase(), nil, 5)

	inc := incidentWith(models.IncidentElevatedErrorRate, models.SeverityMedium, map[string]float64{
		models.MetricErrorRate: 0.2,
	})
	inc.Context.RecentDeployments = []string{"checkout-v42"}

	plan := p.Plan(inc)
	assert.Contains(t, plan, models.ActionRollbackDeployment)
}

func TestPlanner_CriticalFallbackSequence(t *testing.T) {
	kb := NewKnowledgeBase()
	p := NewPlanner(kb, nil, 5)

	// No KB pattern, no rule hits: fall back to the critical sequence.
	inc := incidentWith(models.IncidentDiskSpaceCritical, models.SeverityCritical, nil)
	plan := p.Plan(inc)

	assert.ElementsMatch(t, kb.CriticalIncidentSequence, plan)
	// Failover leads under the critical priority ordering.
	assert.Equal(t, models.ActionFailover, plan[0])
}

type stubRecommender struct {
	suggestions []ScoredAction
}

func (s stubRecommender) Recommend(*models.Incident) []ScoredAction {
	return s.suggestions
}

func TestPlanner_RecommenderFiltersLowScores(t *testing.T) {
	rec := stubRecommender{suggestions: []ScoredAction{
		{Action: models.ActionFailover, Score: 0.9},
		{Action: models.ActionGracefulShutdown, Score: 0.1},
	}}
	p := NewPlanner(NewKnowledgeBase(), rec, 5)

	inc := incidentWith(models.IncidentDiskSpaceCritical, models.SeverityHigh, nil)
	plan := p.Plan(inc)

	assert.Contains(t, plan, models.ActionFailover)
	assert.NotContains(t, plan, models.ActionGracefulShutdown)
}

func TestSuccessProbability(t *testing.T) {
	tests := []struct {
		name     string
		incident *models.Incident
		actions  []models.ActionType
		check    func(t *testing.T, p float64)
	}{
		{
			name:     "low severity easy type is optimistic",
			incident: incidentWith(models.IncidentQueueBuildup, models.SeverityLow, nil),
			actions:  []models.ActionType{models.ActionScaleUp},
			check: func(t *testing.T, p float64) {
				assert.Greater(t, p, 0.7)
			},
		},
		{
			name:     "critical hard type is pessimistic",
			incident: incidentWith(models.IncidentMemoryLeak, models.SeverityCritical, nil),
			actions:  []models.ActionType{models.ActionRestartService, models.ActionClearCache, models.ActionScaleUp},
			check: func(t *testing.T, p float64) {
				assert.Less(t, p, 0.3)
			},
		},
		{
			name:     "rollback with recent deployment helps",
			incident: incidentWith(models.IncidentHighErrorRate, models.SeverityHigh, nil),
			actions:  []models.ActionType{models.ActionRollbackDeployment},
			check: func(t *testing.T, p float64) {
				base := SuccessProbability(
					incidentWith(models.IncidentHighErrorRate, models.SeverityHigh, nil),
					[]models.ActionType{models.ActionRestartService},
				)
				assert.Less(t, p, base+0.01) // no deployment recorded, no bonus
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SuccessProbability(tt.incident, tt.actions)
			assert.GreaterOrEqual(t, p, 0.1)
			assert.LessOrEqual(t, p, 0.9)
			tt.check(t, p)
		})
	}
}

func TestSuccessProbability_DeploymentBonus(t *testing.T) {
	inc := incidentWith(models.IncidentHighErrorRate, models.SeverityHigh, nil)
	without := SuccessProbability(inc, []models.ActionType{models.ActionRollbackDeployment})

	inc.Context.RecentDeployments = []string{"checkout-v42"}
	with := SuccessProbability(inc, []models.ActionType{models.ActionRollbackDeployment})

	assert.Greater(t, with, without)
}

func TestKnowledgeBase_Record(t *testing.T) {
	kb := NewKnowledgeBase()

	kb.Record(models.IncidentNetworkTimeout, []models.ActionType{models.ActionFailover})
	assert.Equal(t, []models.ActionType{models.ActionFailover}, kb.Actions(models.IncidentNetworkTimeout))

	// Empty recordings are ignored.
	kb.Record(models.IncidentNetworkTimeout, nil)
	assert.Equal(t, []models.ActionType{models.ActionFailover}, kb.Actions(models.IncidentNetworkTimeout))
}
