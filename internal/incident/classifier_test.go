package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autonomiq/opsengine/pkg/models"
)

func snapshotWith(values map[string]float64) *models.MetricsSnapshot {
	snap := models.NewMetricsSnapshot("checkout")
	for metric, value := range values {
		snap.Set(metric, value)
	}
	return snap
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name             string
		values           map[string]float64
		baseline         float64
		relatedAlerts    int
		expectedType     models.IncidentType
		expectedSeverity models.Severity
		expectMatch      bool
	}{
		{
			name:             "critical cpu",
			values:           map[string]float64{models.MetricCPUUsage: 0.97},
			expectedType:     models.IncidentCriticalCPU,
			expectedSeverity: models.SeverityCritical,
			expectMatch:      true,
		},
		{
			name:             "critical memory",
			values:           map[string]float64{models.MetricMemoryUsage: 0.99},
			expectedType:     models.IncidentCriticalMemory,
			expectedSeverity: models.SeverityCritical,
			expectMatch:      true,
		},
		{
			name:             "critical beats high when both match",
			values:           map[string]float64{models.MetricCPUUsage: 0.97, models.MetricErrorRate: 0.2},
			expectedType:     models.IncidentCriticalCPU,
			expectedSeverity: models.SeverityCritical,
			expectMatch:      true,
		},
		{
			name:             "high cpu",
			values:           map[string]float64{models.MetricCPUUsage: 0.88},
			expectedType:     models.IncidentHighCPU,
			expectedSeverity: models.SeverityHigh,
			expectMatch:      true,
		},
		{
			name:             "high error rate",
			values:           map[string]float64{models.MetricErrorRate: 0.2},
			expectedType:     models.IncidentHighErrorRate,
			expectedSeverity: models.SeverityHigh,
			expectMatch:      true,
		},
		{
			name:             "resource contention",
			values:           map[string]float64{models.MetricCPUUsage: 0.82, models.MetricMemoryUsage: 0.82},
			expectedType:     models.IncidentResourceContention,
			expectedSeverity: models.SeverityMedium,
			expectMatch:      true,
		},
		{
			name:             "throughput collapse against baseline",
			values:           map[string]float64{models.MetricThroughput: 5},
			baseline:         200,
			expectedType:     models.IncidentThroughputDegraded,
			expectedSeverity: models.SeverityMedium,
			expectMatch:      true,
		},
		{
			name:        "no traffic and no baseline is not an incident",
			values:      map[string]float64{models.MetricThroughput: 5},
			expectMatch: false,
		},
		{
			name:             "alert pileup",
			values:           map[string]float64{models.MetricCPUUsage: 0.3},
			relatedAlerts:    4,
			expectedType:     models.IncidentMultipleAlerts,
			expectedSeverity: models.SeverityMedium,
			expectMatch:      true,
		},
		{
			name:             "slow response",
			values:           map[string]float64{models.MetricResponseTime: 2500},
			expectedType:     models.IncidentSlowResponseTime,
			expectedSeverity: models.SeverityLow,
			expectMatch:      true,
		},
		{
			name:             "queue buildup",
			values:           map[string]float64{models.MetricQueueDepth: 150},
			expectedType:     models.IncidentQueueBuildup,
			expectedSeverity: models.SeverityLow,
			expectMatch:      true,
		},
		{
			name:        "healthy snapshot matches nothing",
			values:      map[string]float64{models.MetricCPUUsage: 0.4, models.MetricErrorRate: 0.001},
			expectMatch: false,
		},
	}

	c := NewClassifier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incidentType, severity, ok := c.Classify(Observation{
				Snapshot:           snapshotWith(tt.values),
				ThroughputBaseline: tt.baseline,
				RelatedAlerts:      tt.relatedAlerts,
			})

			assert.Equal(t, tt.expectMatch, ok)
			if tt.expectMatch {
				assert.Equal(t, tt.expectedType, incidentType)
				assert.Equal(t, tt.expectedSeverity, severity)
			}
		})
	}
}

func TestClassifier_NilSnapshot(t *testing.T) {
	c := NewClassifier(nil)

	_, _, ok := c.Classify(Observation{})
	assert.False(t, ok)
}

func TestClassifier_ClassifyAlert(t *testing.T) {
	c := NewClassifier(nil)

	alert := models.NewAlert("checkout", models.MetricMemoryUsage, models.AnomalyMemoryLeak, models.SeverityHigh)
	incidentType, severity, ok := c.ClassifyAlert(alert, Observation{Snapshot: snapshotWith(nil)})

	assert.True(t, ok)
	assert.Equal(t, models.IncidentMemoryLeak, incidentType)
	assert.Equal(t, models.SeverityHigh, severity)
}

func TestClassifier_ClassifyAlert_FallsBackToThresholds(t *testing.T) {
	c := NewClassifier(nil)

	alert := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyDataQualityIssue, models.SeverityLow)
	obs := Observation{Snapshot: snapshotWith(map[string]float64{models.MetricCPUUsage: 0.97})}

	incidentType, severity, ok := c.ClassifyAlert(alert, obs)

	assert.True(t, ok)
	assert.Equal(t, models.IncidentCriticalCPU, incidentType)
	assert.Equal(t, models.SeverityCritical, severity)
}

type fixedConfidence struct{ value float64 }

func (f fixedConfidence) Confidence(models.IncidentType, *models.MetricsSnapshot) float64 {
	return f.value
}

func TestClassifier_ConfidenceFor(t *testing.T) {
	assert.Equal(t, ruleConfidence, NewClassifier(nil).ConfidenceFor(models.IncidentHighCPU, nil))
	assert.Equal(t, 0.95, NewClassifier(fixedConfidence{0.95}).ConfidenceFor(models.IncidentHighCPU, nil))
}
