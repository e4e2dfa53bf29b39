package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

func seedMetric(buffer *telemetry.Buffer, service, metric string, value float64, n int) {
	now := time.Now()
	for i := 0; i < n; i++ {
		buffer.Append(models.MetricSample{
			ServiceName: service,
			MetricName:  metric,
			Value:       value,
			Timestamp:   now.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestScorer_NoTelemetryIsDown(t *testing.T) {
	s := NewScorer(telemetry.NewBuffer(100))

	score := s.Compute("checkout")

	require.NotNil(t, score)
	assert.Equal(t, models.HealthDown, score.Status)
	assert.Zero(t, score.OverallScore)
}

func TestScorer_HealthyService(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	seedMetric(buffer, "checkout", models.MetricCPUUsage, 0.3, 10)
	seedMetric(buffer, "checkout", models.MetricMemoryUsage, 0.4, 10)
	seedMetric(buffer, "checkout", models.MetricResponseTime, 40, 10)
	seedMetric(buffer, "checkout", models.MetricErrorRate, 0.0005, 10)

	s := NewScorer(buffer)
	score := s.Compute("checkout")

	assert.Equal(t, models.HealthHealthy, score.Status)
	assert.Equal(t, 100.0, score.OverallScore)
	assert.Equal(t, 100.0, score.Subscores.Performance)
	assert.Equal(t, 100.0, score.Subscores.Resource)
}

func TestScorer_DegradedService(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	seedMetric(buffer, "checkout", models.MetricCPUUsage, 0.95, 10)
	seedMetric(buffer, "checkout", models.MetricErrorRate, 0.2, 10)

	s := NewScorer(buffer)
	score := s.Compute("checkout")

	assert.Equal(t, 40.0, score.Subscores.Resource)
	assert.Equal(t, 30.0, score.Subscores.Error)
	assert.Less(t, score.OverallScore, 75.0)
	assert.Equal(t, models.HealthDegraded, score.Status)
}

func TestScorer_AnomaliesReduceReliability(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	seedMetric(buffer, "checkout", models.MetricCPUUsage, 0.3, 10)

	s := NewScorer(buffer)
	clean := s.Compute("checkout")

	for i := 0; i < 5; i++ {
		s.RecordAnomaly("checkout", 0.9)
	}
	noisy := s.Compute("checkout")

	assert.Less(t, noisy.Subscores.Reliability, clean.Subscores.Reliability)
	assert.Less(t, noisy.OverallScore, clean.OverallScore)
	assert.Equal(t, 50.0, noisy.Subscores.Reliability)
}

func TestScorer_GetAndAll(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	seedMetric(buffer, "checkout", models.MetricCPUUsage, 0.3, 5)

	s := NewScorer(buffer)
	assert.Nil(t, s.Get("checkout"))

	computed := s.Compute("checkout")
	assert.Same(t, computed, s.Get("checkout"))
	assert.Len(t, s.All(), 1)
}

func TestScorer_RecomputeIsStable(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	seedMetric(buffer, "checkout", models.MetricCPUUsage, 0.6, 10)
	seedMetric(buffer, "checkout", models.MetricResponseTime, 150, 10)

	s := NewScorer(buffer)
	first := s.Compute("checkout")
	second := s.Compute("checkout")

	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Subscores, second.Subscores)
}
