package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func steadySeries(base float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = base + float64(i%5)*0.01
	}
	return values
}

func TestStatistical_Detect(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		expectAnomaly bool
	}{
		{
			name:          "steady series is not anomalous",
			values:        steadySeries(0.5, 30),
			expectAnomaly: false,
		},
		{
			name:          "spike far outside fence is anomalous",
			values:        append(steadySeries(0.5, 29), 5.0),
			expectAnomaly: true,
		},
		{
			name:          "drop far below fence is anomalous",
			values:        append(steadySeries(0.5, 29), -3.0),
			expectAnomaly: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewStatistical()

			result, err := d.Detect(Window{
				ServiceName: "checkout",
				MetricName:  models.MetricResponseTime,
				Values:      tt.values,
				End:         time.Now(),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectAnomaly, result.IsAnomaly)
			assert.GreaterOrEqual(t, result.Score, 0.0)
			assert.LessOrEqual(t, result.Score, 1.0)
			if tt.expectAnomaly {
				assert.Greater(t, result.Score, 0.5)
			}
		})
	}
}

func TestStatistical_ShortWindowIsDataQuality(t *testing.T) {
	d := NewStatistical()

	result, err := d.Detect(Window{
		ServiceName: "checkout",
		MetricName:  models.MetricCPUUsage,
		Values:      []float64{0.5, 0.6, 0.7},
	})

	require.NoError(t, err)
	assert.False(t, result.IsAnomaly)
	assert.Equal(t, models.AnomalyDataQualityIssue, result.Type)
	assert.Zero(t, result.Score)
}

func TestClassifyType(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 0.4 + float64(i)*0.02
	}

	tests := []struct {
		name     string
		metric   string
		values   []float64
		expected models.AnomalyType
	}{
		{
			name:     "monotonically rising memory is a leak",
			metric:   models.MetricMemoryUsage,
			values:   rising,
			expected: models.AnomalyMemoryLeak,
		},
		{
			name:     "flat memory is resource exhaustion",
			metric:   models.MetricMemoryUsage,
			values:   []float64{0.9, 0.9, 0.9, 0.9, 0.9},
			expected: models.AnomalyResourceExhaustion,
		},
		{
			name:     "sustained high cpu is saturation",
			metric:   models.MetricCPUUsage,
			values:   []float64{0.5, 0.6, 0.85, 0.9, 0.92, 0.95, 0.97},
			expected: models.AnomalyCPUSaturation,
		},
		{
			name:     "moderate cpu is degradation",
			metric:   models.MetricCPUUsage,
			values:   []float64{0.5, 0.55, 0.6, 0.6, 0.62},
			expected: models.AnomalyPerformanceDegradation,
		},
		{
			name:     "error rate maps to error spike",
			metric:   models.MetricErrorRate,
			values:   []float64{0.01, 0.02, 0.3},
			expected: models.AnomalyErrorSpike,
		},
		{
			name:     "throughput maps to throughput drop",
			metric:   models.MetricThroughput,
			values:   []float64{200, 180, 40},
			expected: models.AnomalyThroughputDrop,
		},
		{
			name:     "network timeouts map to network issues",
			metric:   "network_timeout_count",
			values:   []float64{0, 2, 8},
			expected: models.AnomalyNetworkIssues,
		},
		{
			name:     "empty window is a data quality issue",
			metric:   models.MetricCPUUsage,
			values:   nil,
			expected: models.AnomalyDataQualityIssue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyType(tt.metric, tt.values))
		})
	}
}

func TestComposite_FallsBackWhenEnsembleUnfitted(t *testing.T) {
	ensemble := NewEnsemble(3)
	composite := NewComposite(ensemble, NewStatistical())

	window := Window{
		ServiceName: "checkout",
		MetricName:  models.MetricResponseTime,
		Values:      append(steadySeries(100, 29), 900),
		End:         time.Now(),
	}

	result, err := composite.Detect(window)

	require.NoError(t, err)
	assert.True(t, result.IsAnomaly)
}
