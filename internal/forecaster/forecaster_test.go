package forecaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func risingSeries(start, step float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return values
}

func TestForecaster_Predict_ModelSelection(t *testing.T) {
	f := New(Config{})

	tests := []struct {
		name          string
		values        []float64
		expectedModel string
		expectErr     error
	}{
		{
			name:      "too few points",
			values:    risingSeries(0.3, 0.02, 5),
			expectErr: ErrInsufficientData,
		},
		{
			name:          "short series uses linear regression",
			values:        risingSeries(0.3, 0.02, 15),
			expectedModel: "linear",
		},
		{
			name:          "long series uses holt smoothing",
			values:        risingSeries(0.3, 0.01, 40),
			expectedModel: "holt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := f.Predict(tt.values, time.Now())

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedModel, pred.Model)
			assert.Len(t, pred.Points, f.Horizon())
			assert.Len(t, pred.Intervals, f.Horizon())
			assert.Greater(t, pred.GrowthRate, 0.0)
			assert.GreaterOrEqual(t, pred.Confidence, 0.1)
			assert.LessOrEqual(t, pred.Confidence, 0.95)
		})
	}
}

func TestForecaster_Predict_ProjectsTrend(t *testing.T) {
	f := New(Config{Horizon: 10})

	pred, err := f.Predict(risingSeries(0.3, 0.02, 15), time.Now())
	require.NoError(t, err)

	last := 0.3 + 14*0.02
	for i, p := range pred.Points {
		assert.Greater(t, p.Value, last, "point %d should continue the rise", i)
		last = p.Value
	}
}

func TestCapacityLimit(t *testing.T) {
	tests := []struct {
		name       string
		metric     string
		current    float64
		configured map[string]float64
		expected   float64
	}{
		{
			name:       "configured limit wins",
			metric:     models.MetricQueueDepth,
			current:    50,
			configured: map[string]float64{models.MetricQueueDepth: 500},
			expected:   500,
		},
		{
			name:     "ratio metric defaults to one",
			metric:   models.MetricCPUUsage,
			current:  0.6,
			expected: 1.0,
		},
		{
			name:     "usage suffix defaults to one",
			metric:   "heap_usage",
			current:  0.4,
			expected: 1.0,
		},
		{
			name:     "unbounded metric infers twice current",
			metric:   models.MetricResponseTime,
			current:  150,
			expected: 300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CapacityLimit(tt.metric, tt.current, tt.configured))
		})
	}
}

func TestForecastCapacity_DetectsExhaustion(t *testing.T) {
	f := New(Config{Horizon: 15})

	fc, err := f.ForecastCapacity("checkout", models.MetricCPUUsage, risingSeries(0.3, 0.03, 15), nil)
	require.NoError(t, err)

	assert.True(t, fc.WillExhaust())
	require.NotNil(t, fc.TimeToCapacity)
	assert.Greater(t, *fc.TimeToCapacity, time.Duration(0))
	assert.Equal(t, 1.0, fc.CapacityLimit)
	assert.Equal(t, "checkout", fc.ServiceName)
}

func TestForecastCapacity_StableSeriesDoesNotExhaust(t *testing.T) {
	f := New(Config{Horizon: 15})

	fc, err := f.ForecastCapacity("checkout", models.MetricCPUUsage, risingSeries(0.2, 0.001, 15), nil)
	require.NoError(t, err)

	assert.False(t, fc.WillExhaust())
	assert.Nil(t, fc.TimeToCapacity)
}

func TestForecastCapacity_EmptySeries(t *testing.T) {
	f := New(Config{})

	_, err := f.ForecastCapacity("checkout", models.MetricCPUUsage, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
