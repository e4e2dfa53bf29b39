package detector

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func trainingWindows(n int) []Window {
	rng := rand.New(rand.NewSource(1))
	windows := make([]Window, 0, n)
	end := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		values := make([]float64, 30)
		for j := range values {
			values[j] = 0.5 + rng.Float64()*0.1
		}
		windows = append(windows, Window{
			ServiceName: "checkout",
			MetricName:  models.MetricCPUUsage,
			Values:      values,
			End:         end.Add(time.Duration(i) * time.Minute),
		})
	}
	return windows
}

func TestEnsemble_UnfittedReturnsModelUnavailable(t *testing.T) {
	e := NewEnsemble(3)

	assert.False(t, e.Fitted())

	_, err := e.Detect(Window{Values: steadySeries(0.5, 30)})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestEnsemble_FitAndDetect(t *testing.T) {
	e := NewEnsemble(3)
	e.FitWindows(trainingWindows(200))

	require.True(t, e.Fitted())

	normal := Window{
		ServiceName: "checkout",
		MetricName:  models.MetricCPUUsage,
		Values:      steadySeries(0.52, 30),
		End:         time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}
	result, err := e.Detect(normal)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)

	outlier := normal
	outlier.Values = append(steadySeries(0.52, 29), 40.0)
	outlierResult, err := e.Detect(outlier)
	require.NoError(t, err)
	assert.Greater(t, outlierResult.Score, result.Score)
}

func TestEnsemble_ShortWindowReturnsInsufficientData(t *testing.T) {
	e := NewEnsemble(3)
	e.FitWindows(trainingWindows(50))

	_, err := e.Detect(Window{Values: []float64{0.5, 0.6}})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEnsemble_SizeFallsBackToThree(t *testing.T) {
	e := NewEnsemble(0)
	assert.Len(t, e.models, 3)

	e = NewEnsemble(5)
	assert.Len(t, e.models, 5)
}
