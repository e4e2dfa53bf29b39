package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func sample(service, metric string, value float64) models.MetricSample {
	return models.MetricSample{
		ServiceName: service,
		MetricName:  metric,
		Value:       value,
		Timestamp:   time.Now(),
	}
}

func TestBuffer_AppendAndValues(t *testing.T) {
	b := NewBuffer(10)

	for _, v := range []float64{0.1, 0.2, 0.3} {
		b.Append(sample("checkout", models.MetricCPUUsage, v))
	}

	values := b.Values("checkout", models.MetricCPUUsage, 0)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, values)
	assert.Equal(t, 3, b.Len("checkout", models.MetricCPUUsage))
}

func TestBuffer_RingEviction(t *testing.T) {
	b := NewBuffer(3)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		b.Append(sample("checkout", models.MetricCPUUsage, v))
	}

	values := b.Values("checkout", models.MetricCPUUsage, 0)
	assert.Equal(t, []float64{3, 4, 5}, values)
	assert.Equal(t, 3, b.Len("checkout", models.MetricCPUUsage))
}

func TestBuffer_SnapshotTail(t *testing.T) {
	b := NewBuffer(10)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		b.Append(sample("checkout", models.MetricCPUUsage, v))
	}

	values := b.Values("checkout", models.MetricCPUUsage, 2)
	assert.Equal(t, []float64{4, 5}, values)
}

func TestBuffer_UnknownSeries(t *testing.T) {
	b := NewBuffer(10)

	assert.Nil(t, b.Values("missing", models.MetricCPUUsage, 0))
	assert.Zero(t, b.Len("missing", models.MetricCPUUsage))
}

func TestBuffer_ServicesAndMetrics(t *testing.T) {
	b := NewBuffer(10)

	b.Append(sample("checkout", models.MetricCPUUsage, 0.5))
	b.Append(sample("checkout", models.MetricMemoryUsage, 0.6))
	b.Append(sample("payments", models.MetricCPUUsage, 0.4))

	assert.ElementsMatch(t, []string{"checkout", "payments"}, b.Services())
	assert.ElementsMatch(t, []string{models.MetricCPUUsage, models.MetricMemoryUsage}, b.Metrics("checkout"))
}

func TestBuffer_Latest(t *testing.T) {
	b := NewBuffer(10)

	b.Append(sample("checkout", models.MetricCPUUsage, 0.5))
	b.Append(sample("checkout", models.MetricCPUUsage, 0.7))
	b.Append(sample("checkout", models.MetricMemoryUsage, 0.6))

	snap := b.Latest("checkout")
	require.NotNil(t, snap)
	assert.Equal(t, "checkout", snap.ServiceName)
	assert.Equal(t, 0.7, snap.Get(models.MetricCPUUsage))
	assert.Equal(t, 0.6, snap.Get(models.MetricMemoryUsage))
}
