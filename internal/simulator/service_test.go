package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func TestServiceSim_SnapshotEmitsAllMetrics(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{})

	snap := sim.Snapshot()

	for _, metric := range []string{
		models.MetricCPUUsage,
		models.MetricMemoryUsage,
		models.MetricErrorRate,
		models.MetricResponseTime,
		models.MetricThroughput,
		models.MetricQueueDepth,
	} {
		_, ok := snap[metric]
		assert.True(t, ok, "missing metric %s", metric)
	}

	assert.InDelta(t, 0.45, snap[models.MetricCPUUsage], 0.06)
	assert.LessOrEqual(t, snap[models.MetricCPUUsage], 1.0)
	assert.GreaterOrEqual(t, snap[models.MetricErrorRate], 0.0)
}

func TestServiceSim_SpikeDrivesCPU(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{BaseCPU: 0.3})

	sim.InjectSpike(0.95, time.Minute, 0)

	snap := sim.Snapshot()
	assert.Greater(t, snap[models.MetricCPUUsage], 0.85)
	// Response time degrades under CPU pressure.
	assert.Greater(t, snap[models.MetricResponseTime], 150.0)
	// Saturation spills into the queue.
	assert.Greater(t, snap[models.MetricQueueDepth], 20.0)
}

func TestServiceSim_SpikeExpires(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{BaseCPU: 0.3})

	sim.InjectSpike(0.95, time.Millisecond, 0)
	time.Sleep(5 * time.Millisecond)

	snap := sim.Snapshot()
	assert.Less(t, snap[models.MetricCPUUsage], 0.5)
}

func TestServiceSim_MemoryLeakRampsAndPins(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{BaseMemory: 0.4})

	sim.InjectMemoryLeak(0.95, 20*time.Millisecond)

	early := sim.Snapshot()[models.MetricMemoryUsage]

	time.Sleep(30 * time.Millisecond)
	late := sim.Snapshot()[models.MetricMemoryUsage]

	assert.Greater(t, late, early)
	// Past the leak duration memory stays pinned at the target.
	assert.InDelta(t, 0.95, late, 0.05)
}

func TestServiceSim_ErrorBurst(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{})

	sim.InjectErrorBurst(0.5, time.Minute)
	snap := sim.Snapshot()

	assert.InDelta(t, 0.5, snap[models.MetricErrorRate], 0.11)
	// Failed requests reduce successful throughput.
	assert.Less(t, snap[models.MetricThroughput], 200*0.6)
}

func TestServiceSim_ClearFaults(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{BaseCPU: 0.3})

	sim.InjectSpike(0.95, time.Minute, 0)
	sim.InjectErrorBurst(0.5, time.Minute)
	sim.ClearFaults()

	snap := sim.Snapshot()
	assert.Less(t, snap[models.MetricCPUUsage], 0.5)
	assert.Less(t, snap[models.MetricErrorRate], 0.1)

	status := sim.Status()
	require.IsType(t, map[string]interface{}{}, status["spike"])
	assert.False(t, status["spike"].(map[string]interface{})["active"].(bool))
}

func TestServiceSim_StatusReportsActiveFaults(t *testing.T) {
	sim := NewServiceSim("checkout", ServiceSimConfig{})
	sim.InjectSpike(0.9, time.Minute, time.Second)

	status := sim.Status()

	spike := status["spike"].(map[string]interface{})
	assert.True(t, spike["active"].(bool))
	assert.Equal(t, 0.9, spike["target_cpu"])
}

func TestPatterns(t *testing.T) {
	assert.Equal(t, 0.5, PatternSteady.Apply(0.5))

	// Random stays inside the clamp bounds.
	for i := 0; i < 50; i++ {
		v := PatternRandom.Apply(0.5)
		assert.GreaterOrEqual(t, v, 0.05)
		assert.LessOrEqual(t, v, 1.0)
	}

	// A fresh gradual rise starts at the base.
	rise := &GradualRisePattern{startTime: time.Now()}
	assert.InDelta(t, 0.5, rise.Apply(0.5), 0.01)

	// An hour in, the rise is capped at +50%.
	old := &GradualRisePattern{startTime: time.Now().Add(-time.Hour)}
	assert.InDelta(t, 0.75, old.Apply(0.5), 0.01)
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"daily", "daily"},
		{"weekly", "weekly"},
		{"random", "random"},
		{"gradual_rise", "gradual_rise"},
		{"unknown", "steady"},
		{"", "steady"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParsePattern(tt.input).Name(), "input %q", tt.input)
	}
}

func TestClampLoad(t *testing.T) {
	assert.Equal(t, 1.0, clampLoad(1.5))
	assert.Equal(t, 0.05, clampLoad(-0.2))
	assert.Equal(t, 0.5, clampLoad(0.5))
}
