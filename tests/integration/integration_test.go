package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/internal/alerting"
	"github.com/autonomiq/opsengine/internal/collector"
	"github.com/autonomiq/opsengine/internal/detector"
	"github.com/autonomiq/opsengine/internal/forecaster"
	"github.com/autonomiq/opsengine/internal/incident"
	"github.com/autonomiq/opsengine/internal/orchestrator"
	"github.com/autonomiq/opsengine/internal/resolution"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/models"
)

// cpuSpikeSeries is a quiet baseline followed by a sustained saturation tail,
// so the last value is a clear outlier and the tail mean classifies as CPU
// saturation.
func cpuSpikeSeries() []float64 {
	series := make([]float64, 0, 30)
	for i := 0; i < 25; i++ {
		series = append(series, 0.40+float64(i%5)*0.01)
	}
	series = append(series, 0.88, 0.88, 0.88, 0.88, 0.95)
	return series
}

func seedSeries(buffer *telemetry.Buffer, service, metric string, values []float64) {
	start := time.Now().Add(-time.Duration(len(values)) * time.Second)
	for i, v := range values {
		buffer.Append(models.MetricSample{
			ServiceName: service,
			MetricName:  metric,
			Value:       v,
			Timestamp:   start.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestPipeline_AnomalyToResolvedIncident(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	series := cpuSpikeSeries()
	seedSeries(buffer, "checkout", models.MetricCPUUsage, series)

	fc := forecaster.New(forecaster.Config{})
	alerts := alerting.NewEngine(alerting.Config{DedupWindow: time.Minute}, buffer, fc)

	kb := incident.NewKnowledgeBase()
	manager := incident.NewManager(
		incident.NewClassifier(nil),
		incident.NewPlanner(kb, nil, 3),
	)

	executor := resolution.NewSimulatedExecutor(buffer)
	// The critical-severity plan estimates a success probability of 0.3, so
	// the gate threshold sits at that value to let the workflow run.
	resolver := resolution.NewEngine(resolution.Config{
		Enabled:             true,
		ConfidenceThreshold: 0.3,
		SettleDelay:         time.Millisecond,
	}, buffer, executor, manager, kb)

	// Detection
	window := detector.Window{
		ServiceName: "checkout",
		MetricName:  models.MetricCPUUsage,
		Values:      series,
		End:         time.Now(),
	}
	result, err := detector.NewStatistical().Detect(window)
	require.NoError(t, err)
	require.True(t, result.IsAnomaly)
	assert.Equal(t, models.AnomalyCPUSaturation, result.Type)

	// Alerting
	alert := alerts.EvaluateAnomaly(result, window)
	require.NotNil(t, alert)
	assert.False(t, alert.Suppressed)
	assert.Equal(t, models.SeverityCritical, alert.Severity)

	// Incident creation with an attached plan
	inc, err := manager.FromAlert(alert, incident.Observation{Snapshot: buffer.Latest("checkout")})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentHighCPU, inc.Type)
	assert.NotEmpty(t, inc.RecommendedActions)

	// Resolution runs the plan against the simulated service and verifies
	// the saturation cleared.
	res, err := resolver.Resolve(context.Background(), inc)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, models.IncidentResolved, inc.Status)
	assert.Less(t, buffer.Latest("checkout").Get(models.MetricCPUUsage), 0.8)

	assert.Empty(t, manager.Active())
	require.Len(t, manager.History(), 1)
	assert.NotEmpty(t, executor.Executed())
}

type queueSink struct {
	queue *telemetry.IngestQueue
}

func (s queueSink) Ingest(sample models.MetricSample) error {
	return s.queue.Push(sample)
}

func TestCollectorToBufferPipeline(t *testing.T) {
	buffer := telemetry.NewBuffer(100)
	queue := telemetry.NewIngestQueue(buffer, telemetry.QueueConfig{
		Size:          1000,
		BatchSize:     100,
		DrainInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue.Start(ctx)
	defer queue.Close()

	mock := collector.NewMockCollector(collector.MockCollectorConfig{})
	mock.AddService("checkout")

	poller := collector.NewPoller(queueSink{queue}, 5*time.Millisecond)
	poller.Register("checkout", mock)
	poller.Start()
	defer poller.Stop()

	assert.Eventually(t, func() bool {
		return buffer.Len("checkout", models.MetricCPUUsage) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	snap := buffer.Latest("checkout")
	require.NotNil(t, snap)
	assert.InDelta(t, 0.5, snap.Get(models.MetricCPUUsage), 0.1)
	assert.Greater(t, queue.Ingested(), int64(0))
}

func engineConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "opsengine", Mode: "test", LogLevel: "error"},
		Telemetry: config.TelemetryConfig{
			BufferCapacity: 100,
			QueueSize:      1000,
			BatchSize:      200,
			DrainInterval:  10 * time.Millisecond,
		},
		Detector: config.DetectorConfig{
			EnsembleSize:     3,
			AnomalyThreshold: 0.7,
			MinSamples:       10,
			WindowSize:       50,
		},
		Forecaster: config.ForecasterConfig{
			Horizon:           10,
			MinPoints:         10,
			MinAdvancedPoints: 20,
			StepDuration:      time.Second,
			Interval:          25 * time.Millisecond,
		},
		Health:   config.HealthConfig{Interval: 25 * time.Millisecond},
		Alerting: config.AlertingConfig{DedupWindow: time.Minute, SweepInterval: 50 * time.Millisecond, CorrelationScore: 0.85},
		Incident: config.IncidentConfig{MaxPlanLength: 3},
		Resolution: config.ResolutionConfig{
			Enabled:             true,
			ConfidenceThreshold: 0.7,
			MaxConcurrent:       5,
			ActionTimeout:       time.Second,
			SettleDelay:         time.Millisecond,
		},
		Scaling: config.ScalingConfig{
			Interval:        50 * time.Millisecond,
			Cooldown:        time.Minute,
			ConfidenceFloor: 0.6,
			TargetCPU:       0.7,
			TargetMemory:    0.8,
			MinInstances:    1,
			MaxInstances:    10,
		},
		Events: config.EventsConfig{BufferSize: 64},
		API:    config.APIConfig{Port: 8080},
	}
}

func TestEngine_LifecycleAndEvents(t *testing.T) {
	engine := orchestrator.New(engineConfig(), nil, nil)

	alertCh := engine.SubscribeEvents(models.EventTypeAlertRaised)

	require.NoError(t, engine.Start())
	defer engine.Stop()

	series := cpuSpikeSeries()
	start := time.Now().Add(-time.Duration(len(series)) * time.Second)
	for i, v := range series {
		require.NoError(t, engine.Ingest(models.MetricSample{
			ServiceName: "checkout",
			MetricName:  models.MetricCPUUsage,
			Value:       v,
			Timestamp:   start.Add(time.Duration(i) * time.Second),
		}))
	}

	assert.Eventually(t, func() bool {
		for _, s := range engine.Services() {
			if s == "checkout" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case event := <-alertCh:
		assert.Equal(t, models.EventTypeAlertRaised, event.Type)
		assert.Equal(t, "checkout", event.ServiceName)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for alert event")
	}

	assert.Eventually(t, func() bool {
		return engine.GetStats().SamplesIngested == int64(len(series))
	}, 2*time.Second, 10*time.Millisecond)

	stats := engine.GetStats()
	assert.Zero(t, stats.SamplesDropped)
	assert.Equal(t, 1, stats.ServicesTracked)

	health := engine.GetServiceHealth("checkout")
	require.NotNil(t, health)
	assert.NotEmpty(t, health.Status)

	// Engine-owned collectors, no package singleton to consult.
	assert.NotNil(t, engine.Metrics())
}
