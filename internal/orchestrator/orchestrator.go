package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/alerting"
	"github.com/autonomiq/opsengine/internal/events"
	"github.com/autonomiq/opsengine/internal/forecaster"
	"github.com/autonomiq/opsengine/internal/health"
	"github.com/autonomiq/opsengine/internal/incident"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/metrics"
	"github.com/autonomiq/opsengine/internal/notify"
	"github.com/autonomiq/opsengine/internal/resolution"
	"github.com/autonomiq/opsengine/internal/scaling"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/database"
	"github.com/autonomiq/opsengine/pkg/models"
)

// Engine wires the full pipeline: telemetry ingestion, anomaly detection,
// forecasting, alerting, incident management, automated resolution, and
// predictive scaling.
type Engine struct {
	config  *config.Config
	db      *database.DB
	metrics *metrics.Metrics

	buffer     *telemetry.Buffer
	queue      *telemetry.IngestQueue
	detector   *detectorSet
	forecaster *forecaster.Forecaster
	scorer     *health.Scorer
	alerts     *alerting.Engine
	incidents  *incident.Manager
	resolver   *resolution.Engine
	scaler     *scaling.Planner
	instances  scaling.InstanceScaler
	notifier   *notify.Router

	eventBus    *events.EventBus
	publisher   *events.Publisher
	eventLogger *events.EventLogger

	mu        sync.RWMutex
	forecasts map[forecastKey]*models.CapacityForecast
	announced map[string]bool // correlation records already on the bus

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
}

type forecastKey struct {
	service string
	metric  string
}

// New assembles the engine from configuration. executor may be nil, in which
// case a simulated executor backed by the telemetry buffer is used.
func New(cfg *config.Config, db *database.DB, executor resolution.ActionExecutor) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	buffer := telemetry.NewBuffer(cfg.Telemetry.BufferCapacity)
	queue := telemetry.NewIngestQueue(buffer, telemetry.QueueConfig{
		Size:          cfg.Telemetry.QueueSize,
		BatchSize:     cfg.Telemetry.BatchSize,
		DrainInterval: cfg.Telemetry.DrainInterval,
	})

	fc := forecaster.New(forecaster.Config{
		Horizon:           cfg.Forecaster.Horizon,
		MinPoints:         cfg.Forecaster.MinPoints,
		MinAdvancedPoints: cfg.Forecaster.MinAdvancedPoints,
		StepDuration:      cfg.Forecaster.StepDuration,
	})

	alerts := alerting.NewEngine(alerting.Config{
		DedupWindow:      cfg.Alerting.DedupWindow,
		CorrelationScore: cfg.Alerting.CorrelationScore,
		MaxActiveAlerts:  cfg.Alerting.MaxActiveAlerts,
	}, buffer, fc)

	kb := incident.NewKnowledgeBase()
	classifier := incident.NewClassifier(nil)
	planner := incident.NewPlanner(kb, nil, cfg.Incident.MaxPlanLength)
	incidents := incident.NewManager(classifier, planner)

	if executor == nil {
		executor = resolution.NewSimulatedExecutor(buffer)
	}
	resolver := resolution.NewEngine(resolution.Config{
		Enabled:             cfg.Resolution.Enabled,
		ConfidenceThreshold: cfg.Resolution.ConfidenceThreshold,
		MaxConcurrent:       cfg.Resolution.MaxConcurrent,
		ActionTimeout:       cfg.Resolution.ActionTimeout,
		SettleDelay:         cfg.Resolution.SettleDelay,
		WorkflowRetention:   cfg.Resolution.WorkflowRetention,
		BreakerMaxFailures:  cfg.Resolution.CircuitBreaker.MaxFailures,
		BreakerTimeout:      cfg.Resolution.CircuitBreaker.Timeout,
	}, buffer, executor, incidents, kb)

	scaler := scaling.NewPlanner(scaling.Config{
		Cooldown:        cfg.Scaling.Cooldown,
		ConfidenceFloor: cfg.Scaling.ConfidenceFloor,
		TargetCPU:       cfg.Scaling.TargetCPU,
		TargetMemory:    cfg.Scaling.TargetMemory,
		MinInstances:    cfg.Scaling.MinInstances,
		MaxInstances:    cfg.Scaling.MaxInstances,
	}, buffer, fc)

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	eventLogger := events.NewEventLogger(db, eventBus.SubscribeAll())

	return &Engine{
		config:      cfg,
		db:          db,
		metrics:     metrics.New(),
		buffer:      buffer,
		queue:       queue,
		detector:    newDetectorSet(cfg.Detector),
		forecaster:  fc,
		scorer:      health.NewScorer(buffer),
		alerts:      alerts,
		incidents:   incidents,
		resolver:    resolver,
		scaler:      scaler,
		instances:   scaling.NewSimulatedScaler(scaling.SimulatedScalerConfig{}),
		notifier: notify.NewRouter(notify.RouterConfig{
			ChatEnabled:  cfg.Notifications.ChatEnabled,
			PagerEnabled: cfg.Notifications.PagerEnabled,
		}),
		eventBus:    eventBus,
		publisher:   events.NewPublisher(eventBus),
		eventLogger: eventLogger,
		forecasts:   make(map[forecastKey]*models.CapacityForecast),
		announced:   make(map[string]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (e *Engine) Start() error {
	logger.Info("Operations engine starting")
	e.startedAt = time.Now()

	e.eventLogger.Start()
	e.queue.Start(e.ctx)

	e.startLoop(e.config.Telemetry.DrainInterval, e.detectCycle)
	e.startLoop(e.config.Forecaster.Interval, e.forecastCycle)
	e.startLoop(e.config.Health.Interval, e.healthCycle)
	e.startLoop(e.config.Scaling.Interval, e.scalingCycle)
	e.startLoop(e.config.Alerting.SweepInterval, e.sweepCycle)

	return nil
}

func (e *Engine) Stop() {
	logger.Info("Operations engine stopping")

	e.cancel()
	e.wg.Wait()
	e.queue.Close()
	e.eventLogger.Stop()
	e.eventBus.Close()

	logger.Info("Operations engine stopped")
}

// Ingest accepts one telemetry sample. Never blocks; under sustained
// overload the oldest queued sample is dropped.
func (e *Engine) Ingest(sample models.MetricSample) error {
	return e.queue.Push(sample)
}

// Metrics exposes the engine's Prometheus collectors so the caller can
// serve the scrape endpoint.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

func (e *Engine) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return e.eventBus.Subscribe(eventType)
}

func (e *Engine) SubscribeAllEvents() <-chan *models.Event {
	return e.eventBus.SubscribeAll()
}

// Services lists all services with buffered telemetry.
func (e *Engine) Services() []string {
	return e.buffer.Services()
}

// GetServiceHealth returns the cached health score, computing one on demand
// for services not yet scored.
func (e *Engine) GetServiceHealth(service string) *models.ServiceHealthScore {
	if score := e.scorer.Get(service); score != nil {
		return score
	}
	return e.scorer.Compute(service)
}

func (e *Engine) GetAllServiceHealth() map[string]*models.ServiceHealthScore {
	return e.scorer.All()
}

func (e *Engine) GetActiveAlerts(limit int) []*models.Alert {
	return e.alerts.ActiveAlerts(limit)
}

func (e *Engine) GetCorrelations() []*models.CorrelationRecord {
	return e.alerts.Correlations()
}

func (e *Engine) GetActiveIncidents() []*models.Incident {
	return e.incidents.Active()
}

func (e *Engine) GetIncidentHistory() []*models.Incident {
	return e.incidents.History()
}

func (e *Engine) GetWorkflows() []*models.ResolutionWorkflow {
	return e.resolver.Workflows()
}

// GetCapacityForecast returns the most recent capacity forecast for a
// (service, metric) pair, or nil when none has been computed.
func (e *Engine) GetCapacityForecast(service, metric string) *models.CapacityForecast {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.forecasts[forecastKey{service, metric}]
}

func (e *Engine) GetScalingStatus(service string) *models.ScalingState {
	return e.scaler.State(service)
}

func (e *Engine) GetScalingHistory() []*models.ScalingDecision {
	return e.scaler.History()
}

// Stats is a point-in-time operational summary of the engine itself.
type Stats struct {
	ServicesTracked   int           `json:"services_tracked"`
	SamplesIngested   int64         `json:"samples_ingested"`
	SamplesDropped    int64         `json:"samples_dropped"`
	SamplesPending    int           `json:"samples_pending"`
	ActiveAlerts      int           `json:"active_alerts"`
	ActiveIncidents   int           `json:"active_incidents"`
	ResolvedIncidents int           `json:"resolved_incidents"`
	Uptime            time.Duration `json:"uptime"`
}

func (e *Engine) GetStats() Stats {
	return Stats{
		ServicesTracked:   len(e.buffer.Services()),
		SamplesIngested:   e.queue.Ingested(),
		SamplesDropped:    e.queue.Dropped(),
		SamplesPending:    e.queue.Pending(),
		ActiveAlerts:      len(e.alerts.ActiveAlerts(0)),
		ActiveIncidents:   len(e.incidents.Active()),
		ResolvedIncidents: len(e.incidents.History()),
		Uptime:            time.Since(e.startedAt),
	}
}

func (e *Engine) startLoop(interval time.Duration, cycle func()) {
	if interval <= 0 {
		interval = time.Second
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.ctx.Done():
				return
			case <-ticker.C:
				cycle()
			}
		}
	}()
}
