package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autonomiq/opsengine/internal/logger"
)

// Metrics exposes the engine's own operational counters over the standard
// Prometheus registry.
type Metrics struct {
	samplesIngested  *prometheus.CounterVec
	samplesDropped   prometheus.Counter
	anomaliesTotal   *prometheus.CounterVec
	alertsTotal      *prometheus.CounterVec
	alertsSuppressed prometheus.Counter
	incidentsTotal   *prometheus.CounterVec
	actionsTotal     *prometheus.CounterVec
	scalingTotal     *prometheus.CounterVec

	healthScore         *prometheus.GaugeVec
	activeIncidents     prometheus.Gauge
	circuitBreakerState *prometheus.GaugeVec

	detectionLatency  prometheus.Histogram
	resolutionLatency prometheus.Histogram
}

// New registers the engine collectors on the default Prometheus registerer.
// Construct once and inject; re-registration is tolerated so tests can build
// engines freely.
func New() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_samples_ingested_total",
			Help: "Telemetry samples accepted into the buffer.",
		}, []string{"service"}),
		samplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opsengine_samples_dropped_total",
			Help: "Telemetry samples dropped due to queue overflow.",
		}),
		anomaliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_anomalies_total",
			Help: "Anomalies detected, by service and type.",
		}, []string{"service", "type"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_alerts_total",
			Help: "Alerts raised, by service and severity.",
		}, []string{"service", "severity"}),
		alertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opsengine_alerts_suppressed_total",
			Help: "Alerts suppressed as duplicates inside the dedup window.",
		}),
		incidentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_incidents_total",
			Help: "Incidents closed, by terminal status.",
		}, []string{"status"}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_resolution_actions_total",
			Help: "Resolution actions executed, by action and outcome.",
		}, []string{"action", "outcome"}),
		scalingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opsengine_scaling_decisions_total",
			Help: "Scaling decisions emitted, by direction.",
		}, []string{"service", "direction"}),
		healthScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opsengine_service_health_score",
			Help: "Weighted service health score (0-100).",
		}, []string{"service"}),
		activeIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "opsengine_active_incidents",
			Help: "Incidents currently being tracked.",
		}),
		circuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "opsengine_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		detectionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "opsengine_detection_duration_seconds",
			Help:    "Time spent scoring one detection cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		resolutionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "opsengine_resolution_duration_seconds",
			Help:    "End-to-end resolution workflow duration.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	collectors := []prometheus.Collector{
		m.samplesIngested, m.samplesDropped, m.anomaliesTotal,
		m.alertsTotal, m.alertsSuppressed, m.incidentsTotal,
		m.actionsTotal, m.scalingTotal, m.healthScore,
		m.activeIncidents, m.circuitBreakerState,
		m.detectionLatency, m.resolutionLatency,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.Errorf("Failed to register metric: %v", err)
			}
		}
	}

	return m
}

func (m *Metrics) IncSamplesIngested(service string, n int) {
	m.samplesIngested.WithLabelValues(service).Add(float64(n))
}

func (m *Metrics) IncSamplesDropped(n int) {
	m.samplesDropped.Add(float64(n))
}

func (m *Metrics) IncAnomaly(service, anomalyType string) {
	m.anomaliesTotal.WithLabelValues(service, anomalyType).Inc()
}

func (m *Metrics) IncAlert(service, severity string) {
	m.alertsTotal.WithLabelValues(service, severity).Inc()
}

func (m *Metrics) IncAlertSuppressed() {
	m.alertsSuppressed.Inc()
}

func (m *Metrics) IncIncident(status string) {
	m.incidentsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncAction(action string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) IncScalingDecision(service, direction string) {
	m.scalingTotal.WithLabelValues(service, direction).Inc()
}

func (m *Metrics) SetHealthScore(service string, score float64) {
	m.healthScore.WithLabelValues(service).Set(score)
}

func (m *Metrics) SetActiveIncidents(n int) {
	m.activeIncidents.Set(float64(n))
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveDetection(d time.Duration) {
	m.detectionLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveResolution(d time.Duration) {
	m.resolutionLatency.Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves the scrape endpoint on its own listener in the
// background.
func (m *Metrics) StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Prometheus metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
}
