package orchestrator

import (
	"errors"
	"sort"
	"time"

	"github.com/autonomiq/opsengine/internal/alerting"
	"github.com/autonomiq/opsengine/internal/detector"
	"github.com/autonomiq/opsengine/internal/incident"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/models"
)

const (
	defaultWindowSize       = 50
	defaultAnomalyThreshold = 0.7
)

// detectorSet bundles the composite detector with its scan parameters. The
// ensemble starts unfitted and is consulted only once trained; until then
// the statistical fallback carries detection.
type detectorSet struct {
	composite  *detector.Composite
	ensemble   *detector.Ensemble
	windowSize int
	threshold  float64
}

func newDetectorSet(cfg config.DetectorConfig) *detectorSet {
	windowSize := cfg.WindowSize
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	threshold := cfg.AnomalyThreshold
	if threshold <= 0 {
		threshold = defaultAnomalyThreshold
	}

	ensemble := detector.NewEnsemble(cfg.EnsembleSize)
	return &detectorSet{
		composite:  detector.NewComposite(ensemble, detector.NewStatistical()),
		ensemble:   ensemble,
		windowSize: windowSize,
		threshold:  threshold,
	}
}

// TrainEnsemble fits the isolation-forest ensemble on the given windows.
// Until called, detection runs on the statistical fallback.
func (e *Engine) TrainEnsemble(windows []detector.Window) {
	e.detector.ensemble.FitWindows(windows)
}

// detectCycle scans every buffered series, scores it, and turns scoring
// hits into alerts ordered most severe first.
func (e *Engine) detectCycle() {
	start := time.Now()

	type hit struct {
		result detector.Result
		window detector.Window
	}
	var hits []hit

	for _, service := range e.buffer.Services() {
		for _, metric := range e.buffer.Metrics(service) {
			values := e.buffer.Values(service, metric, e.detector.windowSize)
			if len(values) == 0 {
				continue
			}
			window := detector.Window{
				ServiceName: service,
				MetricName:  metric,
				Values:      values,
				End:         time.Now(),
			}

			result, err := e.detector.composite.Detect(window)
			if err != nil {
				logger.WithService(service).Errorf("Detection failed for %s: %v", metric, err)
				continue
			}
			if !result.IsAnomaly {
				continue
			}

			e.scorer.RecordAnomaly(service, result.Score)
			e.metrics.IncAnomaly(service, string(result.Type))

			if result.Score < e.detector.threshold {
				continue
			}
			hits = append(hits, hit{result: result, window: window})
		}
	}

	// Most severe first, so an emergency is never queued behind noise.
	sort.SliceStable(hits, func(i, j int) bool {
		si := alerting.SeverityFor(hits[i].result.Score, hits[i].result.Type)
		sj := alerting.SeverityFor(hits[j].result.Score, hits[j].result.Type)
		return si.Rank() > sj.Rank()
	})

	for _, h := range hits {
		alert := e.alerts.EvaluateAnomaly(h.result, h.window)
		e.handleAlert(alert)
	}

	// Threshold rules over the latest snapshot catch conditions that
	// develop too smoothly to register as statistical anomalies.
	for _, service := range e.buffer.Services() {
		obs := e.observation(service)
		inc, err := e.incidents.FromSnapshot(obs)
		if inc != nil {
			e.handleIncident(inc, err, true)
		}
	}

	e.metrics.ObserveDetection(time.Since(start))
}

func (e *Engine) handleAlert(alert *models.Alert) {
	if alert == nil {
		return
	}
	if alert.Suppressed {
		e.publisher.AlertSuppressed(alert)
		e.metrics.IncAlertSuppressed()
		return
	}

	e.publisher.AlertRaised(alert)
	e.notifier.Dispatch(alert)
	e.metrics.IncAlert(alert.ServiceName, string(alert.Severity))
	e.publishNewCorrelations()

	inc, err := e.incidents.FromAlert(alert, e.observation(alert.ServiceName))
	if inc != nil {
		alert.IncidentID = inc.ID
	}
	e.handleIncident(inc, err, alert.AutoResolvable)
}

func (e *Engine) handleIncident(inc *models.Incident, err error, autoResolve bool) {
	if inc == nil {
		return
	}
	if errors.Is(err, incident.ErrDuplicateIncident) {
		return
	}
	if err != nil {
		logger.WithService(inc.ServiceName).Errorf("Incident creation failed: %v", err)
		return
	}

	e.publisher.IncidentDetected(inc)

	if !autoResolve {
		reason := "not eligible for automated resolution"
		inc.EscalationReason = reason
		e.incidents.Close(inc, models.IncidentEscalated, reason)
		e.publisher.IncidentEscalated(inc, reason)
		e.metrics.IncIncident(string(models.IncidentEscalated))
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.resolve(inc)
	}()
}

func (e *Engine) resolve(inc *models.Incident) {
	result, err := e.resolver.Resolve(e.ctx, inc)
	if err != nil {
		logger.WithIncident(inc.ID).Warnf("Resolution not started: %v", err)
		return
	}

	switch {
	case result.Success:
		e.publisher.IncidentResolved(inc, result)
		e.metrics.IncIncident(string(models.IncidentResolved))
		e.metrics.ObserveResolution(result.ResolutionTime)
	case result.Escalated:
		e.publisher.IncidentEscalated(inc, result.Impact.EscalationReason)
		e.metrics.IncIncident(string(models.IncidentEscalated))
	default:
		e.publisher.IncidentFailed(inc)
		e.metrics.IncIncident(string(models.IncidentFailed))
	}

	for _, action := range result.ActionsExecuted {
		e.metrics.IncAction(action, result.Success)
	}
}

// forecastCycle recomputes capacity forecasts for every buffered series and
// raises alerts for projected exhaustion.
func (e *Engine) forecastCycle() {
	for _, service := range e.buffer.Services() {
		for _, metric := range e.buffer.Metrics(service) {
			values := e.buffer.Values(service, metric, 0)
			fc, err := e.forecaster.ForecastCapacity(service, metric, values, nil)
			if err != nil {
				continue
			}

			e.mu.Lock()
			e.forecasts[forecastKey{service, metric}] = fc
			e.mu.Unlock()

			e.publisher.ForecastComputed(fc)
			if alert := e.alerts.EvaluateForecast(fc); alert != nil {
				e.handleAlert(alert)
			}
		}
	}
}

func (e *Engine) healthCycle() {
	for _, service := range e.buffer.Services() {
		score := e.scorer.Compute(service)
		e.metrics.SetHealthScore(service, score.OverallScore)
	}
}

func (e *Engine) scalingCycle() {
	for _, service := range e.buffer.Services() {
		decision := e.scaler.Evaluate(service)
		e.scaler.Record(decision)
		if !decision.ShouldExecute() {
			continue
		}

		e.publisher.ScalingDecision(decision)
		e.metrics.IncScalingDecision(service, string(decision.Direction))

		result, err := e.instances.ScaleTo(e.ctx, service, decision.TargetInstances)
		if err != nil {
			logger.WithService(service).Errorf("Scaling execution failed: %v", err)
			continue
		}
		e.scaler.SetInstances(service, result.Instances)
	}
}

func (e *Engine) sweepCycle() {
	e.alerts.Sweep()
	e.pruneCorrelationLedger()
	e.metrics.SetActiveIncidents(len(e.incidents.Active()))
}

// publishNewCorrelations announces correlation records not yet seen on the
// event bus.
func (e *Engine) publishNewCorrelations() {
	records := e.alerts.Correlations()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.announced == nil {
		e.announced = make(map[string]bool)
	}
	for _, rec := range records {
		if !e.announced[rec.ID] {
			e.announced[rec.ID] = true
			e.publisher.AlertsCorrelated(rec)
		}
	}
}

func (e *Engine) pruneCorrelationLedger() {
	current := make(map[string]bool)
	for _, rec := range e.alerts.Correlations() {
		current[rec.ID] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.announced {
		if !current[id] {
			delete(e.announced, id)
		}
	}
}

// observation gathers the context the classifier needs for one service.
func (e *Engine) observation(service string) incident.Observation {
	var baseline float64
	if values := e.buffer.Values(service, models.MetricThroughput, 0); len(values) > 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		baseline = sum / float64(len(values))
	}

	related := 0
	for _, a := range e.alerts.ActiveAlerts(0) {
		if a.ServiceName == service {
			related++
		}
	}

	return incident.Observation{
		Snapshot:           e.buffer.Latest(service),
		ThroughputBaseline: baseline,
		RelatedAlerts:      related,
	}
}
