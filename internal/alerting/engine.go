package alerting

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/detector"
	"github.com/autonomiq/opsengine/internal/forecaster"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

const (
	DefaultDedupWindow      = 15 * time.Minute
	DefaultCorrelationScore = 0.85
	DefaultMaxActiveAlerts  = 1000

	// defaultImpactWindow is reported when no forecast is available.
	defaultImpactWindow = 15 * time.Minute
)

type Config struct {
	DedupWindow      time.Duration
	CorrelationScore float64
	MaxActiveAlerts  int
}

// Engine converts anomaly and forecast signals into severity-ranked,
// deduplicated, correlated alerts.
type Engine struct {
	cfg        Config
	buffer     *telemetry.Buffer
	forecaster *forecaster.Forecaster

	mu           sync.Mutex
	active       []*models.Alert
	lastSeen     map[string]time.Time
	correlations []*models.CorrelationRecord
}

func NewEngine(cfg Config, buffer *telemetry.Buffer, fc *forecaster.Forecaster) *Engine {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = DefaultDedupWindow
	}
	if cfg.CorrelationScore <= 0 {
		cfg.CorrelationScore = DefaultCorrelationScore
	}
	if cfg.MaxActiveAlerts <= 0 {
		cfg.MaxActiveAlerts = DefaultMaxActiveAlerts
	}
	return &Engine{
		cfg:        cfg,
		buffer:     buffer,
		forecaster: fc,
		lastSeen:   make(map[string]time.Time),
	}
}

// SeverityFor maps an anomaly score to an alert severity. Anomaly types in
// the critical-escalation set bump the result one level, saturating at
// Emergency. Severity is monotonic in the score for a fixed type.
func SeverityFor(score float64, anomalyType models.AnomalyType) models.Severity {
	var severity models.Severity
	switch {
	case score >= 0.95:
		severity = models.SeverityCritical
	case score >= 0.85:
		severity = models.SeverityHigh
	case score >= 0.75:
		severity = models.SeverityMedium
	default:
		severity = models.SeverityLow
	}
	if anomalyType.IsCriticalType() {
		severity = severity.Escalate()
	}
	return severity
}

// EvaluateAnomaly turns a detection result into an alert. Duplicate alerts
// inside the dedup window come back with Suppressed set and are not added
// to the active set.
func (e *Engine) EvaluateAnomaly(result detector.Result, window detector.Window) *models.Alert {
	severity := SeverityFor(result.Score, result.Type)

	alert := models.NewAlert(window.ServiceName, window.MetricName, result.Type, severity)
	alert.Confidence = result.Score
	alert.TimeToImpact = e.impactTime(result.Type, window)
	alert.PredictedImpact = describeImpact(result.Type, severity)
	alert.RecommendedActions = recommendedActions(result.Type)
	alert.AutoResolvable = canAutoResolve(result.Type, severity)
	alert.RootCause = e.analyzeRootCause(window)

	return e.admit(alert)
}

// EvaluateForecast raises an alert when a capacity forecast predicts
// exhaustion inside the horizon. The alert type comes from the same rule
// table as detection, so a rising memory series surfaces as a leak.
func (e *Engine) EvaluateForecast(fc *models.CapacityForecast) *models.Alert {
	if fc == nil || !fc.WillExhaust() {
		return nil
	}

	values := e.buffer.Values(fc.ServiceName, fc.MetricName, 0)
	anomalyType := detector.ClassifyType(fc.MetricName, values)

	horizon := time.Duration(e.forecaster.Horizon()) * e.forecaster.StepDuration()
	var severity models.Severity
	switch {
	case *fc.TimeToCapacity <= horizon/3:
		severity = models.SeverityCritical
	case *fc.TimeToCapacity <= 2*horizon/3:
		severity = models.SeverityHigh
	default:
		severity = models.SeverityMedium
	}
	if anomalyType.IsCriticalType() {
		severity = severity.Escalate()
	}

	alert := models.NewAlert(fc.ServiceName, fc.MetricName, anomalyType, severity)
	alert.Confidence = fc.Confidence
	alert.TimeToImpact = *fc.TimeToCapacity
	alert.PredictedImpact = describeImpact(anomalyType, severity)
	alert.RecommendedActions = recommendedActions(anomalyType)
	alert.AutoResolvable = canAutoResolve(anomalyType, severity)
	alert.RootCause = &models.RootCause{
		Description:   fmt.Sprintf("%s projected to reach capacity limit %.2f", fc.MetricName, fc.CapacityLimit),
		PrimaryMetric: fc.MetricName,
		Confidence:    fc.Confidence,
	}

	return e.admit(alert)
}

// admit applies deduplication and correlation, then stores the alert.
func (e *Engine) admit(alert *models.Alert) *models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	key := alert.DedupKey()
	if seen, ok := e.lastSeen[key]; ok && now.Sub(seen) < e.cfg.DedupWindow {
		alert.Suppressed = true
		logger.WithService(alert.ServiceName).Debugf("Alert suppressed as duplicate: %s", key)
		return alert
	}
	e.lastSeen[key] = now

	e.correlate(alert, now)

	e.active = append(e.active, alert)
	if len(e.active) > e.cfg.MaxActiveAlerts {
		e.active = e.active[len(e.active)-e.cfg.MaxActiveAlerts:]
	}

	logger.WithService(alert.ServiceName).Infof(
		"Alert raised: %s %s (severity=%s, confidence=%.2f)",
		alert.MetricName, alert.Type, alert.Severity, alert.Confidence,
	)
	return alert
}

// correlate groups concurrent alerts for one service into a single record
// with a synthesized root cause. Called with the mutex held.
func (e *Engine) correlate(alert *models.Alert, now time.Time) {
	var concurrent []*models.Alert
	for _, a := range e.active {
		if a.ServiceName == alert.ServiceName && now.Sub(a.CreatedAt) < e.cfg.DedupWindow {
			concurrent = append(concurrent, a)
		}
	}
	if len(concurrent) == 0 {
		return
	}

	// Extend an open correlation record for the service when one exists.
	for _, rec := range e.correlations {
		if rec.ServiceName == alert.ServiceName && now.Sub(rec.CreatedAt) < e.cfg.DedupWindow {
			rec.AlertIDs = append(rec.AlertIDs, alert.ID)
			return
		}
	}

	ids := make([]string, 0, len(concurrent)+1)
	types := make([]string, 0, len(concurrent)+1)
	for _, a := range concurrent {
		ids = append(ids, a.ID)
		types = append(types, string(a.Type))
	}
	ids = append(ids, alert.ID)
	types = append(types, string(alert.Type))

	rec := &models.CorrelationRecord{
		ID:               models.NewUUID(),
		ServiceName:      alert.ServiceName,
		AlertIDs:         ids,
		CorrelationScore: e.cfg.CorrelationScore,
		RootCause:        fmt.Sprintf("Concurrent anomalies (%v) suggest a shared upstream cause in %s", types, alert.ServiceName),
		CreatedAt:        now,
	}
	e.correlations = append(e.correlations, rec)
	logger.WithService(alert.ServiceName).Warnf("Correlated %d concurrent alerts", len(ids))
}

// impactTime walks the forecast and reports the first point crossing a
// type-specific impact threshold. Without a usable forecast the fixed
// default window is reported.
func (e *Engine) impactTime(anomalyType models.AnomalyType, window detector.Window) time.Duration {
	if len(window.Values) < 5 {
		return defaultImpactWindow
	}

	pred, err := e.forecaster.Predict(window.Values, time.Now())
	if err != nil {
		return defaultImpactWindow
	}

	current := window.Current()
	var threshold float64
	switch anomalyType {
	case models.AnomalyMemoryLeak:
		threshold = current * 1.5
	case models.AnomalyPerformanceDegradation:
		threshold = current * 2.0
	default:
		threshold = current * 1.3
	}

	for i, p := range pred.Points {
		if p.Value >= threshold {
			return time.Duration(i+1) * e.forecaster.StepDuration()
		}
	}
	return time.Duration(len(pred.Points)) * e.forecaster.StepDuration()
}

// analyzeRootCause correlates the triggering metric against the service's
// other buffered metrics over the same window.
func (e *Engine) analyzeRootCause(window detector.Window) *models.RootCause {
	rc := &models.RootCause{
		PrimaryMetric: window.MetricName,
		Confidence:    0.6,
		Description:   "Isolated metric anomaly",
	}

	correlated := make(map[string]float64)
	strong := false
	for _, other := range e.buffer.Metrics(window.ServiceName) {
		if other == window.MetricName {
			continue
		}
		otherValues := e.buffer.Values(window.ServiceName, other, len(window.Values))
		r, ok := correlation(window.Values, otherValues)
		if !ok {
			continue
		}
		if abs(r) > 0.5 {
			correlated[other] = r
			if abs(r) > 0.8 {
				strong = true
			}
		}
	}

	if len(correlated) > 0 {
		rc.CorrelatedMetrics = correlated
		rc.Description = "Strong correlation with other service metrics"
		if strong {
			rc.Confidence = 0.8
		}
	}
	return rc
}

// ActiveAlerts returns up to limit unsuppressed alerts, newest first.
func (e *Engine) ActiveAlerts(limit int) []*models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.Alert, len(e.active))
	copy(out, e.active)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Correlations returns the correlation records, newest first.
func (e *Engine) Correlations() []*models.CorrelationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*models.CorrelationRecord, len(e.correlations))
	copy(out, e.correlations)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Sweep drops expired dedup entries and alerts older than the window.
// Run periodically by the orchestrator.
func (e *Engine) Sweep() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	for key, seen := range e.lastSeen {
		if now.Sub(seen) >= e.cfg.DedupWindow {
			delete(e.lastSeen, key)
		}
	}

	kept := e.active[:0]
	for _, a := range e.active {
		if now.Sub(a.CreatedAt) < e.cfg.DedupWindow {
			kept = append(kept, a)
		}
	}
	e.active = kept

	keptRecs := e.correlations[:0]
	for _, rec := range e.correlations {
		if now.Sub(rec.CreatedAt) < e.cfg.DedupWindow {
			keptRecs = append(keptRecs, rec)
		}
	}
	e.correlations = keptRecs
}

// correlation is the Pearson coefficient over the paired tails of the two
// series; ok is false when the overlap is too short or degenerate.
func correlation(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 5 {
		return 0, false
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0, false
	}
	return cov / (math.Sqrt(varA) * math.Sqrt(varB)), true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
