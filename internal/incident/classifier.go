package incident

import (
	"github.com/autonomiq/opsengine/pkg/models"
)

// Observation is everything the classifier sees about a service at
// classification time.
type Observation struct {
	Snapshot *models.MetricsSnapshot
	// ThroughputBaseline is the historical average throughput, used to tell a
	// collapse apart from a service that never had traffic.
	ThroughputBaseline float64
	RelatedAlerts      int
}

// ConfidenceModel scores how certain a classification is. When no trained
// model is wired in, rule-table classifications carry a fixed confidence.
type ConfidenceModel interface {
	Confidence(incidentType models.IncidentType, snapshot *models.MetricsSnapshot) float64
}

const ruleConfidence = 0.8

// Classifier maps metric snapshots and alerts to incident types. The rule
// table is evaluated in severity order so the most severe matching condition
// wins.
type Classifier struct {
	model ConfidenceModel
}

func NewClassifier(model ConfidenceModel) *Classifier {
	return &Classifier{model: model}
}

// Classify runs the threshold rule table against an observation. The third
// return is false when no rule matches.
func (c *Classifier) Classify(obs Observation) (models.IncidentType, models.Severity, bool) {
	snap := obs.Snapshot
	if snap == nil {
		return "", "", false
	}

	cpu := snap.Get(models.MetricCPUUsage)
	mem := snap.Get(models.MetricMemoryUsage)
	disk := snap.Get(models.MetricDiskUsage)
	errRate := snap.Get(models.MetricErrorRate)
	respTime := snap.Get(models.MetricResponseTime)
	throughput := snap.Get(models.MetricThroughput)
	queue := snap.Get(models.MetricQueueDepth)

	switch {
	case cpu > 0.95:
		return models.IncidentCriticalCPU, models.SeverityCritical, true
	case mem > 0.98:
		return models.IncidentCriticalMemory, models.SeverityCritical, true
	case errRate > 0.5:
		return models.IncidentCriticalErrorRate, models.SeverityCritical, true
	case respTime > 10000:
		return models.IncidentCriticalResponse, models.SeverityCritical, true
	}

	switch {
	case cpu > 0.85:
		return models.IncidentHighCPU, models.SeverityHigh, true
	case mem > 0.9:
		return models.IncidentHighMemory, models.SeverityHigh, true
	case disk > 0.95:
		return models.IncidentDiskSpaceCritical, models.SeverityHigh, true
	case errRate > 0.1:
		return models.IncidentHighErrorRate, models.SeverityHigh, true
	case respTime > 5000:
		return models.IncidentHighResponseTime, models.SeverityHigh, true
	}

	switch {
	case cpu > 0.8 && mem > 0.8:
		return models.IncidentResourceContention, models.SeverityMedium, true
	case errRate > 0.05:
		return models.IncidentElevatedErrorRate, models.SeverityMedium, true
	case throughput < 10 && obs.ThroughputBaseline > 10:
		return models.IncidentThroughputDegraded, models.SeverityMedium, true
	case obs.RelatedAlerts > 3:
		return models.IncidentMultipleAlerts, models.SeverityMedium, true
	}

	switch {
	case respTime > 2000:
		return models.IncidentSlowResponseTime, models.SeverityLow, true
	case queue > 100:
		return models.IncidentQueueBuildup, models.SeverityLow, true
	}

	return "", "", false
}

// anomalyIncidentTypes maps alert anomaly types straight to incident types,
// skipping the threshold table when the detector already named the problem.
var anomalyIncidentTypes = map[models.AnomalyType]models.IncidentType{
	models.AnomalyMemoryLeak:         models.IncidentMemoryLeak,
	models.AnomalyCPUSaturation:      models.IncidentHighCPU,
	models.AnomalyErrorSpike:         models.IncidentHighErrorRate,
	models.AnomalyLatencyIncrease:    models.IncidentHighResponseTime,
	models.AnomalyThroughputDrop:     models.IncidentThroughputDegraded,
	models.AnomalyResourceExhaustion: models.IncidentResourceContention,
	models.AnomalyNetworkIssues:      models.IncidentNetworkTimeout,
}

// ClassifyAlert derives an incident type from an alert, preferring the
// detector's anomaly typing and falling back to the threshold table.
func (c *Classifier) ClassifyAlert(alert *models.Alert, obs Observation) (models.IncidentType, models.Severity, bool) {
	if t, ok := anomalyIncidentTypes[alert.Type]; ok {
		return t, alert.Severity, true
	}
	return c.Classify(obs)
}

// ConfidenceFor reports the classification confidence, delegating to the
// trained model when one is wired in.
func (c *Classifier) ConfidenceFor(incidentType models.IncidentType, snapshot *models.MetricsSnapshot) float64 {
	if c.model != nil {
		return c.model.Confidence(incidentType, snapshot)
	}
	return ruleConfidence
}
