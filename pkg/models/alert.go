package models

import "time"

type Severity string

const (
	SeverityLow       Severity = "low"
	SeverityMedium    Severity = "medium"
	SeverityHigh      Severity = "high"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

var severityRank = map[Severity]int{
	SeverityLow:       0,
	SeverityMedium:    1,
	SeverityHigh:      2,
	SeverityCritical:  3,
	SeverityEmergency: 4,
}

// Rank returns the ordinal position of a severity; higher is more severe.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Escalate bumps a severity one level, saturating at Emergency.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	case SeverityHigh:
		return SeverityCritical
	default:
		return SeverityEmergency
	}
}

func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// RootCause describes the most likely driver of an alert, derived from
// pairwise metric correlation over the detection window.
type RootCause struct {
	Description        string             `json:"description"`
	PrimaryMetric      string             `json:"primary_metric"`
	CorrelatedMetrics  map[string]float64 `json:"correlated_metrics,omitempty"`
	Confidence         float64            `json:"confidence"`
	ContributingAlerts []string           `json:"contributing_alerts,omitempty"`
}

// Alert is a surfaced, severity-ranked signal. Immutable after creation
// except for the dedup suppression flag.
type Alert struct {
	ID                 string        `json:"id"`
	ServiceName        string        `json:"service_name"`
	MetricName         string        `json:"metric_name"`
	Type               AnomalyType   `json:"type"`
	Severity           Severity      `json:"severity"`
	Confidence         float64       `json:"confidence"`
	PredictedImpact    string        `json:"predicted_impact"`
	TimeToImpact       time.Duration `json:"time_to_impact"`
	RecommendedActions []ActionType  `json:"recommended_actions,omitempty"`
	AutoResolvable     bool          `json:"auto_resolvable"`
	RootCause          *RootCause    `json:"root_cause,omitempty"`
	Suppressed         bool          `json:"suppressed"`
	IncidentID         string        `json:"incident_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

func NewAlert(serviceName, metricName string, anomalyType AnomalyType, severity Severity) *Alert {
	return &Alert{
		ID:          NewUUID(),
		ServiceName: serviceName,
		MetricName:  metricName,
		Type:        anomalyType,
		Severity:    severity,
		CreatedAt:   time.Now(),
	}
}

// DedupKey identifies alerts considered duplicates within the dedup window.
func (a *Alert) DedupKey() string {
	return a.ServiceName + "|" + string(a.Type) + "|" + string(a.Severity)
}

// CorrelationRecord groups concurrent alerts for one service into a single
// correlated signal with a synthesized root cause.
type CorrelationRecord struct {
	ID               string    `json:"id"`
	ServiceName      string    `json:"service_name"`
	AlertIDs         []string  `json:"alert_ids"`
	CorrelationScore float64   `json:"correlation_score"`
	RootCause        string    `json:"root_cause"`
	CreatedAt        time.Time `json:"created_at"`
}
