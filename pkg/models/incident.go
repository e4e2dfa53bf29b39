package models

import "time"

type IncidentStatus string

const (
	IncidentDetected    IncidentStatus = "detected"
	IncidentClassifying IncidentStatus = "classifying"
	IncidentResolving   IncidentStatus = "resolving"
	IncidentResolved    IncidentStatus = "resolved"
	IncidentEscalated   IncidentStatus = "escalated"
	IncidentFailed      IncidentStatus = "failed"
)

// IsTerminal reports whether the incident lifecycle has ended.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentResolved || s == IncidentEscalated || s == IncidentFailed
}

type IncidentType string

const (
	IncidentCriticalCPU        IncidentType = "critical_cpu_utilization"
	IncidentCriticalMemory     IncidentType = "critical_memory_usage"
	IncidentCriticalErrorRate  IncidentType = "critical_error_rate"
	IncidentCriticalResponse   IncidentType = "critical_response_time"
	IncidentHighCPU            IncidentType = "high_cpu_utilization"
	IncidentHighMemory         IncidentType = "high_memory_usage"
	IncidentDiskSpaceCritical  IncidentType = "disk_space_critical"
	IncidentHighErrorRate      IncidentType = "high_error_rate"
	IncidentHighResponseTime   IncidentType = "high_response_time"
	IncidentResourceContention IncidentType = "resource_contention"
	IncidentElevatedErrorRate  IncidentType = "elevated_error_rate"
	IncidentThroughputDegraded IncidentType = "throughput_degradation"
	IncidentMultipleAlerts     IncidentType = "multiple_alerts"
	IncidentSlowResponseTime   IncidentType = "slow_response_time"
	IncidentQueueBuildup       IncidentType = "queue_buildup"
	IncidentMemoryLeak         IncidentType = "memory_leak"
	IncidentCacheOverflow      IncidentType = "cache_overflow"
	IncidentDatabaseConnError  IncidentType = "database_connection_error"
	IncidentNetworkTimeout     IncidentType = "network_timeout"
)

// IncidentContext is the environmental context captured at detection time.
type IncidentContext struct {
	ServiceVersion    string            `json:"service_version,omitempty"`
	Environment       string            `json:"environment,omitempty"`
	RecentDeployments []string          `json:"recent_deployments,omitempty"`
	RelatedAlerts     []string          `json:"related_alerts,omitempty"`
	DependencyHealth  map[string]string `json:"dependency_health,omitempty"`
	LoadPattern       string            `json:"load_pattern,omitempty"`
}

// ResolutionRecord is one entry in an incident's resolution history.
type ResolutionRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    IncidentStatus `json:"status"`
	Detail    string         `json:"detail,omitempty"`
}

// Incident is a tracked operational problem with a lifecycle. One active
// incident per (service, type) pair at a time.
type Incident struct {
	ID                       string             `json:"id"`
	ServiceName              string             `json:"service_name"`
	Type                     IncidentType       `json:"type"`
	Description              string             `json:"description"`
	Severity                 Severity           `json:"severity"`
	Status                   IncidentStatus     `json:"status"`
	Metrics                  *MetricsSnapshot   `json:"metrics,omitempty"`
	Context                  IncidentContext    `json:"context"`
	ClassificationConfidence float64            `json:"classification_confidence"`
	RecommendedActions       []ActionType       `json:"recommended_actions,omitempty"`
	AttemptedActions         []ActionType       `json:"attempted_actions,omitempty"`
	ResolutionHistory        []ResolutionRecord `json:"resolution_history,omitempty"`
	EscalationReason         string             `json:"escalation_reason,omitempty"`
	DetectedAt               time.Time          `json:"detected_at"`
	ResolvedAt               *time.Time         `json:"resolved_at,omitempty"`
}

func NewIncident(serviceName string, incidentType IncidentType, severity Severity) *Incident {
	return &Incident{
		ID:          NewUUID(),
		ServiceName: serviceName,
		Type:        incidentType,
		Description: string(incidentType) + " detected in " + serviceName,
		Severity:    severity,
		Status:      IncidentDetected,
		DetectedAt:  time.Now(),
	}
}

// Key identifies the (service, type) pair used for duplicate suppression.
func (i *Incident) Key() string {
	return i.ServiceName + "|" + string(i.Type)
}

// Transition records a status change in the resolution history.
func (i *Incident) Transition(status IncidentStatus, detail string) {
	i.Status = status
	i.ResolutionHistory = append(i.ResolutionHistory, ResolutionRecord{
		Timestamp: time.Now(),
		Status:    status,
		Detail:    detail,
	})
	if status == IncidentResolved {
		now := time.Now()
		i.ResolvedAt = &now
	}
}
