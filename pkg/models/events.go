package models

import "time"

type EventType string

const (
	EventTypeAlertRaised       EventType = "alert_raised"
	EventTypeAlertSuppressed   EventType = "alert_suppressed"
	EventTypeAlertsCorrelated  EventType = "alerts_correlated"
	EventTypeIncidentDetected  EventType = "incident_detected"
	EventTypeIncidentResolved  EventType = "incident_resolved"
	EventTypeIncidentEscalated EventType = "incident_escalated"
	EventTypeIncidentFailed    EventType = "incident_failed"
	EventTypeActionExecuted    EventType = "action_executed"
	EventTypeRollbackExecuted  EventType = "rollback_executed"
	EventTypeScalingDecision   EventType = "scaling_decision"
	EventTypeForecastComputed  EventType = "forecast_computed"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	EventInfo     EventSeverity = "info"
	EventWarning  EventSeverity = "warning"
	EventCritical EventSeverity = "critical"
)

// Event represents an internal engine event.
type Event struct {
	ID          string        `json:"id"`
	Type        EventType     `json:"type"`
	Severity    EventSeverity `json:"severity"`
	ServiceName string        `json:"service_name,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Message     string        `json:"message"`
	TraceID     string        `json:"trace_id,omitempty"`
	Data        interface{}   `json:"data,omitempty"`
}

func NewEvent(eventType EventType, serviceName, message string) *Event {
	return &Event{
		ID:          NewUUID(),
		Type:        eventType,
		Severity:    EventInfo,
		ServiceName: serviceName,
		Timestamp:   time.Now(),
		Message:     message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}
