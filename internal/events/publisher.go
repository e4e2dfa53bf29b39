package events

import (
	"github.com/autonomiq/opsengine/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) AlertRaised(alert *models.Alert) {
	msg := "Alert raised: " + string(alert.Type)
	event := models.NewEvent(models.EventTypeAlertRaised, alert.ServiceName, msg).
		WithData(alert)

	if alert.Severity.AtLeast(models.SeverityCritical) {
		event.WithSeverity(models.EventCritical)
	} else if alert.Severity == models.SeverityHigh {
		event.WithSeverity(models.EventWarning)
	}

	p.publish(event)
}

func (p *Publisher) AlertSuppressed(alert *models.Alert) {
	event := models.NewEvent(models.EventTypeAlertSuppressed, alert.ServiceName, "Alert suppressed as duplicate").
		WithData(alert)
	p.publish(event)
}

func (p *Publisher) AlertsCorrelated(record *models.CorrelationRecord) {
	event := models.NewEvent(models.EventTypeAlertsCorrelated, record.ServiceName, "Concurrent alerts correlated").
		WithSeverity(models.EventWarning).
		WithData(record)
	p.publish(event)
}

func (p *Publisher) IncidentDetected(incident *models.Incident) {
	msg := "Incident detected: " + string(incident.Type)
	event := models.NewEvent(models.EventTypeIncidentDetected, incident.ServiceName, msg).
		WithData(incident)

	if incident.Severity.AtLeast(models.SeverityCritical) {
		event.WithSeverity(models.EventCritical)
	}

	p.publish(event)
}

func (p *Publisher) IncidentResolved(incident *models.Incident, result *models.ResolutionResult) {
	msg := "Incident resolved: " + string(incident.Type)
	event := models.NewEvent(models.EventTypeIncidentResolved, incident.ServiceName, msg).
		WithData(result)
	p.publish(event)
}

func (p *Publisher) IncidentEscalated(incident *models.Incident, reason string) {
	msg := "Incident escalated: " + reason
	event := models.NewEvent(models.EventTypeIncidentEscalated, incident.ServiceName, msg).
		WithSeverity(models.EventCritical).
		WithData(incident)
	p.publish(event)
}

func (p *Publisher) IncidentFailed(incident *models.Incident) {
	msg := "Incident resolution failed: " + string(incident.Type)
	event := models.NewEvent(models.EventTypeIncidentFailed, incident.ServiceName, msg).
		WithSeverity(models.EventCritical).
		WithData(incident)
	p.publish(event)
}

func (p *Publisher) ActionExecuted(serviceName string, entry models.ExecutionLogEntry) {
	msg := "Action executed: " + entry.Action
	event := models.NewEvent(models.EventTypeActionExecuted, serviceName, msg).
		WithData(entry)

	if !entry.Success {
		event.WithSeverity(models.EventWarning)
	}

	p.publish(event)
}

func (p *Publisher) RollbackExecuted(serviceName, rollbackAction string) {
	msg := "Rollback executed: " + rollbackAction
	event := models.NewEvent(models.EventTypeRollbackExecuted, serviceName, msg).
		WithSeverity(models.EventWarning)
	p.publish(event)
}

func (p *Publisher) ScalingDecision(decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Direction)
	event := models.NewEvent(models.EventTypeScalingDecision, decision.ServiceName, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ForecastComputed(forecast *models.CapacityForecast) {
	msg := "Capacity forecast computed: " + forecast.MetricName
	event := models.NewEvent(models.EventTypeForecastComputed, forecast.ServiceName, msg).
		WithData(forecast)

	if forecast.WillExhaust() {
		event.WithSeverity(models.EventWarning)
	}

	p.publish(event)
}

func (p *Publisher) Error(serviceName string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, serviceName, message).
		WithSeverity(models.EventCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
