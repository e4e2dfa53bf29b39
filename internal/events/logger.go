package events

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/database"
	"github.com/autonomiq/opsengine/pkg/models"
)

type EventLogger struct {
	db        *database.DB
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventLogger{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	// Log to structured logger
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"service":    event.ServiceName,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.EventCritical:
		entry.Error(event.Message)
	case models.EventWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if l.db == nil {
		return
	}

	// Persist specific events to database
	switch event.Type {
	case models.EventTypeAlertRaised:
		l.persistAlert(event)
	case models.EventTypeIncidentResolved, models.EventTypeIncidentEscalated, models.EventTypeIncidentFailed:
		l.persistIncident(event)
	case models.EventTypeScalingDecision:
		l.persistScalingDecision(event)
	}
}

func (l *EventLogger) persistAlert(event *models.Event) {
	alert, ok := event.Data.(*models.Alert)
	if !ok {
		return
	}

	query := `
		INSERT INTO alerts
			(id, service_name, metric_name, alert_type, severity, confidence, predicted_impact, auto_resolvable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := l.db.ExecContext(l.ctx, query,
		alert.ID,
		alert.ServiceName,
		alert.MetricName,
		alert.Type,
		alert.Severity,
		alert.Confidence,
		alert.PredictedImpact,
		alert.AutoResolvable,
		alert.CreatedAt,
	)

	if err != nil {
		logger.Errorf("Failed to persist alert: %v", err)
	}
}

func (l *EventLogger) persistIncident(event *models.Event) {
	var incident *models.Incident
	switch data := event.Data.(type) {
	case *models.Incident:
		incident = data
	case *models.ResolutionResult:
		// Resolved incidents carry the result; the incident itself is gone
		// from the active set, so record the outcome instead.
		l.persistResolution(data)
		return
	default:
		return
	}

	history, _ := json.Marshal(incident.ResolutionHistory)

	query := `
		INSERT INTO incidents
			(id, service_name, incident_type, severity, status, classification_confidence, escalation_reason, resolution_history, detected_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			escalation_reason = EXCLUDED.escalation_reason,
			resolution_history = EXCLUDED.resolution_history,
			resolved_at = EXCLUDED.resolved_at`

	_, err := l.db.ExecContext(l.ctx, query,
		incident.ID,
		incident.ServiceName,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.ClassificationConfidence,
		incident.EscalationReason,
		history,
		incident.DetectedAt,
		incident.ResolvedAt,
	)

	if err != nil {
		logger.Errorf("Failed to persist incident: %v", err)
	}
}

// persistResolution records the workflow outcome and marks the incident
// row terminal in the same transaction, so the log never shows a finished
// workflow against a still-open incident.
func (l *EventLogger) persistResolution(result *models.ResolutionResult) {
	actions, _ := json.Marshal(result.ActionsExecuted)
	lessons, _ := json.Marshal(result.LessonsLearned)

	err := l.db.WithTransaction(l.ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(l.ctx, `
			INSERT INTO resolution_log
				(workflow_id, incident_id, success, escalated, actions_executed, resolution_time_ms, confidence_score, lessons_learned, require_human_review)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			result.WorkflowID,
			result.IncidentID,
			result.Success,
			result.Escalated,
			actions,
			result.ResolutionTime.Milliseconds(),
			result.ConfidenceScore,
			lessons,
			result.RequireHumanReview,
		)
		if err != nil {
			return err
		}

		status := models.IncidentResolved
		if !result.Success {
			status = models.IncidentFailed
		}
		_, err = tx.ExecContext(l.ctx, `
			UPDATE incidents SET status = $2, resolved_at = NOW()
			WHERE id = $1`,
			result.IncidentID, status,
		)
		return err
	})

	if err != nil {
		logger.Errorf("Failed to persist resolution result: %v", err)
	}
}

func (l *EventLogger) persistScalingDecision(event *models.Event) {
	decision, ok := event.Data.(*models.ScalingDecision)
	if !ok {
		return
	}

	query := `
		INSERT INTO scaling_decisions
			(id, service_name, current_instances, target_instances, direction, predicted_load, confidence, trigger_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := l.db.ExecContext(l.ctx, query,
		decision.ID,
		decision.ServiceName,
		decision.CurrentInstances,
		decision.TargetInstances,
		decision.Direction,
		decision.PredictedLoad,
		decision.Confidence,
		decision.Trigger,
		decision.Reason,
		decision.CreatedAt,
	)

	if err != nil {
		logger.Errorf("Failed to persist scaling decision: %v", err)
	}
}

func (l *EventLogger) LogToJSON(event *models.Event) string {
	data, _ := json.Marshal(event)
	return string(data)
}
