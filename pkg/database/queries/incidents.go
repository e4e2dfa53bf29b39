package queries

import (
	"context"
	"database/sql"
	"time"
)

type IncidentRepository struct {
	db *sql.DB
}

func NewIncidentRepository(db *sql.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

type IncidentRecord struct {
	ID                       string     `json:"id"`
	ServiceName              string     `json:"service_name"`
	IncidentType             string     `json:"incident_type"`
	Severity                 string     `json:"severity"`
	Status                   string     `json:"status"`
	ClassificationConfidence float64    `json:"classification_confidence"`
	EscalationReason         *string    `json:"escalation_reason,omitempty"`
	DetectedAt               time.Time  `json:"detected_at"`
	ResolvedAt               *time.Time `json:"resolved_at,omitempty"`
}

func (r *IncidentRepository) GetByService(ctx context.Context, serviceName string, from, to time.Time, limit int) ([]IncidentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, service_name, incident_type, severity, status,
			   classification_confidence, escalation_reason, detected_at, resolved_at
		FROM incidents
		WHERE service_name = $1 AND detected_at >= $2 AND detected_at <= $3
		ORDER BY detected_at DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, serviceName, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIncidents(rows)
}

func (r *IncidentRepository) GetRecent(ctx context.Context, limit int) ([]IncidentRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, service_name, incident_type, severity, status,
			   classification_confidence, escalation_reason, detected_at, resolved_at
		FROM incidents
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanIncidents(rows)
}

type IncidentStats struct {
	ServiceName    string    `json:"service_name"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	ResolvedCount  int       `json:"resolved_count"`
	EscalatedCount int       `json:"escalated_count"`
	FailedCount    int       `json:"failed_count"`
	TotalCount     int       `json:"total_count"`
}

func (r *IncidentRepository) GetStats(ctx context.Context, serviceName string, from, to time.Time) (*IncidentStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'resolved') AS resolved_count,
			COUNT(*) FILTER (WHERE status = 'escalated') AS escalated_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count,
			COUNT(*) AS total_count
		FROM incidents
		WHERE service_name = $1 AND detected_at >= $2 AND detected_at <= $3`

	var stats IncidentStats
	err := r.db.QueryRowContext(ctx, query, serviceName, from, to).Scan(
		&stats.ResolvedCount, &stats.EscalatedCount,
		&stats.FailedCount, &stats.TotalCount,
	)

	if err != nil {
		return nil, err
	}

	stats.ServiceName = serviceName
	stats.From = from
	stats.To = to

	return &stats, nil
}

func scanIncidents(rows *sql.Rows) ([]IncidentRecord, error) {
	var incidents []IncidentRecord
	for rows.Next() {
		var i IncidentRecord
		err := rows.Scan(
			&i.ID, &i.ServiceName, &i.IncidentType, &i.Severity, &i.Status,
			&i.ClassificationConfidence, &i.EscalationReason,
			&i.DetectedAt, &i.ResolvedAt,
		)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}
