package queries

import (
	"context"
	"database/sql"
	"time"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

type AlertRecord struct {
	ID              string    `json:"id"`
	ServiceName     string    `json:"service_name"`
	MetricName      string    `json:"metric_name"`
	AlertType       string    `json:"alert_type"`
	Severity        string    `json:"severity"`
	Confidence      float64   `json:"confidence"`
	PredictedImpact string    `json:"predicted_impact"`
	AutoResolvable  bool      `json:"auto_resolvable"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *AlertRepository) GetByService(ctx context.Context, serviceName string, from, to time.Time, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, service_name, metric_name, alert_type, severity,
			   confidence, predicted_impact, auto_resolvable, created_at
		FROM alerts
		WHERE service_name = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, serviceName, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func (r *AlertRepository) GetRecent(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, service_name, metric_name, alert_type, severity,
			   confidence, predicted_impact, auto_resolvable, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]AlertRecord, error) {
	var alerts []AlertRecord
	for rows.Next() {
		var a AlertRecord
		err := rows.Scan(
			&a.ID, &a.ServiceName, &a.MetricName, &a.AlertType,
			&a.Severity, &a.Confidence, &a.PredictedImpact,
			&a.AutoResolvable, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
