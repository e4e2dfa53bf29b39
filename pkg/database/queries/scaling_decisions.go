package queries

import (
	"context"
	"database/sql"
	"time"
)

type ScalingDecisionRepository struct {
	db *sql.DB
}

func NewScalingDecisionRepository(db *sql.DB) *ScalingDecisionRepository {
	return &ScalingDecisionRepository{db: db}
}

type ScalingDecisionRecord struct {
	ID               string    `json:"id"`
	ServiceName      string    `json:"service_name"`
	CurrentInstances int       `json:"current_instances"`
	TargetInstances  int       `json:"target_instances"`
	Direction        string    `json:"direction"`
	PredictedLoad    float64   `json:"predicted_load"`
	Confidence       float64   `json:"confidence"`
	Trigger          string    `json:"trigger"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

func (r *ScalingDecisionRepository) GetByService(ctx context.Context, serviceName string, from, to time.Time, limit int) ([]ScalingDecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, service_name, current_instances, target_instances, direction,
			   predicted_load, confidence, trigger_type, reason, created_at
		FROM scaling_decisions
		WHERE service_name = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, serviceName, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingDecisions(rows)
}

func (r *ScalingDecisionRepository) GetRecent(ctx context.Context, limit int) ([]ScalingDecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, service_name, current_instances, target_instances, direction,
			   predicted_load, confidence, trigger_type, reason, created_at
		FROM scaling_decisions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScalingDecisions(rows)
}

type ScalingDecisionStats struct {
	ServiceName    string    `json:"service_name"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	ScaleUpCount   int       `json:"scale_up_count"`
	ScaleDownCount int       `json:"scale_down_count"`
	MaintainCount  int       `json:"maintain_count"`
	ForecastCount  int       `json:"forecast_count"`
}

func (r *ScalingDecisionRepository) GetStats(ctx context.Context, serviceName string, from, to time.Time) (*ScalingDecisionStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE direction = 'up') AS scale_up_count,
			COUNT(*) FILTER (WHERE direction = 'down') AS scale_down_count,
			COUNT(*) FILTER (WHERE direction = 'maintain') AS maintain_count,
			COUNT(*) FILTER (WHERE trigger_type = 'forecast') AS forecast_count
		FROM scaling_decisions
		WHERE service_name = $1 AND created_at >= $2 AND created_at <= $3`

	var stats ScalingDecisionStats
	err := r.db.QueryRowContext(ctx, query, serviceName, from, to).Scan(
		&stats.ScaleUpCount, &stats.ScaleDownCount,
		&stats.MaintainCount, &stats.ForecastCount,
	)

	if err != nil {
		return nil, err
	}

	stats.ServiceName = serviceName
	stats.From = from
	stats.To = to

	return &stats, nil
}

func scanScalingDecisions(rows *sql.Rows) ([]ScalingDecisionRecord, error) {
	var decisions []ScalingDecisionRecord
	for rows.Next() {
		var d ScalingDecisionRecord
		err := rows.Scan(
			&d.ID, &d.ServiceName, &d.CurrentInstances, &d.TargetInstances,
			&d.Direction, &d.PredictedLoad, &d.Confidence,
			&d.Trigger, &d.Reason, &d.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
