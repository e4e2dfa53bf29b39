package models

import "time"

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
	HealthDown     HealthStatus = "down"
)

// HealthSubscores are the weighted components of an overall health score,
// each on a 0-100 scale.
type HealthSubscores struct {
	Performance float64 `json:"performance"`
	Reliability float64 `json:"reliability"`
	Resource    float64 `json:"resource"`
	Error       float64 `json:"error"`
}

// ServiceHealthScore is the derived health of one service. Recomputation
// replaces the prior score wholesale, never field by field.
type ServiceHealthScore struct {
	ServiceName  string          `json:"service_name"`
	OverallScore float64         `json:"overall_score"`
	Subscores    HealthSubscores `json:"subscores"`
	Status       HealthStatus    `json:"status"`
	ComputedAt   time.Time       `json:"computed_at"`
}

// StatusForScore maps an overall 0-100 score to a health status band.
func StatusForScore(score float64) HealthStatus {
	switch {
	case score >= 90:
		return HealthHealthy
	case score >= 75:
		return HealthWarning
	case score >= 50:
		return HealthDegraded
	case score >= 25:
		return HealthCritical
	default:
		return HealthDown
	}
}

func (h *ServiceHealthScore) IsHealthy() bool {
	return h.Status == HealthHealthy
}
