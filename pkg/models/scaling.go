package models

import "time"

type ScalingDirection string

const (
	ScaleUp       ScalingDirection = "up"
	ScaleDown     ScalingDirection = "down"
	ScaleMaintain ScalingDirection = "maintain"
)

type ScalingTrigger string

const (
	TriggerForecast  ScalingTrigger = "forecast"
	TriggerThreshold ScalingTrigger = "threshold"
	TriggerIncident  ScalingTrigger = "incident"
	TriggerManual    ScalingTrigger = "manual"
)

// RollbackCriteria describes the conditions under which an executed scaling
// decision should be reverted by the execution collaborator.
type RollbackCriteria struct {
	MaxResponseTimeMs float64 `json:"max_response_time_ms"`
	MaxErrorRate      float64 `json:"max_error_rate"`
	MinCPUUtilization float64 `json:"min_cpu_utilization"`
}

// DefaultRollbackCriteria are attached to every emitted decision.
func DefaultRollbackCriteria() RollbackCriteria {
	return RollbackCriteria{
		MaxResponseTimeMs: 200,
		MaxErrorRate:      0.05,
		MinCPUUtilization: 0.1,
	}
}

// ScalingDecision is one scaling evaluation outcome for a service.
type ScalingDecision struct {
	ID               string           `json:"id"`
	ServiceName      string           `json:"service_name"`
	CurrentInstances int              `json:"current_instances"`
	TargetInstances  int              `json:"target_instances"`
	Direction        ScalingDirection `json:"direction"`
	PredictedLoad    float64          `json:"predicted_load"`
	Confidence       float64          `json:"confidence"`
	CostImpact       float64          `json:"cost_impact"`
	Trigger          ScalingTrigger   `json:"trigger"`
	Reason           string           `json:"reason,omitempty"`
	ExecuteAt        time.Time        `json:"execute_at"`
	Rollback         RollbackCriteria `json:"rollback_criteria"`
	CreatedAt        time.Time        `json:"created_at"`
}

func NewScalingDecision(serviceName string, current, target int, direction ScalingDirection, trigger ScalingTrigger) *ScalingDecision {
	now := time.Now()
	return &ScalingDecision{
		ID:               NewUUID(),
		ServiceName:      serviceName,
		CurrentInstances: current,
		TargetInstances:  target,
		Direction:        direction,
		Trigger:          trigger,
		ExecuteAt:        now,
		Rollback:         DefaultRollbackCriteria(),
		CreatedAt:        now,
	}
}

func (d *ScalingDecision) InstanceDelta() int {
	return d.TargetInstances - d.CurrentInstances
}

// ShouldExecute reports whether the decision represents an actual change.
func (d *ScalingDecision) ShouldExecute() bool {
	return d.Direction != ScaleMaintain
}

// ScalingState is the queryable scaling status of one service.
type ScalingState struct {
	ServiceName       string           `json:"service_name"`
	CurrentInstances  int              `json:"current_instances"`
	MinInstances      int              `json:"min_instances"`
	MaxInstances      int              `json:"max_instances"`
	CooldownRemaining time.Duration    `json:"cooldown_remaining"`
	LastDecision      *ScalingDecision `json:"last_decision,omitempty"`
	LastScaledAt      *time.Time       `json:"last_scaled_at,omitempty"`
}
