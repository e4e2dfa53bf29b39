package models

import "time"

type ActionType string

const (
	ActionRestartService     ActionType = "restart_service"
	ActionScaleUp            ActionType = "scale_up"
	ActionScaleDown          ActionType = "scale_down"
	ActionClearCache         ActionType = "clear_cache"
	ActionRollbackDeployment ActionType = "rollback_deployment"
	ActionApplyHotfix        ActionType = "apply_hotfix"
	ActionFailover           ActionType = "failover"
	ActionCircuitBreaker     ActionType = "circuit_breaker"
	ActionGracefulShutdown   ActionType = "graceful_shutdown"
	ActionResetConnections   ActionType = "reset_connections"
)

// RollbackAction returns the compensating action name for an action.
func (a ActionType) RollbackAction() string {
	switch a {
	case ActionScaleUp:
		return "scale_down_to_original"
	case ActionScaleDown:
		return "scale_up_to_original"
	case ActionRestartService:
		return "restore_previous_state"
	case ActionRollbackDeployment:
		return "redeploy_to_target_version"
	case ActionClearCache:
		return "restore_cache_if_possible"
	case ActionFailover:
		return "failback_to_primary"
	case ActionCircuitBreaker:
		return "close_circuit_breaker"
	default:
		return "undo_" + string(a)
	}
}

// ActionResult is what an ActionExecutor reports back for one action.
type ActionResult struct {
	Success         bool          `json:"success"`
	Details         string        `json:"details,omitempty"`
	Error           string        `json:"error,omitempty"`
	CriticalFailure bool          `json:"critical_failure"`
	Duration        time.Duration `json:"duration"`
}

// ExecutionLogEntry is one audit-trail record in a workflow's execution log.
type ExecutionLogEntry struct {
	Action        string             `json:"action"`
	Timestamp     time.Time          `json:"timestamp"`
	Success       bool               `json:"success"`
	Details       string             `json:"details,omitempty"`
	Error         string             `json:"error,omitempty"`
	MetricsBefore map[string]float64 `json:"metrics_before,omitempty"`
	MetricsAfter  map[string]float64 `json:"metrics_after,omitempty"`
}

// ResolutionWorkflow is one resolution attempt for one incident. Owned
// exclusively by the executor while active.
type ResolutionWorkflow struct {
	ID                 string              `json:"id"`
	IncidentID         string              `json:"incident_id"`
	Actions            []ActionType        `json:"actions"`
	CurrentStep        int                 `json:"current_step"`
	SuccessProbability float64             `json:"success_probability"`
	RollbackActions    []string            `json:"rollback_actions"`
	ExecutionLog       []ExecutionLogEntry `json:"execution_log,omitempty"`
	StartedAt          *time.Time          `json:"started_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
}

func NewResolutionWorkflow(incidentID string, actions []ActionType, successProbability float64) *ResolutionWorkflow {
	rollbacks := make([]string, 0, len(actions))
	for _, a := range actions {
		rollbacks = append(rollbacks, a.RollbackAction())
	}
	return &ResolutionWorkflow{
		ID:                 NewUUID(),
		IncidentID:         incidentID,
		Actions:            actions,
		SuccessProbability: successProbability,
		RollbackActions:    rollbacks,
	}
}

// ImpactAssessment summarizes the cost of a resolution attempt.
type ImpactAssessment struct {
	ActionsAttempted  int     `json:"actions_attempted"`
	ActionsSuccessful int     `json:"actions_successful"`
	TotalDowntime     float64 `json:"total_downtime_seconds"`
	PerformanceImpact string  `json:"performance_impact"`
	CostImpact        string  `json:"cost_impact"`
	RiskLevel         string  `json:"risk_level"`
	EscalationReason  string  `json:"escalation_reason,omitempty"`
}

// ResolutionResult is the terminal outcome of one workflow execution.
type ResolutionResult struct {
	WorkflowID         string           `json:"workflow_id"`
	IncidentID         string           `json:"incident_id"`
	Success            bool             `json:"success"`
	Escalated          bool             `json:"escalated"`
	ActionsExecuted    []string         `json:"actions_executed"`
	ResolutionTime     time.Duration    `json:"resolution_time"`
	ConfidenceScore    float64          `json:"confidence_score"`
	Impact             ImpactAssessment `json:"impact"`
	LessonsLearned     []string         `json:"lessons_learned,omitempty"`
	RequireHumanReview bool             `json:"require_human_review"`
}
