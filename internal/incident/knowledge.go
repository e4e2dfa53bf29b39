package incident

import "github.com/autonomiq/opsengine/pkg/models"

// KnowledgeBase holds known-good resolution patterns per incident type plus
// generic escalation sequences used when no specific pattern exists.
type KnowledgeBase struct {
	patterns map[models.IncidentType][]models.ActionType

	// EscalationSequence is the generic try-harder ladder for unclassified
	// or repeat incidents.
	EscalationSequence []models.ActionType
	// CriticalIncidentSequence is the aggressive path for critical incidents.
	CriticalIncidentSequence []models.ActionType
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		patterns: map[models.IncidentType][]models.ActionType{
			models.IncidentMemoryLeak:         {models.ActionRestartService, models.ActionClearCache},
			models.IncidentCacheOverflow:      {models.ActionClearCache, models.ActionRestartService},
			models.IncidentDatabaseConnError:  {models.ActionResetConnections, models.ActionRestartService},
			models.IncidentNetworkTimeout:     {models.ActionResetConnections, models.ActionFailover},
			models.IncidentHighCPU:            {models.ActionScaleUp, models.ActionRestartService},
			models.IncidentCriticalCPU:        {models.ActionScaleUp, models.ActionFailover},
			models.IncidentHighMemory:         {models.ActionRestartService, models.ActionClearCache},
			models.IncidentCriticalMemory:     {models.ActionRestartService, models.ActionScaleUp},
			models.IncidentQueueBuildup:       {models.ActionScaleUp, models.ActionClearCache},
			models.IncidentThroughputDegraded: {models.ActionScaleUp},
		},
		EscalationSequence: []models.ActionType{
			models.ActionRestartService,
			models.ActionClearCache,
			models.ActionScaleUp,
			models.ActionRollbackDeployment,
		},
		CriticalIncidentSequence: []models.ActionType{
			models.ActionFailover,
			models.ActionScaleUp,
			models.ActionCircuitBreaker,
		},
	}
}

// Actions returns the known resolution pattern for an incident type, or nil
// when the knowledge base has none.
func (kb *KnowledgeBase) Actions(incidentType models.IncidentType) []models.ActionType {
	actions := kb.patterns[incidentType]
	out := make([]models.ActionType, len(actions))
	copy(out, actions)
	return out
}

// Record stores a successful pattern so later incidents of the same type
// start from what worked.
func (kb *KnowledgeBase) Record(incidentType models.IncidentType, actions []models.ActionType) {
	if len(actions) == 0 {
		return
	}
	stored := make([]models.ActionType, len(actions))
	copy(stored, actions)
	kb.patterns[incidentType] = stored
}
