package incident

import (
	"strings"

	"github.com/autonomiq/opsengine/pkg/models"
)

const (
	DefaultMaxPlanLength = 3

	// recommenderCutoff filters low-scoring model suggestions.
	recommenderCutoff = 0.3
	recommenderTopN   = 3
)

// ScoredAction is one model suggestion with its predicted success score.
type ScoredAction struct {
	Action models.ActionType
	Score  float64
}

// Recommender suggests resolution actions from a learned model. Optional;
// the planner works from the knowledge base and rules alone.
type Recommender interface {
	Recommend(incident *models.Incident) []ScoredAction
}

// Planner assembles a bounded resolution plan from model suggestions, the
// knowledge base, and metric-threshold rules, ordered by what the incident's
// severity says to try first.
type Planner struct {
	kb          *KnowledgeBase
	recommender Recommender
	maxPlan     int
}

func NewPlanner(kb *KnowledgeBase, recommender Recommender, maxPlanLength int) *Planner {
	if maxPlanLength <= 0 {
		maxPlanLength = DefaultMaxPlanLength
	}
	return &Planner{kb: kb, recommender: recommender, maxPlan: maxPlanLength}
}

// Plan produces the ordered action list for an incident. Candidates come
// from three sources in turn, are deduplicated, reordered by severity
// priority, and capped.
func (p *Planner) Plan(incident *models.Incident) []models.ActionType {
	var candidates []models.ActionType

	if p.recommender != nil {
		suggestions := p.recommender.Recommend(incident)
		n := 0
		for _, s := range suggestions {
			if s.Score > recommenderCutoff {
				candidates = append(candidates, s.Action)
				n++
				if n == recommenderTopN {
					break
				}
			}
		}
	}

	candidates = append(candidates, p.kb.Actions(incident.Type)...)
	candidates = append(candidates, ruleActions(incident)...)

	if len(candidates) == 0 {
		if incident.Severity.AtLeast(models.SeverityCritical) {
			candidates = p.kb.CriticalIncidentSequence
		} else {
			candidates = p.kb.EscalationSequence
		}
	}

	plan := prioritize(dedupe(candidates), incident.Severity)
	if len(plan) > p.maxPlan {
		plan = plan[:p.maxPlan]
	}
	return plan
}

// ruleActions derives candidates straight from the captured metric snapshot
// and incident type.
func ruleActions(incident *models.Incident) []models.ActionType {
	var out []models.ActionType
	snap := incident.Metrics

	if snap.Get(models.MetricCPUUsage) > 0.8 {
		out = append(out, models.ActionScaleUp, models.ActionRestartService)
	}
	if snap.Get(models.MetricMemoryUsage) > 0.9 {
		out = append(out, models.ActionRestartService, models.ActionClearCache)
	}
	if snap.Get(models.MetricErrorRate) > 0.1 {
		if hasRecentDeployment(incident) {
			out = append(out, models.ActionRollbackDeployment)
		} else {
			out = append(out, models.ActionRestartService, models.ActionCircuitBreaker)
		}
	}
	if snap.Get(models.MetricResponseTime) > 3000 {
		out = append(out, models.ActionClearCache, models.ActionScaleUp)
	}
	if snap.Get(models.MetricDiskUsage) > 0.9 {
		out = append(out, models.ActionClearCache, models.ActionGracefulShutdown)
	}

	typeName := string(incident.Type)
	if strings.Contains(typeName, "database") {
		out = append(out, models.ActionResetConnections, models.ActionRestartService)
	}
	if strings.Contains(typeName, "network") || strings.Contains(typeName, "timeout") {
		out = append(out, models.ActionResetConnections, models.ActionFailover)
	}

	return out
}

// Severity priority orders: the actions worth attempting first at each
// severity tier. Candidates outside the tier list keep insertion order
// after the prioritized ones.
var (
	criticalPriority = []models.ActionType{
		models.ActionFailover,
		models.ActionCircuitBreaker,
		models.ActionScaleUp,
		models.ActionRestartService,
		models.ActionRollbackDeployment,
	}
	highPriority = []models.ActionType{
		models.ActionScaleUp,
		models.ActionRestartService,
		models.ActionRollbackDeployment,
		models.ActionClearCache,
		models.ActionResetConnections,
	}
	defaultPriority = []models.ActionType{
		models.ActionClearCache,
		models.ActionRestartService,
		models.ActionResetConnections,
		models.ActionScaleUp,
		models.ActionGracefulShutdown,
	}
)

func prioritize(actions []models.ActionType, severity models.Severity) []models.ActionType {
	var order []models.ActionType
	switch {
	case severity.AtLeast(models.SeverityCritical):
		order = criticalPriority
	case severity == models.SeverityHigh:
		order = highPriority
	default:
		order = defaultPriority
	}

	present := make(map[models.ActionType]bool, len(actions))
	for _, a := range actions {
		present[a] = true
	}

	out := make([]models.ActionType, 0, len(actions))
	for _, a := range order {
		if present[a] {
			out = append(out, a)
			present[a] = false
		}
	}
	for _, a := range actions {
		if present[a] {
			out = append(out, a)
			present[a] = false
		}
	}
	return out
}

func dedupe(actions []models.ActionType) []models.ActionType {
	seen := make(map[models.ActionType]bool, len(actions))
	out := make([]models.ActionType, 0, len(actions))
	for _, a := range actions {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func hasRecentDeployment(incident *models.Incident) bool {
	return len(incident.Context.RecentDeployments) > 0
}

// Incident types with well-understood quick fixes or notoriously stubborn
// failure modes; both shift the success estimate.
var (
	easyIncidentTypes = map[models.IncidentType]bool{
		models.IncidentCacheOverflow:    true,
		models.IncidentQueueBuildup:     true,
		models.IncidentSlowResponseTime: true,
	}
	hardIncidentTypes = map[models.IncidentType]bool{
		models.IncidentMemoryLeak:        true,
		models.IncidentDatabaseConnError: true,
		models.IncidentNetworkTimeout:    true,
	}
)

// SuccessProbability estimates how likely a plan is to resolve the incident,
// bounded to [0.1, 0.9].
func SuccessProbability(incident *models.Incident, actions []models.ActionType) float64 {
	p := 0.5

	switch incident.Severity {
	case models.SeverityLow:
		p += 0.3
	case models.SeverityMedium:
		p += 0.1
	case models.SeverityHigh:
		p -= 0.1
	default:
		p -= 0.2
	}

	if len(actions) > 2 {
		p -= 0.1 * float64(len(actions)-2)
	}

	if easyIncidentTypes[incident.Type] {
		p += 0.2
	}
	if hardIncidentTypes[incident.Type] {
		p -= 0.15
	}

	for _, a := range actions {
		if a == models.ActionRollbackDeployment && hasRecentDeployment(incident) {
			p += 0.2
			break
		}
	}

	if p < 0.1 {
		p = 0.1
	}
	if p > 0.9 {
		p = 0.9
	}
	return p
}
