package resolution

import (
	"fmt"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

// assessImpact summarizes the operational cost of a workflow from its
// execution log.
func assessImpact(workflow *models.ResolutionWorkflow) models.ImpactAssessment {
	attempted := 0
	successful := 0
	failed := 0
	var downtime time.Duration
	sawFailover := false
	sawRollback := false
	sawScaleUp := false

	for _, entry := range workflow.ExecutionLog {
		attempted++
		if entry.Success {
			successful++
		} else {
			failed++
		}
		switch entry.Action {
		case string(models.ActionFailover):
			sawFailover = true
		case string(models.ActionRollbackDeployment):
			sawRollback = true
		case string(models.ActionScaleUp):
			sawScaleUp = true
		}
	}
	if workflow.StartedAt != nil && workflow.CompletedAt != nil {
		downtime = workflow.CompletedAt.Sub(*workflow.StartedAt)
	}

	impact := models.ImpactAssessment{
		ActionsAttempted:  attempted,
		ActionsSuccessful: successful,
		TotalDowntime:     downtime.Seconds(),
		PerformanceImpact: "minimal",
		CostImpact:        "low",
		RiskLevel:         "low",
	}

	if sawFailover || sawRollback {
		impact.PerformanceImpact = "significant"
	} else if attempted > 2 {
		impact.PerformanceImpact = "moderate"
	}

	if sawFailover {
		impact.CostImpact = "high"
	} else if sawScaleUp {
		impact.CostImpact = "medium"
	}

	switch {
	case failed > 1:
		impact.RiskLevel = "high"
	case failed == 1:
		impact.RiskLevel = "medium"
	}

	return impact
}

// lessonsLearned distills the workflow outcome into human-readable notes
// that feed postmortems and the knowledge base.
func lessonsLearned(workflow *models.ResolutionWorkflow, resolutionTime time.Duration, success bool) []string {
	var lessons []string

	successful := 0
	var firstEffective string
	var failedActions []string
	for _, entry := range workflow.ExecutionLog {
		if entry.Success {
			successful++
			if firstEffective == "" {
				firstEffective = entry.Action
			}
		} else {
			failedActions = append(failedActions, entry.Action)
		}
	}

	if success && firstEffective != "" {
		lessons = append(lessons, fmt.Sprintf("Most effective action: %s", firstEffective))
	}
	for _, action := range failedActions {
		lessons = append(lessons, fmt.Sprintf("Action %s failed and should be reviewed for this incident type", action))
	}

	switch {
	case success && resolutionTime < time.Minute:
		lessons = append(lessons, "Quick resolution: pattern is a good automation candidate")
	case resolutionTime > 5*time.Minute:
		lessons = append(lessons, "Slow resolution: consider earlier detection or a shorter action plan")
	}

	if success && len(workflow.Actions) == 1 {
		lessons = append(lessons, "Single-action resolution indicates excellent incident targeting")
	}
	if total := len(workflow.ExecutionLog); total > 0 && successful*2 < total {
		lessons = append(lessons, "Less than half of actions succeeded: revisit the resolution plan")
	}

	return lessons
}
