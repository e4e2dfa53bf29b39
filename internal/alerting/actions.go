package alerting

import (
	"fmt"

	"github.com/autonomiq/opsengine/pkg/models"
)

// recommendedActions maps an anomaly type to the remediation actions an
// operator (or the resolution engine) should try first.
func recommendedActions(anomalyType models.AnomalyType) []models.ActionType {
	switch anomalyType {
	case models.AnomalyMemoryLeak:
		return []models.ActionType{models.ActionRestartService, models.ActionClearCache}
	case models.AnomalyCPUSaturation:
		return []models.ActionType{models.ActionScaleUp}
	case models.AnomalyErrorSpike:
		return []models.ActionType{models.ActionCircuitBreaker, models.ActionRestartService}
	case models.AnomalyLatencyIncrease:
		return []models.ActionType{models.ActionClearCache, models.ActionScaleUp}
	case models.AnomalyThroughputDrop:
		return []models.ActionType{models.ActionScaleUp}
	case models.AnomalyResourceExhaustion:
		return []models.ActionType{models.ActionScaleUp, models.ActionRestartService}
	case models.AnomalyNetworkIssues:
		return []models.ActionType{models.ActionResetConnections, models.ActionFailover}
	case models.AnomalyDependencyFailure:
		return []models.ActionType{models.ActionCircuitBreaker, models.ActionFailover}
	default:
		return []models.ActionType{models.ActionRestartService}
	}
}

func describeImpact(anomalyType models.AnomalyType, severity models.Severity) string {
	switch anomalyType {
	case models.AnomalyMemoryLeak:
		return fmt.Sprintf("%s: memory exhaustion and eventual OOM kill", severity)
	case models.AnomalyCPUSaturation:
		return fmt.Sprintf("%s: request queuing and rising latency under CPU pressure", severity)
	case models.AnomalyErrorSpike:
		return fmt.Sprintf("%s: elevated request failures visible to clients", severity)
	case models.AnomalyLatencyIncrease:
		return fmt.Sprintf("%s: degraded response times", severity)
	case models.AnomalyThroughputDrop:
		return fmt.Sprintf("%s: reduced serving capacity", severity)
	case models.AnomalyDependencyFailure:
		return fmt.Sprintf("%s: cascading failures from an unhealthy dependency", severity)
	default:
		return fmt.Sprintf("%s: service performance degradation", severity)
	}
}

// canAutoResolve gates unattended remediation: critical-and-above alerts and
// types with destructive recovery paths always require a human in the loop.
func canAutoResolve(anomalyType models.AnomalyType, severity models.Severity) bool {
	if severity.AtLeast(models.SeverityCritical) {
		return false
	}
	switch anomalyType {
	case models.AnomalyDependencyFailure, models.AnomalyDataQualityIssue:
		return false
	}
	return true
}
