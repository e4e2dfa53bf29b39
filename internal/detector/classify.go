package detector

import (
	"strings"

	"github.com/autonomiq/opsengine/pkg/models"
)

// shortTermWindow is the number of trailing values treated as "sustained"
// behaviour for rule matching.
const shortTermWindow = 5

// ClassifyType maps a metric window to an anomaly type using a deterministic
// rule table keyed on metric name substring and value pattern. Ties default
// to performance degradation.
func ClassifyType(metricName string, values []float64) models.AnomalyType {
	if len(values) == 0 {
		return models.AnomalyDataQualityIssue
	}
	name := strings.ToLower(metricName)

	switch {
	case strings.Contains(name, "response_time") || strings.Contains(name, "latency"):
		if mean(values) > median(values) {
			return models.AnomalyLatencyIncrease
		}
		return models.AnomalyPerformanceDegradation

	case strings.Contains(name, "error") || strings.Contains(name, "failure"):
		return models.AnomalyErrorSpike

	case strings.Contains(name, "memory"):
		// Monotonically rising memory points at a leak.
		if slope(values) > 0 && increasingFraction(values) >= 0.8 {
			return models.AnomalyMemoryLeak
		}
		return models.AnomalyResourceExhaustion

	case strings.Contains(name, "cpu"):
		if mean(tail(values, shortTermWindow)) > 0.8 {
			return models.AnomalyCPUSaturation
		}
		return models.AnomalyPerformanceDegradation

	case strings.Contains(name, "throughput") || strings.Contains(name, "requests"):
		return models.AnomalyThroughputDrop

	case strings.Contains(name, "network") || strings.Contains(name, "timeout"):
		return models.AnomalyNetworkIssues

	case strings.Contains(name, "dependency") || strings.Contains(name, "upstream"):
		return models.AnomalyDependencyFailure

	default:
		return models.AnomalyPerformanceDegradation
	}
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
