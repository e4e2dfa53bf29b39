package models

import "time"

type AnomalyType string

const (
	AnomalyPerformanceDegradation AnomalyType = "performance_degradation"
	AnomalyResourceExhaustion     AnomalyType = "resource_exhaustion"
	AnomalyErrorSpike             AnomalyType = "error_spike"
	AnomalyLatencyIncrease        AnomalyType = "latency_increase"
	AnomalyThroughputDrop         AnomalyType = "throughput_drop"
	AnomalyMemoryLeak             AnomalyType = "memory_leak"
	AnomalyCPUSaturation          AnomalyType = "cpu_saturation"
	AnomalyNetworkIssues          AnomalyType = "network_issues"
	AnomalyDependencyFailure      AnomalyType = "dependency_failure"
	AnomalyDataQualityIssue       AnomalyType = "data_quality_issue"
)

// AnomalyResult is the outcome of scoring one metric window. Transient:
// it lives only long enough to spawn an alert.
type AnomalyResult struct {
	ServiceName string      `json:"service_name"`
	MetricName  string      `json:"metric_name"`
	IsAnomaly   bool        `json:"is_anomaly"`
	Score       float64     `json:"score"`
	AnomalyType AnomalyType `json:"anomaly_type"`
	Confidence  float64     `json:"confidence"`
	Value       float64     `json:"value"`
	DetectedAt  time.Time   `json:"detected_at"`
}

// criticalAnomalyTypes bump alert severity one level when they fire.
var criticalAnomalyTypes = map[AnomalyType]bool{
	AnomalyDependencyFailure:  true,
	AnomalyResourceExhaustion: true,
	AnomalyErrorSpike:         true,
}

func (t AnomalyType) IsCriticalType() bool {
	return criticalAnomalyTypes[t]
}
