package models

import "time"

// MetricSample is a single telemetry observation. Immutable once recorded.
type MetricSample struct {
	ServiceName string    `json:"service_name"`
	MetricName  string    `json:"metric_name"`
	Value       float64   `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}

// MetricsSnapshot captures the latest value per metric for a service at a
// point in time. Used for incident detection and before/after comparison.
type MetricsSnapshot struct {
	ServiceName string             `json:"service_name"`
	Timestamp   time.Time          `json:"timestamp"`
	Values      map[string]float64 `json:"values"`
}

func NewMetricsSnapshot(serviceName string) *MetricsSnapshot {
	return &MetricsSnapshot{
		ServiceName: serviceName,
		Timestamp:   time.Now(),
		Values:      make(map[string]float64),
	}
}

// Get returns the value for a metric, or 0 when the metric is absent.
func (s *MetricsSnapshot) Get(metric string) float64 {
	if s == nil || s.Values == nil {
		return 0
	}
	return s.Values[metric]
}

func (s *MetricsSnapshot) Set(metric string, value float64) {
	if s.Values == nil {
		s.Values = make(map[string]float64)
	}
	s.Values[metric] = value
}

// Well-known metric names used by detection rules and verification predicates.
const (
	MetricCPUUsage     = "cpu_usage"
	MetricMemoryUsage  = "memory_usage"
	MetricDiskUsage    = "disk_usage"
	MetricErrorRate    = "error_rate"
	MetricResponseTime = "response_time"
	MetricThroughput   = "throughput"
	MetricQueueDepth   = "queue_depth"
)
