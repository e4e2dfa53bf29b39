package forecaster

import (
	"strings"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

// ratioMetrics are bounded to [0, 1] and default to a capacity limit of 1.
var ratioMetrics = map[string]bool{
	models.MetricCPUUsage:    true,
	models.MetricMemoryUsage: true,
	models.MetricDiskUsage:   true,
	models.MetricErrorRate:   true,
}

// CapacityLimit resolves the ceiling a metric should not cross: a configured
// limit when present, 1.0 for ratio-shaped metrics, otherwise inferred as
// twice the current value.
func CapacityLimit(metricName string, currentValue float64, configured map[string]float64) float64 {
	if limit, ok := configured[metricName]; ok && limit > 0 {
		return limit
	}
	if ratioMetrics[metricName] || strings.HasSuffix(metricName, "_usage") {
		return 1.0
	}
	return 2 * currentValue
}

// ForecastCapacity projects the series and reports the first horizon point
// crossing the capacity limit. A nil error with TimeToCapacity unset means
// no exhaustion inside the horizon.
func (f *Forecaster) ForecastCapacity(service, metric string, values []float64, configured map[string]float64) (*models.CapacityForecast, error) {
	if len(values) == 0 {
		return nil, ErrInsufficientData
	}
	now := time.Now()

	pred, err := f.Predict(values, now)
	if err != nil {
		return nil, err
	}

	current := values[len(values)-1]
	limit := CapacityLimit(metric, current, configured)

	forecast := &models.CapacityForecast{
		ServiceName:         service,
		MetricName:          metric,
		CurrentValue:        current,
		ForecastPoints:      pred.Points,
		ConfidenceIntervals: pred.Intervals,
		Confidence:          pred.Confidence,
		CapacityLimit:       limit,
		GrowthRate:          pred.GrowthRate,
		Model:               pred.Model,
		ComputedAt:          now,
	}

	for _, p := range pred.Points {
		if p.Value >= limit {
			ttc := p.Time.Sub(now)
			forecast.TimeToCapacity = &ttc
			break
		}
	}
	return forecast, nil
}
