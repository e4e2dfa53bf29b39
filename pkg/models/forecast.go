package models

import "time"

// ForecastPoint is one projected future observation.
type ForecastPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ConfidenceInterval bounds one forecast point.
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// CapacityForecast projects a metric's near-term trajectory against its
// capacity limit. Recomputed each cycle; superseded, never merged.
type CapacityForecast struct {
	ServiceName         string               `json:"service_name"`
	MetricName          string               `json:"metric_name"`
	CurrentValue        float64              `json:"current_value"`
	ForecastPoints      []ForecastPoint      `json:"forecast_points"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals"`
	Confidence          float64              `json:"confidence"`
	CapacityLimit       float64              `json:"capacity_limit"`
	TimeToCapacity      *time.Duration       `json:"time_to_capacity,omitempty"`
	GrowthRate          float64              `json:"growth_rate"`
	Model               string               `json:"model"`
	ComputedAt          time.Time            `json:"computed_at"`
}

// WillExhaust reports whether the projection crosses the capacity limit
// within the forecast horizon.
func (f *CapacityForecast) WillExhaust() bool {
	return f != nil && f.TimeToCapacity != nil
}

// PeakValue returns the highest projected value, or the current value when
// no points were produced.
func (f *CapacityForecast) PeakValue() float64 {
	peak := f.CurrentValue
	for _, p := range f.ForecastPoints {
		if p.Value > peak {
			peak = p.Value
		}
	}
	return peak
}
