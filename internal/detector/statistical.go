package detector

import (
	"github.com/autonomiq/opsengine/pkg/models"
)

// Statistical is the rule-of-thumb fallback detector: a 3-sigma Z-score test
// combined with a 1.5*IQR fence. Either test firing marks the window
// anomalous. Stateless and safe for concurrent use.
type Statistical struct{}

func NewStatistical() *Statistical {
	return &Statistical{}
}

func (s *Statistical) Detect(window Window) (Result, error) {
	values := window.Values
	if len(values) < MinSamples {
		return Result{
			IsAnomaly: false,
			Score:     0,
			Type:      models.AnomalyDataQualityIssue,
		}, nil
	}

	current := window.Current()
	history := values[:len(values)-1]

	m := mean(history)
	sd := stddev(history)

	var zScore float64
	anomalousZ := false
	if sd > 0 {
		zScore = abs(current-m) / sd
		anomalousZ = zScore > 3.0
	}

	q1 := percentile(history, 25)
	q3 := percentile(history, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	anomalousIQR := current < lower || current > upper

	// Score is the stronger of the normalized Z-score and the fence
	// overshoot, so a point far outside a tight IQR still ranks high even
	// when outliers have already inflated the standard deviation.
	score := zScore / 3.0
	if anomalousIQR && iqr > 0 {
		var excess float64
		if current > upper {
			excess = (current - upper) / (1.5 * iqr)
		} else {
			excess = (lower - current) / (1.5 * iqr)
		}
		if excess > score {
			score = excess
		}
	}

	result := Result{
		IsAnomaly: anomalousZ || anomalousIQR,
		Score:     clamp(score, 0, 1),
		Type:      ClassifyType(window.MetricName, values),
	}
	result.Confidence = result.Score
	return result, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
