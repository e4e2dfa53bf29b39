package forecaster

import (
	"errors"
	"math"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

// ErrInsufficientData means too few points to fit any model. Callers treat
// the missing forecast as "no near-term risk signal".
var ErrInsufficientData = errors.New("insufficient data for forecasting")

const (
	DefaultHorizon           = 15
	DefaultMinPoints         = 10
	DefaultMinAdvancedPoints = 20
	DefaultStepDuration      = time.Minute

	// Holt smoothing coefficients.
	holtAlpha = 0.5
	holtBeta  = 0.3
)

type Config struct {
	Horizon           int
	MinPoints         int
	MinAdvancedPoints int
	StepDuration      time.Duration
}

// Forecaster projects near-term metric trajectories. Computation is a pure
// function over the snapshot and safe to run in parallel across metrics.
type Forecaster struct {
	cfg Config
}

func New(cfg Config) *Forecaster {
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = DefaultMinPoints
	}
	if cfg.MinAdvancedPoints <= 0 {
		cfg.MinAdvancedPoints = DefaultMinAdvancedPoints
	}
	if cfg.StepDuration <= 0 {
		cfg.StepDuration = DefaultStepDuration
	}
	return &Forecaster{cfg: cfg}
}

func (f *Forecaster) Horizon() int {
	return f.cfg.Horizon
}

func (f *Forecaster) StepDuration() time.Duration {
	return f.cfg.StepDuration
}

// Prediction is a fitted projection over the configured horizon.
type Prediction struct {
	Points     []models.ForecastPoint
	Intervals  []models.ConfidenceInterval
	Confidence float64
	Model      string
	GrowthRate float64
}

// Predict fits a model to the series and projects the horizon. Series with
// at least MinAdvancedPoints use Holt double-exponential smoothing; shorter
// series fall back to linear regression; below MinPoints no model fits.
func (f *Forecaster) Predict(values []float64, start time.Time) (*Prediction, error) {
	if len(values) < f.cfg.MinPoints {
		return nil, ErrInsufficientData
	}
	if len(values) >= f.cfg.MinAdvancedPoints {
		return f.holt(values, start), nil
	}
	return f.linear(values, start), nil
}

// holt fits additive-trend double exponential smoothing. Confidence starts
// at 0.7 and is reduced toward 0.5 as residual variance approaches the
// series variance, bounded to [0.1, 0.95].
func (f *Forecaster) holt(values []float64, start time.Time) *Prediction {
	level := values[0]
	trend := values[1] - values[0]

	residuals := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		forecast := level + trend
		residuals = append(residuals, values[i]-forecast)

		prevLevel := level
		level = holtAlpha*values[i] + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(level-prevLevel) + (1-holtBeta)*trend
	}

	residStd := stddev(residuals)
	dataVar := variance(values)
	confidence := 0.7
	if dataVar > 0 {
		residVar := residStd * residStd
		confidence -= 0.2 * math.Min(1, residVar/dataVar)
	}
	confidence = clamp(confidence, 0.1, 0.95)

	points := make([]models.ForecastPoint, f.cfg.Horizon)
	intervals := make([]models.ConfidenceInterval, f.cfg.Horizon)
	for h := 1; h <= f.cfg.Horizon; h++ {
		value := level + float64(h)*trend
		points[h-1] = models.ForecastPoint{
			Time:  start.Add(time.Duration(h) * f.cfg.StepDuration),
			Value: value,
		}
		intervals[h-1] = models.ConfidenceInterval{
			Lower: value - 1.96*residStd,
			Upper: value + 1.96*residStd,
		}
	}

	return &Prediction{
		Points:     points,
		Intervals:  intervals,
		Confidence: confidence,
		Model:      "holt",
		GrowthRate: trend,
	}
}

// linear fits a least-squares line; confidence is the R-squared of the fit
// clamped to [0.1, 0.9].
func (f *Forecaster) linear(values []float64, start time.Time) *Prediction {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	var slope, intercept float64
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / n
	} else {
		intercept = sumY / n
	}

	residuals := make([]float64, len(values))
	var ssRes, ssTot float64
	meanY := sumY / n
	for i, v := range values {
		fitted := intercept + slope*float64(i)
		residuals[i] = v - fitted
		ssRes += residuals[i] * residuals[i]
		d := v - meanY
		ssTot += d * d
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	confidence := clamp(rSquared, 0.1, 0.9)
	residStd := stddev(residuals)

	points := make([]models.ForecastPoint, f.cfg.Horizon)
	intervals := make([]models.ConfidenceInterval, f.cfg.Horizon)
	for h := 1; h <= f.cfg.Horizon; h++ {
		x := n - 1 + float64(h)
		value := intercept + slope*x
		points[h-1] = models.ForecastPoint{
			Time:  start.Add(time.Duration(h) * f.cfg.StepDuration),
			Value: value,
		}
		intervals[h-1] = models.ConfidenceInterval{
			Lower: value - 1.96*residStd,
			Upper: value + 1.96*residStd,
		}
	}

	return &Prediction{
		Points:     points,
		Intervals:  intervals,
		Confidence: confidence,
		Model:      "linear",
		GrowthRate: slope,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	return math.Sqrt(variance(values))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
