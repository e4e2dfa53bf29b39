package detector

import (
	"errors"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

var (
	// ErrInsufficientData means the window is too short for the model.
	// Callers treat this as "no signal", not as failure.
	ErrInsufficientData = errors.New("insufficient data for detection")

	// ErrModelUnavailable means the trained ensemble is missing or unfitted.
	// A statistical fallback always exists.
	ErrModelUnavailable = errors.New("detection model unavailable")
)

// MinSamples is the history floor below which only the data-quality result
// is returned.
const MinSamples = 10

// Window is a snapshot of recent values for one (service, metric) series,
// ordered oldest to newest.
type Window struct {
	ServiceName string
	MetricName  string
	Values      []float64
	End         time.Time
}

// Current returns the newest value in the window.
func (w Window) Current() float64 {
	if len(w.Values) == 0 {
		return 0
	}
	return w.Values[len(w.Values)-1]
}

// Result is the outcome of scoring one window.
type Result struct {
	IsAnomaly  bool
	Score      float64
	Type       models.AnomalyType
	Confidence float64
}

// Detector scores a metric window for anomalies. Implementations must be
// safe for concurrent use; detection is a pure function over the snapshot.
type Detector interface {
	Detect(window Window) (Result, error)
}

// Composite prefers the trained ensemble and falls back to statistics when
// the ensemble is unfitted or the window is too short for it.
type Composite struct {
	primary  *Ensemble
	fallback *Statistical
}

func NewComposite(primary *Ensemble, fallback *Statistical) *Composite {
	return &Composite{primary: primary, fallback: fallback}
}

func (c *Composite) Detect(window Window) (Result, error) {
	if c.primary != nil {
		result, err := c.primary.Detect(window)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrModelUnavailable) && !errors.Is(err, ErrInsufficientData) {
			return Result{}, err
		}
	}
	return c.fallback.Detect(window)
}
