package scaling

import (
	"math"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/forecaster"
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

const (
	DefaultCooldown        = 5 * time.Minute
	DefaultConfidenceFloor = 0.6
	DefaultTargetCPU       = 0.7
	DefaultTargetMemory    = 0.8
	DefaultMinInstances    = 1
	DefaultMaxInstances    = 20
)

type Config struct {
	Cooldown        time.Duration
	ConfidenceFloor float64
	TargetCPU       float64
	TargetMemory    float64
	MinInstances    int
	MaxInstances    int
}

// serviceState holds one service's instance count, cooldown clock, and last
// decision behind its own mutex, so evaluating one service never contends
// with another.
type serviceState struct {
	mu           sync.Mutex
	instances    int
	hasInstances bool
	lastScaled   time.Time
	lastDecision *models.ScalingDecision
}

// Planner sizes services ahead of predicted load. Decisions below the
// forecast confidence floor and decisions inside a service's cooldown are
// suppressed to Maintain.
type Planner struct {
	cfg        Config
	buffer     *telemetry.Buffer
	forecaster *forecaster.Forecaster

	// mu guards the state map itself; per-service fields live behind each
	// state's mutex.
	mu     sync.RWMutex
	states map[string]*serviceState

	historyMu sync.Mutex
	history   []*models.ScalingDecision
}

func NewPlanner(cfg Config, buffer *telemetry.Buffer, fc *forecaster.Forecaster) *Planner {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = DefaultConfidenceFloor
	}
	if cfg.TargetCPU <= 0 {
		cfg.TargetCPU = DefaultTargetCPU
	}
	if cfg.TargetMemory <= 0 {
		cfg.TargetMemory = DefaultTargetMemory
	}
	if cfg.MinInstances <= 0 {
		cfg.MinInstances = DefaultMinInstances
	}
	if cfg.MaxInstances <= 0 {
		cfg.MaxInstances = DefaultMaxInstances
	}
	return &Planner{
		cfg:        cfg,
		buffer:     buffer,
		forecaster: fc,
		states:     make(map[string]*serviceState),
	}
}

func (p *Planner) stateFor(service string) *serviceState {
	p.mu.RLock()
	s, ok := p.states[service]
	p.mu.RUnlock()
	if ok {
		return s
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok = p.states[service]; ok {
		return s
	}
	s = &serviceState{}
	p.states[service] = s
	return s
}

// SetInstances seeds or overrides the known instance count for a service.
func (p *Planner) SetInstances(service string, count int) {
	s := p.stateFor(service)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = count
	s.hasInstances = true
}

// Evaluate produces a scaling decision for a service from forecast peaks of
// its utilization metrics. A Maintain decision is returned when the service
// is cooling down, the forecast is untrustworthy, or no change is needed.
func (p *Planner) Evaluate(service string) *models.ScalingDecision {
	current := p.currentInstances(service)

	if remaining := p.CooldownRemaining(service); remaining > 0 {
		decision := models.NewScalingDecision(service, current, current, models.ScaleMaintain, models.TriggerForecast)
		decision.Reason = "cooldown active"
		return decision
	}

	factor, load, confidence := p.demandFactor(service)

	decision := models.NewScalingDecision(service, current, current, models.ScaleMaintain, models.TriggerForecast)
	decision.PredictedLoad = load
	decision.Confidence = confidence

	if confidence < p.cfg.ConfidenceFloor {
		decision.Reason = "forecast confidence below floor"
		return decision
	}

	target := clampInstances(int(math.Ceil(factor*float64(current))), p.cfg.MinInstances, p.cfg.MaxInstances)
	switch {
	case target > current:
		decision.Direction = models.ScaleUp
		decision.Reason = "predicted utilization above target"
	case target < current:
		decision.Direction = models.ScaleDown
		decision.Reason = "predicted utilization below target"
	default:
		decision.Reason = "within target utilization"
		return decision
	}

	decision.TargetInstances = target
	decision.CostImpact = float64(target - current)

	logger.WithService(service).Infof(
		"Scaling decision: %s %d -> %d (load=%.2f, confidence=%.2f)",
		decision.Direction, current, target, load, confidence,
	)
	return decision
}

// demandFactor is the strongest pressure across forecasted CPU and memory
// relative to their targets; confidence is the weakest model confidence
// among the forecasts consulted.
func (p *Planner) demandFactor(service string) (factor, load, confidence float64) {
	factor = 1.0
	confidence = 1.0
	consulted := false

	type target struct {
		metric string
		goal   float64
	}
	for _, t := range []target{
		{models.MetricCPUUsage, p.cfg.TargetCPU},
		{models.MetricMemoryUsage, p.cfg.TargetMemory},
	} {
		values := p.buffer.Values(service, t.metric, 0)
		pred, err := p.forecaster.Predict(values, time.Now())
		if err != nil {
			continue
		}
		consulted = true

		peak := peakOf(pred.Points)
		if peak > load {
			load = peak
		}
		if f := peak / t.goal; f > factor {
			factor = f
		}
		if pred.Confidence < confidence {
			confidence = pred.Confidence
		}
	}

	if !consulted {
		return 1.0, 0, 0
	}
	return factor, load, confidence
}

// Record marks a decision as executed, starting the service's cooldown.
func (p *Planner) Record(decision *models.ScalingDecision) {
	s := p.stateFor(decision.ServiceName)
	s.mu.Lock()
	if decision.ShouldExecute() {
		s.instances = decision.TargetInstances
		s.hasInstances = true
		s.lastScaled = time.Now()
	}
	s.lastDecision = decision
	s.mu.Unlock()

	p.historyMu.Lock()
	p.history = append(p.history, decision)
	p.historyMu.Unlock()
}

// ResetCooldown clears the cooldown for a service, letting the next
// evaluation act immediately.
func (p *Planner) ResetCooldown(service string) {
	s := p.stateFor(service)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScaled = time.Time{}
}

func (p *Planner) CooldownRemaining(service string) time.Duration {
	s := p.stateFor(service)
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.cooldownRemainingLocked(s)
}

// cooldownRemainingLocked requires the state's mutex to be held.
func (p *Planner) cooldownRemainingLocked(s *serviceState) time.Duration {
	if s.lastScaled.IsZero() {
		return 0
	}
	elapsed := time.Since(s.lastScaled)
	if elapsed >= p.cfg.Cooldown {
		return 0
	}
	return p.cfg.Cooldown - elapsed
}

// State reports the queryable scaling status of a service.
func (p *Planner) State(service string) *models.ScalingState {
	s := p.stateFor(service)
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &models.ScalingState{
		ServiceName:      service,
		CurrentInstances: p.instancesLocked(s),
		MinInstances:     p.cfg.MinInstances,
		MaxInstances:     p.cfg.MaxInstances,
		LastDecision:     s.lastDecision,
	}
	if !s.lastScaled.IsZero() {
		t := s.lastScaled
		state.LastScaledAt = &t
		state.CooldownRemaining = p.cooldownRemainingLocked(s)
	}
	return state
}

// History returns executed and suppressed decisions, oldest first.
func (p *Planner) History() []*models.ScalingDecision {
	p.historyMu.Lock()
	defer p.historyMu.Unlock()

	out := make([]*models.ScalingDecision, len(p.history))
	copy(out, p.history)
	return out
}

func (p *Planner) currentInstances(service string) int {
	s := p.stateFor(service)
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.instancesLocked(s)
}

// instancesLocked requires the state's mutex to be held.
func (p *Planner) instancesLocked(s *serviceState) int {
	if s.hasInstances {
		return s.instances
	}
	return p.cfg.MinInstances
}

func peakOf(points []models.ForecastPoint) float64 {
	var peak float64
	for _, pt := range points {
		if pt.Value > peak {
			peak = pt.Value
		}
	}
	return peak
}

func clampInstances(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
