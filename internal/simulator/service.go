package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

type ServiceSimConfig struct {
	BaseCPU          float64
	BaseMemory       float64
	BaseErrorRate    float64
	BaseResponseTime float64 // milliseconds
	BaseThroughput   float64 // requests per second
	Variance         float64
}

// ServiceSim emits synthetic telemetry for one service. CPU follows the
// configured pattern; memory, error rate, response time, and queue depth
// derive from CPU load plus any active fault injection.
type ServiceSim struct {
	name              string
	baseCPU           float64
	baseMemory        float64
	baseErrorRate     float64
	baseResponseTime  float64
	baseThroughput    float64
	variance          float64
	pattern           Pattern
	spike             *Spike
	leak              *MemoryLeak
	burst             *ErrorBurst
	memoryCorrelation float64 // how much memory follows CPU (0.0 to 1.0)
	mu                sync.RWMutex
}

type Spike struct {
	TargetCPU   float64
	StartTime   time.Time
	Duration    time.Duration
	RampUp      time.Duration
	OriginalCPU float64
}

// MemoryLeak ramps memory toward the target over its duration, independent
// of CPU load. This is what a slow heap leak looks like from outside.
type MemoryLeak struct {
	TargetMemory   float64
	StartTime      time.Time
	Duration       time.Duration
	OriginalMemory float64
}

type ErrorBurst struct {
	TargetRate float64
	StartTime  time.Time
	Duration   time.Duration
}

func NewServiceSim(name string, cfg ServiceSimConfig) *ServiceSim {
	if cfg.BaseCPU <= 0 {
		cfg.BaseCPU = 0.45
	}
	if cfg.BaseMemory <= 0 {
		cfg.BaseMemory = 0.55
	}
	if cfg.BaseErrorRate < 0 {
		cfg.BaseErrorRate = 0
	}
	if cfg.BaseResponseTime <= 0 {
		cfg.BaseResponseTime = 120
	}
	if cfg.BaseThroughput <= 0 {
		cfg.BaseThroughput = 200
	}
	if cfg.Variance <= 0 {
		cfg.Variance = 0.05
	}

	return &ServiceSim{
		name:              name,
		baseCPU:           cfg.BaseCPU,
		baseMemory:        cfg.BaseMemory,
		baseErrorRate:     cfg.BaseErrorRate,
		baseResponseTime:  cfg.BaseResponseTime,
		baseThroughput:    cfg.BaseThroughput,
		variance:          cfg.Variance,
		pattern:           PatternSteady,
		memoryCorrelation: 0.6,
	}
}

func (s *ServiceSim) Name() string {
	return s.name
}

// Snapshot produces the current metric values for one collection tick.
func (s *ServiceSim) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpu := s.currentCPU()
	memory := s.currentMemory(cpu)
	errorRate := s.currentErrorRate(cpu)

	// Response time degrades sharply past 70% CPU
	responseTime := s.baseResponseTime
	if cpu > 0.7 {
		responseTime *= 1 + (cpu-0.7)*8
	}

	// Failing requests do not contribute to successful throughput
	throughput := s.baseThroughput * (1 - errorRate)
	if cpu > 0.9 {
		throughput *= 0.7
	}

	queueDepth := 5.0
	if cpu > 0.8 {
		queueDepth += (cpu - 0.8) * 500
	}

	return map[string]float64{
		models.MetricCPUUsage:     s.jitter(cpu, s.variance, 0, 1),
		models.MetricMemoryUsage:  s.jitter(memory, s.variance/2, 0, 1),
		models.MetricErrorRate:    s.jitter(errorRate, errorRate*0.2, 0, 1),
		models.MetricResponseTime: s.jitter(responseTime, responseTime*0.1, 1, 60000),
		models.MetricThroughput:   s.jitter(throughput, throughput*0.1, 0, math.MaxFloat64),
		models.MetricQueueDepth:   s.jitter(queueDepth, queueDepth*0.2, 0, math.MaxFloat64),
	}
}

func (s *ServiceSim) currentCPU() float64 {
	cpu := s.pattern.Apply(s.baseCPU)

	if s.spike != nil {
		elapsed := time.Since(s.spike.StartTime)

		if elapsed > s.spike.Duration {
			s.spike = nil
		} else if elapsed < s.spike.RampUp {
			progress := float64(elapsed) / float64(s.spike.RampUp)
			cpu = s.spike.OriginalCPU + (s.spike.TargetCPU-s.spike.OriginalCPU)*progress
		} else {
			cpu = s.spike.TargetCPU
		}
	}

	return clampLoad(cpu)
}

func (s *ServiceSim) currentMemory(cpu float64) float64 {
	memory := s.baseMemory

	// Memory tracks CPU changes at the configured correlation
	cpuDelta := cpu - s.baseCPU
	memory += cpuDelta * s.memoryCorrelation

	if s.leak != nil {
		elapsed := time.Since(s.leak.StartTime)

		if elapsed > s.leak.Duration {
			// Leak saturated; memory stays pinned until the sim is reset
			memory = s.leak.TargetMemory
		} else {
			progress := float64(elapsed) / float64(s.leak.Duration)
			memory = s.leak.OriginalMemory + (s.leak.TargetMemory-s.leak.OriginalMemory)*progress
		}
	}

	return clampLoad(memory)
}

func (s *ServiceSim) currentErrorRate(cpu float64) float64 {
	rate := s.baseErrorRate

	// Saturation produces errors on its own
	if cpu > 0.95 {
		rate += (cpu - 0.95) * 2
	}

	if s.burst != nil {
		if time.Since(s.burst.StartTime) > s.burst.Duration {
			s.burst = nil
		} else {
			rate = s.burst.TargetRate
		}
	}

	if rate > 1 {
		rate = 1
	}
	return rate
}

func (s *ServiceSim) jitter(base, variance, min, max float64) float64 {
	value := base + (rand.Float64()*2-1)*variance
	if value < min {
		value = min
	}
	if value > max {
		value = max
	}
	return math.Round(value*10000) / 10000
}

func (s *ServiceSim) SetBaseCPU(cpu float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseCPU = cpu
}

func (s *ServiceSim) SetBaseMemory(memory float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseMemory = memory
}

func (s *ServiceSim) SetPattern(pattern Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = pattern
}

func (s *ServiceSim) GetPattern() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pattern.Name()
}

func (s *ServiceSim) SetMemoryCorrelation(correlation float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if correlation < 0 {
		correlation = 0
	}
	if correlation > 1 {
		correlation = 1
	}
	s.memoryCorrelation = correlation
}

func (s *ServiceSim) InjectSpike(targetCPU float64, duration, rampUp time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spike = &Spike{
		TargetCPU:   clampLoad(targetCPU),
		StartTime:   time.Now(),
		Duration:    duration,
		RampUp:      rampUp,
		OriginalCPU: s.baseCPU,
	}
}

func (s *ServiceSim) InjectMemoryLeak(targetMemory float64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leak = &MemoryLeak{
		TargetMemory:   clampLoad(targetMemory),
		StartTime:      time.Now(),
		Duration:       duration,
		OriginalMemory: s.baseMemory,
	}
}

func (s *ServiceSim) InjectErrorBurst(targetRate float64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if targetRate > 1 {
		targetRate = 1
	}
	s.burst = &ErrorBurst{
		TargetRate: targetRate,
		StartTime:  time.Now(),
		Duration:   duration,
	}
}

// ClearFaults removes all active fault injections.
func (s *ServiceSim) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spike = nil
	s.leak = nil
	s.burst = nil
}

func (s *ServiceSim) Status() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spikeInfo := map[string]interface{}{"active": false}
	if s.spike != nil {
		remaining := s.spike.Duration - time.Since(s.spike.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		spikeInfo = map[string]interface{}{
			"active":     true,
			"target_cpu": s.spike.TargetCPU,
			"remaining":  remaining.String(),
		}
	}

	leakInfo := map[string]interface{}{"active": false}
	if s.leak != nil {
		leakInfo = map[string]interface{}{
			"active":        true,
			"target_memory": s.leak.TargetMemory,
		}
	}

	burstInfo := map[string]interface{}{"active": false}
	if s.burst != nil {
		remaining := s.burst.Duration - time.Since(s.burst.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		burstInfo = map[string]interface{}{
			"active":      true,
			"target_rate": s.burst.TargetRate,
			"remaining":   remaining.String(),
		}
	}

	return map[string]interface{}{
		"name":               s.name,
		"base_cpu":           s.baseCPU,
		"base_memory":        s.baseMemory,
		"pattern":            s.pattern.Name(),
		"spike":              spikeInfo,
		"memory_leak":        leakInfo,
		"error_burst":        burstInfo,
		"memory_correlation": s.memoryCorrelation,
	}
}
