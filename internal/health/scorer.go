package health

import (
	"strings"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/telemetry"
	"github.com/autonomiq/opsengine/pkg/models"
)

const (
	weightPerformance = 0.3
	weightReliability = 0.25
	weightResource    = 0.25
	weightError       = 0.2

	recentWindow      = 10
	anomalyMemorySize = 20
)

// Scorer computes weighted service health from buffered telemetry. Scores
// are recomputed periodically and replaced atomically; recomputing without
// new samples yields an identical score.
type Scorer struct {
	buffer *telemetry.Buffer

	mu        sync.RWMutex
	scores    map[string]*models.ServiceHealthScore
	anomalies map[string][]anomalyRecord
}

type anomalyRecord struct {
	score float64
	at    time.Time
}

func NewScorer(buffer *telemetry.Buffer) *Scorer {
	return &Scorer{
		buffer:    buffer,
		scores:    make(map[string]*models.ServiceHealthScore),
		anomalies: make(map[string][]anomalyRecord),
	}
}

// RecordAnomaly feeds a detection score into the reliability subscore.
func (s *Scorer) RecordAnomaly(service string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := append(s.anomalies[service], anomalyRecord{score: score, at: time.Now()})
	if len(records) > anomalyMemorySize {
		records = records[len(records)-anomalyMemorySize:]
	}
	s.anomalies[service] = records
}

// Get returns the cached health score for a service, or nil when the
// service has never been scored.
func (s *Scorer) Get(service string) *models.ServiceHealthScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[service]
}

// All returns the cached scores keyed by service.
func (s *Scorer) All() map[string]*models.ServiceHealthScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.ServiceHealthScore, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Compute derives a fresh health score for a service and caches it.
func (s *Scorer) Compute(service string) *models.ServiceHealthScore {
	metrics := s.buffer.Metrics(service)

	score := &models.ServiceHealthScore{
		ServiceName: service,
		ComputedAt:  time.Now(),
	}

	if len(metrics) == 0 {
		score.Status = models.HealthDown
		s.store(service, score)
		return score
	}

	sub := models.HealthSubscores{
		Performance: s.performanceScore(service, metrics),
		Reliability: s.reliabilityScore(service),
		Resource:    s.resourceScore(service, metrics),
		Error:       s.errorScore(service, metrics),
	}

	overall := sub.Performance*weightPerformance +
		sub.Reliability*weightReliability +
		sub.Resource*weightResource +
		sub.Error*weightError

	score.Subscores = sub
	score.OverallScore = overall
	score.Status = models.StatusForScore(overall)

	s.store(service, score)
	return score
}

func (s *Scorer) store(service string, score *models.ServiceHealthScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[service] = score
}

// performanceScore penalizes slow responses and throughput below the
// historical baseline.
func (s *Scorer) performanceScore(service string, metrics []string) float64 {
	score := 100.0

	for _, metric := range metrics {
		name := strings.ToLower(metric)
		if strings.Contains(name, "response_time") || strings.Contains(name, "latency") {
			avg := avgOf(s.buffer.Values(service, metric, recentWindow))
			switch {
			case avg <= 50:
				// full marks
			case avg <= 100:
				score = min(score, 80)
			case avg <= 200:
				score = min(score, 60)
			default:
				score = min(score, 40)
			}
		}
	}

	for _, metric := range metrics {
		name := strings.ToLower(metric)
		if strings.Contains(name, "throughput") || strings.Contains(name, "requests") {
			all := s.buffer.Values(service, metric, 0)
			if len(all) <= 20 {
				continue
			}
			current := avgOf(all[len(all)-recentWindow:])
			baseline := avgOf(all[:len(all)-recentWindow])
			if baseline <= 0 {
				continue
			}
			ratio := current / baseline
			switch {
			case ratio >= 0.9:
			case ratio >= 0.7:
				score = min(score, 80)
			case ratio >= 0.5:
				score = min(score, 60)
			default:
				score = min(score, 40)
			}
		}
	}

	return score
}

// reliabilityScore penalizes recent anomaly detections.
func (s *Scorer) reliabilityScore(service string) float64 {
	s.mu.RLock()
	records := s.anomalies[service]
	s.mu.RUnlock()

	if len(records) == 0 {
		return 100
	}

	var sum float64
	high := 0
	for _, r := range records {
		sum += r.score
		if r.score > 0.7 {
			high++
		}
	}
	avg := sum / float64(len(records))

	penalty := float64(high)*10 + avg*20
	if penalty > 50 {
		penalty = 50
	}
	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

// resourceScore penalizes high CPU and memory utilization.
func (s *Scorer) resourceScore(service string, metrics []string) float64 {
	score := 100.0

	for _, metric := range metrics {
		name := strings.ToLower(metric)
		switch {
		case strings.Contains(name, "memory"):
			avg := normalizeRatio(avgOf(s.buffer.Values(service, metric, recentWindow)))
			switch {
			case avg <= 0.5:
			case avg <= 0.75:
				score = min(score, 80)
			case avg <= 0.9:
				score = min(score, 60)
			default:
				score = min(score, 40)
			}
		case strings.Contains(name, "cpu"):
			avg := normalizeRatio(avgOf(s.buffer.Values(service, metric, recentWindow)))
			switch {
			case avg <= 0.5:
			case avg <= 0.7:
				score = min(score, 80)
			case avg <= 0.85:
				score = min(score, 60)
			default:
				score = min(score, 40)
			}
		}
	}

	return score
}

// errorScore penalizes elevated error rates.
func (s *Scorer) errorScore(service string, metrics []string) float64 {
	score := 100.0

	for _, metric := range metrics {
		name := strings.ToLower(metric)
		if !strings.Contains(name, "error") && !strings.Contains(name, "failure") {
			continue
		}
		avg := normalizeRatio(avgOf(s.buffer.Values(service, metric, recentWindow)))
		switch {
		case avg <= 0.001:
		case avg <= 0.005:
			score = min(score, 90)
		case avg <= 0.01:
			score = min(score, 80)
		case avg <= 0.05:
			score = min(score, 60)
		default:
			score = min(score, 30)
		}
	}

	return score
}

func avgOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// normalizeRatio treats values above 1 as percentages.
func normalizeRatio(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
