package telemetry

import (
	"sync"
	"time"

	"github.com/autonomiq/opsengine/pkg/models"
)

const DefaultCapacity = 100

type seriesKey struct {
	service string
	metric  string
}

// series is a fixed-capacity ring of samples for one (service, metric) pair.
// Writers for the same series are serialized by its mutex; different series
// proceed independently.
type series struct {
	mu      sync.RWMutex
	samples []models.MetricSample
	head    int
	size    int
}

func newSeries(capacity int) *series {
	return &series{samples: make([]models.MetricSample, capacity)}
}

func (s *series) append(sample models.MetricSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[s.head] = sample
	s.head = (s.head + 1) % len(s.samples)
	if s.size < len(s.samples) {
		s.size++
	}
}

// snapshot returns up to n samples ordered oldest to newest.
func (s *series) snapshot(n int) []models.MetricSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.size {
		n = s.size
	}
	out := make([]models.MetricSample, n)
	start := s.head - n
	if start < 0 {
		start += len(s.samples)
	}
	for i := 0; i < n; i++ {
		out[i] = s.samples[(start+i)%len(s.samples)]
	}
	return out
}

func (s *series) latest() (models.MetricSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.size == 0 {
		return models.MetricSample{}, false
	}
	idx := s.head - 1
	if idx < 0 {
		idx += len(s.samples)
	}
	return s.samples[idx], true
}

func (s *series) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Buffer holds recent telemetry keyed by (service, metric). It is the single
// source of truth for recent history; samples are append-only.
type Buffer struct {
	mu       sync.RWMutex
	series   map[seriesKey]*series
	capacity int
}

func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		series:   make(map[seriesKey]*series),
		capacity: capacity,
	}
}

func (b *Buffer) getOrCreate(key seriesKey) *series {
	b.mu.RLock()
	s, ok := b.series[key]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok = b.series[key]; ok {
		return s
	}
	s = newSeries(b.capacity)
	b.series[key] = s
	return s
}

// Append records one sample, evicting the oldest when the series is full.
func (b *Buffer) Append(sample models.MetricSample) {
	b.getOrCreate(seriesKey{sample.ServiceName, sample.MetricName}).append(sample)
}

// Snapshot returns the last n samples for a key, oldest first. n <= 0 returns
// the whole series.
func (b *Buffer) Snapshot(service, metric string, n int) []models.MetricSample {
	b.mu.RLock()
	s, ok := b.series[seriesKey{service, metric}]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.snapshot(n)
}

// Values returns the last n sample values for a key, oldest first.
func (b *Buffer) Values(service, metric string, n int) []float64 {
	samples := b.Snapshot(service, metric, n)
	if samples == nil {
		return nil
	}
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}
	return values
}

// Len returns the number of buffered samples for a key.
func (b *Buffer) Len(service, metric string) int {
	b.mu.RLock()
	s, ok := b.series[seriesKey{service, metric}]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return s.length()
}

// Services lists all services with buffered telemetry.
func (b *Buffer) Services() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for key := range b.series {
		if !seen[key.service] {
			seen[key.service] = true
			out = append(out, key.service)
		}
	}
	return out
}

// Metrics lists the metric names buffered for a service.
func (b *Buffer) Metrics(service string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []string
	for key := range b.series {
		if key.service == service {
			out = append(out, key.metric)
		}
	}
	return out
}

// Latest builds a point-in-time snapshot of the newest value per metric for a
// service. Used for incident detection and verification.
func (b *Buffer) Latest(service string) *models.MetricsSnapshot {
	b.mu.RLock()
	keys := make([]seriesKey, 0)
	for key := range b.series {
		if key.service == service {
			keys = append(keys, key)
		}
	}
	b.mu.RUnlock()

	snap := models.NewMetricsSnapshot(service)
	var newest time.Time
	for _, key := range keys {
		b.mu.RLock()
		s := b.series[key]
		b.mu.RUnlock()
		if s == nil {
			continue
		}
		if sample, ok := s.latest(); ok {
			snap.Set(key.metric, sample.Value)
			if sample.Timestamp.After(newest) {
				newest = sample.Timestamp
			}
		}
	}
	if !newest.IsZero() {
		snap.Timestamp = newest
	}
	return snap
}
