package collector

import (
	"context"
	"sync"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

// Sink receives the samples a poller collects. Satisfied by the engine.
type Sink interface {
	Ingest(sample models.MetricSample) error
}

// Poller drives pull-based collection: each registered service is scraped
// on the interval and the snapshot fans out into per-metric samples.
type Poller struct {
	sink       Sink
	interval   time.Duration
	mu         sync.RWMutex
	collectors map[string]Collector

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(sink Sink, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		sink:       sink,
		interval:   interval,
		collectors: make(map[string]Collector),
	}
}

// Register adds a service to the scrape set. Replaces any existing
// collector for the service.
func (p *Poller) Register(serviceName string, coll Collector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collectors[serviceName] = coll
}

func (p *Poller) Unregister(serviceName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if coll, ok := p.collectors[serviceName]; ok {
		coll.Close()
		delete(p.collectors, serviceName)
	}
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(ctx)

	logger.Infof("Telemetry poller started (interval: %s)", p.interval)
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	for name, coll := range p.collectors {
		coll.Close()
		delete(p.collectors, name)
	}
	p.mu.Unlock()
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	p.mu.RLock()
	targets := make(map[string]Collector, len(p.collectors))
	for name, coll := range p.collectors {
		targets[name] = coll
	}
	p.mu.RUnlock()

	for name, coll := range targets {
		snapshot, err := coll.Collect(ctx, name)
		if err != nil {
			logger.WithService(name).Warnf("Scrape failed: %v", err)
			continue
		}
		p.ingest(snapshot)
	}
}

func (p *Poller) ingest(snapshot *models.MetricsSnapshot) {
	for metric, value := range snapshot.Values {
		sample := models.MetricSample{
			ServiceName: snapshot.ServiceName,
			MetricName:  metric,
			Value:       value,
			Timestamp:   snapshot.Timestamp,
		}
		if err := p.sink.Ingest(sample); err != nil {
			logger.WithService(snapshot.ServiceName).Warnf("Ingest failed: %v", err)
			return
		}
	}
}
