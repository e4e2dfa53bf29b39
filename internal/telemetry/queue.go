package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

var ErrQueueClosed = errors.New("ingest queue closed")

const (
	DefaultQueueSize     = 1000
	DefaultBatchSize     = 256
	DefaultDrainInterval = time.Second
)

// IngestQueue decouples telemetry producers from the buffer. Producers push
// without blocking; under overload the oldest unprocessed sample is dropped.
// A single consumer drains the queue in batches on a fixed cadence.
type IngestQueue struct {
	buffer *Buffer
	ch     chan models.MetricSample

	batchSize     int
	drainInterval time.Duration

	ingested int64
	dropped  int64

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

type QueueConfig struct {
	Size          int
	BatchSize     int
	DrainInterval time.Duration
}

func NewIngestQueue(buffer *Buffer, cfg QueueConfig) *IngestQueue {
	if cfg.Size <= 0 {
		cfg.Size = DefaultQueueSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = DefaultDrainInterval
	}
	return &IngestQueue{
		buffer:        buffer,
		ch:            make(chan models.MetricSample, cfg.Size),
		batchSize:     cfg.BatchSize,
		drainInterval: cfg.DrainInterval,
		closed:        make(chan struct{}),
	}
}

// Push enqueues a sample. Never blocks; when the queue is full the oldest
// pending sample is discarded to make room.
func (q *IngestQueue) Push(sample models.MetricSample) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- sample:
		return nil
	default:
	}

	// Full: drop the oldest pending sample and retry once.
	select {
	case <-q.ch:
		atomic.AddInt64(&q.dropped, 1)
	default:
	}

	select {
	case q.ch <- sample:
		return nil
	default:
		atomic.AddInt64(&q.dropped, 1)
		return nil
	}
}

// Start launches the single consumer goroutine.
func (q *IngestQueue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.run(ctx)
}

func (q *IngestQueue) run(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.drain()
			return
		case <-q.closed:
			q.drain()
			return
		case <-ticker.C:
			q.drain()
		}
	}
}

// drain applies pending samples to the buffer, at most batchSize per pass.
func (q *IngestQueue) drain() int {
	applied := 0
	for applied < q.batchSize {
		select {
		case sample := <-q.ch:
			q.buffer.Append(sample)
			atomic.AddInt64(&q.ingested, 1)
			applied++
		default:
			return applied
		}
	}
	if applied == q.batchSize {
		logger.Debugf("Ingest drain hit batch limit (%d samples)", applied)
	}
	return applied
}

// Close stops accepting samples and waits for the consumer to finish.
func (q *IngestQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
	q.wg.Wait()
}

// Ingested returns the number of samples applied to the buffer.
func (q *IngestQueue) Ingested() int64 {
	return atomic.LoadInt64(&q.ingested)
}

// Dropped returns the number of samples discarded under overload.
func (q *IngestQueue) Dropped() int64 {
	return atomic.LoadInt64(&q.dropped)
}

// Pending returns the number of samples waiting in the queue.
func (q *IngestQueue) Pending() int {
	return len(q.ch)
}
