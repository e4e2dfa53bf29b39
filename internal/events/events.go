package events

import (
	"sync"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

type EventBus struct {
	subscribers map[models.EventType][]chan *models.Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{
		subscribers: make(map[models.EventType][]chan *models.Event),
		bufferSize:  bufferSize,
	}
}

func (b *EventBus) Subscribe(eventType models.EventType) <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

func (b *EventBus) SubscribeAll() <-chan *models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan *models.Event, b.bufferSize)

	for _, eventType := range allEventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}
	return ch
}

func (b *EventBus) Publish(event *models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[event.Type]
	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
			logger.Warnf("Event channel full, dropping event: %s", event.Type)
		}
	}
}

// Close shuts every subscription channel exactly once. SubscribeAll channels
// are registered under every event type, so dedupe before closing.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	seen := make(map[chan *models.Event]bool)
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !seen[ch] {
				close(ch)
				seen[ch] = true
			}
		}
	}

	b.subscribers = make(map[models.EventType][]chan *models.Event)
}

var allEventTypes = []models.EventType{
	models.EventTypeAlertRaised,
	models.EventTypeAlertSuppressed,
	models.EventTypeAlertsCorrelated,
	models.EventTypeIncidentDetected,
	models.EventTypeIncidentResolved,
	models.EventTypeIncidentEscalated,
	models.EventTypeIncidentFailed,
	models.EventTypeActionExecuted,
	models.EventTypeRollbackExecuted,
	models.EventTypeScalingDecision,
	models.EventTypeForecastComputed,
	models.EventTypeError,
}
