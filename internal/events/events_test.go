package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	alerts := bus.Subscribe(models.EventTypeAlertRaised)
	scaling := bus.Subscribe(models.EventTypeScalingDecision)

	bus.Publish(models.NewEvent(models.EventTypeAlertRaised, "checkout", "alert"))

	event := receive(t, alerts)
	assert.Equal(t, models.EventTypeAlertRaised, event.Type)
	assert.Equal(t, "checkout", event.ServiceName)

	select {
	case <-scaling:
		t.Fatal("scaling subscriber should not see alert events")
	default:
	}
}

func TestEventBus_SubscribeAll(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()

	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeAlertRaised, "checkout", "alert"))
	bus.Publish(models.NewEvent(models.EventTypeScalingDecision, "checkout", "scaling"))

	assert.Equal(t, models.EventTypeAlertRaised, receive(t, all).Type)
	assert.Equal(t, models.EventTypeScalingDecision, receive(t, all).Type)
}

func TestEventBus_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	ch := bus.Subscribe(models.EventTypeAlertRaised)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			bus.Publish(models.NewEvent(models.EventTypeAlertRaised, "checkout", "alert"))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full channel")
	}

	// Only the buffered event survives.
	assert.Len(t, ch, 1)
}

func TestEventBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewEventBus(10)
	ch := bus.SubscribeAll()

	bus.Close()
	bus.Publish(models.NewEvent(models.EventTypeAlertRaised, "checkout", "alert"))

	_, open := <-ch
	assert.False(t, open)
}

func TestPublisher_AlertSeverityMapping(t *testing.T) {
	tests := []struct {
		name     string
		severity models.Severity
		expected models.EventSeverity
	}{
		{"low alert is info", models.SeverityLow, models.EventInfo},
		{"high alert is warning", models.SeverityHigh, models.EventWarning},
		{"critical alert is critical", models.SeverityCritical, models.EventCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewEventBus(10)
			defer bus.Close()
			ch := bus.Subscribe(models.EventTypeAlertRaised)

			alert := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyCPUSaturation, tt.severity)
			NewPublisher(bus).AlertRaised(alert)

			event := receive(t, ch)
			assert.Equal(t, tt.expected, event.Severity)
			assert.Same(t, alert, event.Data)
		})
	}
}

func TestPublisher_TraceIDPropagates(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(models.EventTypeScalingDecision)

	decision := models.NewScalingDecision("checkout", 1, 2, models.ScaleUp, models.TriggerForecast)
	NewPublisher(bus).WithTraceID("trace-123").ScalingDecision(decision)

	event := receive(t, ch)
	assert.Equal(t, "trace-123", event.TraceID)
}

func TestPublisher_ForecastWarnsOnExhaustion(t *testing.T) {
	bus := NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(models.EventTypeForecastComputed)

	ttc := 5 * time.Minute
	fc := &models.CapacityForecast{
		ServiceName:    "checkout",
		MetricName:     models.MetricMemoryUsage,
		TimeToCapacity: &ttc,
	}
	NewPublisher(bus).ForecastComputed(fc)

	event := receive(t, ch)
	require.Equal(t, models.EventWarning, event.Severity)
}
