package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autonomiq/opsengine/pkg/models"
)

func TestChannelsFor(t *testing.T) {
	tests := []struct {
		name     string
		severity models.Severity
		expected []Channel
	}{
		{"low logs only", models.SeverityLow, []Channel{ChannelLog}},
		{"medium logs only", models.SeverityMedium, []Channel{ChannelLog}},
		{"high adds chat", models.SeverityHigh, []Channel{ChannelLog, ChannelChat}},
		{"critical pages", models.SeverityCritical, []Channel{ChannelLog, ChannelChat, ChannelPager}},
		{"emergency pages", models.SeverityEmergency, []Channel{ChannelLog, ChannelChat, ChannelPager}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChannelsFor(tt.severity))
		})
	}
}

func TestRouter_DispatchBySeverity(t *testing.T) {
	sink := NewMemorySink()
	router := NewRouter(RouterConfig{ChatEnabled: true, PagerEnabled: true}, sink)

	low := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyCPUSaturation, models.SeverityLow)
	router.Dispatch(low)

	require.Len(t, sink.Sent(), 1)
	assert.Equal(t, ChannelLog, sink.Sent()[0].Channel)

	critical := models.NewAlert("checkout", models.MetricCPUUsage, models.AnomalyCPUSaturation, models.SeverityCritical)
	router.Dispatch(critical)

	sent := sink.Sent()
	require.Len(t, sent, 4)
	channels := []Channel{sent[1].Channel, sent[2].Channel, sent[3].Channel}
	assert.ElementsMatch(t, []Channel{ChannelLog, ChannelChat, ChannelPager}, channels)
	assert.Equal(t, critical.ID, sent[1].Alert.ID)
}

func TestRouter_DisabledChannelsSkipped(t *testing.T) {
	sink := NewMemorySink()
	router := NewRouter(RouterConfig{ChatEnabled: true, PagerEnabled: false}, sink)

	critical := models.NewAlert("checkout", models.MetricErrorRate, models.AnomalyErrorSpike, models.SeverityCritical)
	router.Dispatch(critical)

	sent := sink.Sent()
	require.Len(t, sent, 2)
	for _, d := range sent {
		assert.NotEqual(t, ChannelPager, d.Channel)
	}
}

func TestRouter_SinkErrorDoesNotStopFanOut(t *testing.T) {
	failing := NewMemorySink()
	failing.FailDeliveries(true)
	healthy := NewMemorySink()
	router := NewRouter(RouterConfig{ChatEnabled: true}, failing, healthy)

	alert := models.NewAlert("checkout", models.MetricResponseTime, models.AnomalyLatencyIncrease, models.SeverityHigh)
	router.Dispatch(alert)

	assert.Empty(t, failing.Sent())
	assert.Len(t, healthy.Sent(), 2)
}

func TestRouter_NilAlertIgnored(t *testing.T) {
	sink := NewMemorySink()
	router := NewRouter(RouterConfig{}, sink)

	router.Dispatch(nil)

	assert.Empty(t, sink.Sent())
}
