package notify

import (
	"errors"
	"sync"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

var errSinkUnavailable = errors.New("notification sink unavailable")

type Channel string

const (
	ChannelLog   Channel = "log"
	ChannelChat  Channel = "chat"
	ChannelPager Channel = "pager"
)

// ChannelsFor widens the notification fan-out with severity: everything is
// logged, High adds chat, Critical and above pages someone.
func ChannelsFor(severity models.Severity) []Channel {
	switch {
	case severity.AtLeast(models.SeverityCritical):
		return []Channel{ChannelLog, ChannelChat, ChannelPager}
	case severity == models.SeverityHigh:
		return []Channel{ChannelLog, ChannelChat}
	default:
		return []Channel{ChannelLog}
	}
}

// NotificationSink delivers one alert over one channel. Implementations
// wrap real transports; the engine never assumes a specific provider.
type NotificationSink interface {
	Send(alert *models.Alert, channel Channel) (delivered bool, err error)
}

type RouterConfig struct {
	ChatEnabled  bool
	PagerEnabled bool
}

// Router fans alerts out to every sink over the channels the alert's
// severity calls for, skipping channels disabled in configuration.
type Router struct {
	cfg   RouterConfig
	sinks []NotificationSink
}

func NewRouter(cfg RouterConfig, sinks ...NotificationSink) *Router {
	if len(sinks) == 0 {
		sinks = []NotificationSink{NewLogSink()}
	}
	return &Router{cfg: cfg, sinks: sinks}
}

func (r *Router) Dispatch(alert *models.Alert) {
	if alert == nil {
		return
	}
	for _, channel := range ChannelsFor(alert.Severity) {
		if !r.channelEnabled(channel) {
			continue
		}
		for _, sink := range r.sinks {
			delivered, err := sink.Send(alert, channel)
			if err != nil {
				logger.WithService(alert.ServiceName).Errorf(
					"Notification over %s failed: %v", channel, err)
				continue
			}
			if !delivered {
				logger.WithService(alert.ServiceName).Debugf(
					"Notification over %s not delivered", channel)
			}
		}
	}
}

func (r *Router) channelEnabled(channel Channel) bool {
	switch channel {
	case ChannelChat:
		return r.cfg.ChatEnabled
	case ChannelPager:
		return r.cfg.PagerEnabled
	default:
		return true
	}
}

// LogSink writes notifications through the structured logger. It is the
// default sink and always delivers.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Send(alert *models.Alert, channel Channel) (bool, error) {
	entry := logger.WithFields(map[string]interface{}{
		"channel":  string(channel),
		"alert_id": alert.ID,
		"service":  alert.ServiceName,
		"type":     string(alert.Type),
		"severity": string(alert.Severity),
	})

	if alert.Severity.AtLeast(models.SeverityCritical) {
		entry.Errorf("ALERT %s on %s: %s", alert.Type, alert.ServiceName, alert.PredictedImpact)
	} else {
		entry.Warnf("ALERT %s on %s: %s", alert.Type, alert.ServiceName, alert.PredictedImpact)
	}
	return true, nil
}

// Delivery is one recorded send, kept by MemorySink for assertions.
type Delivery struct {
	Alert   *models.Alert
	Channel Channel
}

// MemorySink records deliveries instead of sending them.
type MemorySink struct {
	mu        sync.Mutex
	delivered []Delivery
	fail      bool
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailDeliveries makes subsequent sends return an error.
func (s *MemorySink) FailDeliveries(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *MemorySink) Send(alert *models.Alert, channel Channel) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false, errSinkUnavailable
	}
	s.delivered = append(s.delivered, Delivery{Alert: alert, Channel: channel})
	return true, nil
}

func (s *MemorySink) Sent() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.delivered))
	copy(out, s.delivered)
	return out
}
