package resolution

import (
	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

// EscalationChannels returns the notification channels for a handoff to
// human operators, widening with severity.
func EscalationChannels(severity models.Severity) []string {
	switch {
	case severity.AtLeast(models.SeverityCritical), severity == models.SeverityHigh:
		return []string{"pagerduty", "slack", "email", "sms"}
	case severity == models.SeverityMedium:
		return []string{"slack", "email"}
	default:
		return []string{"email"}
	}
}

func notifyEscalation(inc *models.Incident, reason string) {
	logger.WithIncident(inc.ID).WithField("channels", EscalationChannels(inc.Severity)).Warnf(
		"Escalating incident %s for %s: %s", inc.Type, inc.ServiceName, reason,
	)
}
