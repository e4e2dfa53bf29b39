package incident

import (
	"errors"
	"sort"
	"sync"

	"github.com/autonomiq/opsengine/internal/logger"
	"github.com/autonomiq/opsengine/pkg/models"
)

// ErrDuplicateIncident means an active incident already exists for the
// (service, type) pair; the new signal was merged into it.
var ErrDuplicateIncident = errors.New("active incident already exists for service and type")

// entry pairs one active incident with its own mutex, so merging signals
// into one incident never blocks work on another. retired marks an entry
// removed from the map while another goroutine still holds a reference.
type entry struct {
	mu      sync.Mutex
	inc     *models.Incident
	retired bool
}

// Manager owns the incident lifecycle: creation from alerts or snapshots,
// duplicate merging, classification confidence, and plan attachment.
type Manager struct {
	classifier *Classifier
	planner    *Planner

	// mu guards the map itself; each entry serializes access to its own
	// incident.
	mu     sync.RWMutex
	active map[string]*entry

	resolvedMu sync.Mutex
	resolved   []*models.Incident
}

func NewManager(classifier *Classifier, planner *Planner) *Manager {
	return &Manager{
		classifier: classifier,
		planner:    planner,
		active:     make(map[string]*entry),
	}
}

// FromAlert opens an incident for an unsuppressed alert. When an active
// incident already covers the (service, type) pair, the alert is merged into
// it and ErrDuplicateIncident is returned with the existing incident.
func (m *Manager) FromAlert(alert *models.Alert, obs Observation) (*models.Incident, error) {
	incidentType, severity, ok := m.classifier.ClassifyAlert(alert, obs)
	if !ok {
		incidentType = models.IncidentMultipleAlerts
		severity = alert.Severity
	}

	incident := models.NewIncident(alert.ServiceName, incidentType, severity)
	incident.Metrics = obs.Snapshot
	incident.Context.RelatedAlerts = []string{alert.ID}

	return m.open(incident, obs)
}

// FromSnapshot opens an incident from threshold detection over a metrics
// snapshot. Returns nil when no rule matches.
func (m *Manager) FromSnapshot(obs Observation) (*models.Incident, error) {
	incidentType, severity, ok := m.classifier.Classify(obs)
	if !ok {
		return nil, nil
	}

	incident := models.NewIncident(obs.Snapshot.ServiceName, incidentType, severity)
	incident.Metrics = obs.Snapshot

	return m.open(incident, obs)
}

func (m *Manager) entryFor(key string) *entry {
	m.mu.RLock()
	ent, ok := m.active[key]
	m.mu.RUnlock()
	if ok {
		return ent
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ent, ok = m.active[key]; ok {
		return ent
	}
	ent = &entry{}
	m.active[key] = ent
	return ent
}

func (m *Manager) open(incident *models.Incident, obs Observation) (*models.Incident, error) {
	key := incident.Key()
	for {
		ent := m.entryFor(key)
		ent.mu.Lock()
		if ent.retired {
			// Closed between lookup and lock; fetch a fresh entry.
			ent.mu.Unlock()
			continue
		}

		if existing := ent.inc; existing != nil {
			existing.Context.RelatedAlerts = append(existing.Context.RelatedAlerts, incident.Context.RelatedAlerts...)
			if incident.Severity.Rank() > existing.Severity.Rank() {
				existing.Severity = incident.Severity
			}
			ent.mu.Unlock()
			return existing, ErrDuplicateIncident
		}

		incident.Transition(models.IncidentClassifying, "classifying incident")
		incident.ClassificationConfidence = m.classifier.ConfidenceFor(incident.Type, obs.Snapshot)
		incident.RecommendedActions = m.planner.Plan(incident)
		ent.inc = incident
		ent.mu.Unlock()

		logger.WithIncident(incident.ID).Infof(
			"Incident opened: %s %s (severity=%s, confidence=%.2f, plan=%v)",
			incident.ServiceName, incident.Type, incident.Severity,
			incident.ClassificationConfidence, incident.RecommendedActions,
		)
		return incident, nil
	}
}

// Close transitions an incident to a terminal status and retires it from
// the active set.
func (m *Manager) Close(incident *models.Incident, status models.IncidentStatus, detail string) {
	if !status.IsTerminal() {
		return
	}

	key := incident.Key()
	m.mu.RLock()
	ent := m.active[key]
	m.mu.RUnlock()

	if ent != nil {
		ent.mu.Lock()
		if ent.inc == incident {
			ent.retired = true
			m.mu.Lock()
			if m.active[key] == ent {
				delete(m.active, key)
			}
			m.mu.Unlock()
		}
		ent.mu.Unlock()
	}

	incident.Transition(status, detail)

	m.resolvedMu.Lock()
	m.resolved = append(m.resolved, incident)
	m.resolvedMu.Unlock()

	logger.WithIncident(incident.ID).Infof("Incident closed: %s (%s)", status, detail)
}

// Get returns the active incident with the given ID, or nil.
func (m *Manager) Get(id string) *models.Incident {
	for _, inc := range m.Active() {
		if inc.ID == id {
			return inc
		}
	}
	return nil
}

// Active returns active incidents, most recent first.
func (m *Manager) Active() []*models.Incident {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.active))
	for _, ent := range m.active {
		entries = append(entries, ent)
	}
	m.mu.RUnlock()

	out := make([]*models.Incident, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		inc := ent.inc
		retired := ent.retired
		ent.mu.Unlock()
		if inc != nil && !retired {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	return out
}

// History returns closed incidents, oldest first.
func (m *Manager) History() []*models.Incident {
	m.resolvedMu.Lock()
	defer m.resolvedMu.Unlock()

	out := make([]*models.Incident, len(m.resolved))
	copy(out, m.resolved)
	return out
}
