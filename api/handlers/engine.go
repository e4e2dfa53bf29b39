package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autonomiq/opsengine/internal/orchestrator"
	"github.com/autonomiq/opsengine/pkg/models"
	"github.com/autonomiq/opsengine/pkg/validation"
)

// EngineService is the orchestrator surface the API depends on.
type EngineService interface {
	Ingest(sample models.MetricSample) error
	Services() []string
	GetServiceHealth(service string) *models.ServiceHealthScore
	GetAllServiceHealth() map[string]*models.ServiceHealthScore
	GetActiveAlerts(limit int) []*models.Alert
	GetCorrelations() []*models.CorrelationRecord
	GetActiveIncidents() []*models.Incident
	GetIncidentHistory() []*models.Incident
	GetWorkflows() []*models.ResolutionWorkflow
	GetCapacityForecast(service, metric string) *models.CapacityForecast
	GetScalingStatus(service string) *models.ScalingState
	GetScalingHistory() []*models.ScalingDecision
	GetStats() orchestrator.Stats
	SubscribeAllEvents() <-chan *models.Event
}

type EngineHandler struct {
	engine EngineService
}

func NewEngineHandler(engine EngineService) *EngineHandler {
	return &EngineHandler{engine: engine}
}

type IngestRequest struct {
	ServiceName string             `json:"service_name" binding:"required,min=1,max=100"`
	Timestamp   time.Time          `json:"timestamp"`
	Metrics     map[string]float64 `json:"metrics" binding:"required"`
}

// Ingest accepts a batch of telemetry observations. Each observation fans
// out into one sample per metric.
func (h *EngineHandler) Ingest(c *gin.Context) {
	var reqs []IngestRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	accepted, rejected := 0, 0
	for _, req := range reqs {
		req.ServiceName = validation.SanitizeString(req.ServiceName)
		if err := validation.ValidateServiceName(req.ServiceName); err != nil {
			rejected += len(req.Metrics)
			continue
		}
		ts := req.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		for metric, value := range req.Metrics {
			if err := validation.ValidateMetricName(metric); err != nil {
				rejected++
				continue
			}
			sample := models.MetricSample{
				ServiceName: req.ServiceName,
				MetricName:  metric,
				Value:       value,
				Timestamp:   ts,
			}
			if err := h.engine.Ingest(sample); err != nil {
				rejected++
				continue
			}
			accepted++
		}
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": accepted,
		"rejected": rejected,
	})
}

func (h *EngineHandler) ListServices(c *gin.Context) {
	services := h.engine.Services()
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
	})
}

func (h *EngineHandler) GetServiceHealth(c *gin.Context) {
	service := c.Param("name")

	score := h.engine.GetServiceHealth(service)
	if score == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry for service"})
		return
	}

	c.JSON(http.StatusOK, score)
}

func (h *EngineHandler) GetAllServiceHealth(c *gin.Context) {
	scores := h.engine.GetAllServiceHealth()
	c.JSON(http.StatusOK, gin.H{
		"services": scores,
		"count":    len(scores),
	})
}

func (h *EngineHandler) ListAlerts(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)

	alerts := h.engine.GetActiveAlerts(limit)
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *EngineHandler) ListCorrelations(c *gin.Context) {
	correlations := h.engine.GetCorrelations()
	c.JSON(http.StatusOK, gin.H{
		"correlations": correlations,
		"count":        len(correlations),
	})
}

func (h *EngineHandler) ListIncidents(c *gin.Context) {
	incidents := h.engine.GetActiveIncidents()
	c.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func (h *EngineHandler) ListIncidentHistory(c *gin.Context) {
	incidents := h.engine.GetIncidentHistory()
	c.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func (h *EngineHandler) ListWorkflows(c *gin.Context) {
	workflows := h.engine.GetWorkflows()
	c.JSON(http.StatusOK, gin.H{
		"workflows": workflows,
		"count":     len(workflows),
	})
}

// GetForecast returns the latest capacity forecast for one service metric.
func (h *EngineHandler) GetForecast(c *gin.Context) {
	service := c.Param("name")
	metric := c.DefaultQuery("metric", models.MetricCPUUsage)

	fc := h.engine.GetCapacityForecast(service, metric)
	if fc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast available"})
		return
	}

	c.JSON(http.StatusOK, fc)
}

func (h *EngineHandler) GetScalingStatus(c *gin.Context) {
	service := c.Param("name")

	state := h.engine.GetScalingStatus(service)
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scaling state for service"})
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *EngineHandler) ListScalingHistory(c *gin.Context) {
	decisions := h.engine.GetScalingHistory()
	c.JSON(http.StatusOK, gin.H{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

func (h *EngineHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetStats())
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
