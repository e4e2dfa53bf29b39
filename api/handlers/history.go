package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/autonomiq/opsengine/pkg/config"
	"github.com/autonomiq/opsengine/pkg/database/queries"
)

// HistoryHandler serves persisted alert, incident, and scaling records.
// All repositories are nil when the engine runs without a database.
type HistoryHandler struct {
	alertRepo    *queries.AlertRepository
	incidentRepo *queries.IncidentRepository
	scalingRepo  *queries.ScalingDecisionRepository
	config       *config.APIConfig
}

func NewHistoryHandler(alertRepo *queries.AlertRepository, incidentRepo *queries.IncidentRepository, scalingRepo *queries.ScalingDecisionRepository, cfg *config.APIConfig) *HistoryHandler {
	return &HistoryHandler{
		alertRepo:    alertRepo,
		incidentRepo: incidentRepo,
		scalingRepo:  scalingRepo,
		config:       cfg,
	}
}

func (h *HistoryHandler) storageEnabled(c *gin.Context) bool {
	if h.alertRepo == nil || h.incidentRepo == nil || h.scalingRepo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "historical storage is disabled"})
		return false
	}
	return true
}

func (h *HistoryHandler) getDefaultLimit() int {
	if h.config != nil && h.config.DefaultLimit > 0 {
		return h.config.DefaultLimit
	}
	return 100
}

func (h *HistoryHandler) getMaxLimit() int {
	if h.config != nil && h.config.MaxLimit > 0 {
		return h.config.MaxLimit
	}
	return 1000
}

// parseTimeRange reads from/to query params, defaulting to the last hour.
func (h *HistoryHandler) parseTimeRange(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.Add(-time.Hour)

	if raw := c.Query("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = t
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			to = t
		}
	}

	return from, to
}

func (h *HistoryHandler) parseLimit(c *gin.Context) int {
	limit := parseIntQuery(c, "limit", h.getDefaultLimit())
	if max := h.getMaxLimit(); limit > max {
		limit = max
	}
	return limit
}

func (h *HistoryHandler) GetAlerts(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}

	service := c.Query("service")
	from, to := h.parseTimeRange(c)
	limit := h.parseLimit(c)
	ctx := c.Request.Context()

	var (
		alerts []queries.AlertRecord
		err    error
	)
	if service != "" {
		alerts, err = h.alertRepo.GetByService(ctx, service, from, to, limit)
	} else {
		alerts, err = h.alertRepo.GetRecent(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *HistoryHandler) GetIncidents(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}

	service := c.Query("service")
	from, to := h.parseTimeRange(c)
	limit := h.parseLimit(c)
	ctx := c.Request.Context()

	var (
		incidents []queries.IncidentRecord
		err       error
	)
	if service != "" {
		incidents, err = h.incidentRepo.GetByService(ctx, service, from, to, limit)
	} else {
		incidents, err = h.incidentRepo.GetRecent(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch incidents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"incidents": incidents,
		"count":     len(incidents),
	})
}

func (h *HistoryHandler) GetIncidentStats(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}

	service := c.Query("service")
	if service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service query parameter required"})
		return
	}

	from, to := h.parseTimeRange(c)

	stats, err := h.incidentRepo.GetStats(c.Request.Context(), service, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch incident stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *HistoryHandler) GetScalingDecisions(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}

	service := c.Query("service")
	from, to := h.parseTimeRange(c)
	limit := h.parseLimit(c)
	ctx := c.Request.Context()

	var (
		decisions []queries.ScalingDecisionRecord
		err       error
	)
	if service != "" {
		decisions, err = h.scalingRepo.GetByService(ctx, service, from, to, limit)
	} else {
		decisions, err = h.scalingRepo.GetRecent(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

func (h *HistoryHandler) GetScalingStats(c *gin.Context) {
	if !h.storageEnabled(c) {
		return
	}

	service := c.Query("service")
	if service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service query parameter required"})
		return
	}

	from, to := h.parseTimeRange(c)

	stats, err := h.scalingRepo.GetStats(c.Request.Context(), service, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch scaling stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
