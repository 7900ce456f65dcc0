// internal/api/handlers/replenishment_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stockops/replenish/internal/service"
)

type ReplenishmentHandler struct {
	recalc *service.RecalcService
	query  *service.QueryService
}

func NewReplenishmentHandler(recalc *service.RecalcService, query *service.QueryService) *ReplenishmentHandler {
	return &ReplenishmentHandler{recalc: recalc, query: query}
}

type recalculateRequest struct {
	WindowDays  int `json:"window_days"`
	HorizonDays int `json:"projection_horizon_days"`
}

// Recalculate triggers a full recompute for the tenant. Lock contention maps
// to 409; the caller retries later.
func (h *ReplenishmentHandler) Recalculate(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req recalculateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "error": "invalid request body: " + err.Error()})
			return
		}
	}

	summary, err := h.recalc.Recalculate(c.Request.Context(), tenantID, service.RecalcOptions{
		WindowDays:  req.WindowDays,
		HorizonDays: req.HorizonDays,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecalcInProgress):
			c.JSON(http.StatusConflict, gin.H{"status": "failed", "error": "recompute in progress, retry later"})
		case errors.Is(err, service.ErrTenantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"status": "failed", "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "failed", "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReplenishmentHandler) parseFilter(c *gin.Context) (domain.RankedFilter, bool) {
	filter := domain.RankedFilter{
		TenantID: c.Param("tenant_id"),
		Date:     strings.TrimSpace(c.Query("date")),
	}

	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return filter, false
		}
	}

	urgency, ok := domain.ParseUrgency(c.Query("urgency"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown urgency tier"})
		return filter, false
	}
	filter.Urgency = urgency

	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	return filter, true
}

func (h *ReplenishmentHandler) GetRanked(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	forceRefresh := c.Query("force_refresh") == "true"
	records, err := h.query.GetRanked(c.Request.Context(), filter, forceRefresh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch ranked records", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   len(records),
	})
}

func (h *ReplenishmentHandler) ExportCSV(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	payload, err := h.query.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export records", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("replenishment_%s.csv", filter.TenantID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", payload)
}

func (h *ReplenishmentHandler) GetSummary(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	date, ok := requireDate(c)
	if !ok {
		return
	}

	breakdown, err := h.query.GetUrgencySummary(c.Request.Context(), tenantID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

func (h *ReplenishmentHandler) GetAvailableDates(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	if limit <= 0 {
		limit = 30
	}

	dates, err := h.query.GetAvailableDates(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch available dates", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (h *ReplenishmentHandler) ListRuns(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.recalc.ListRuns(c.Request.Context(), tenantID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ReplenishmentHandler) FlagDiscontinued(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	variantID, err := strconv.ParseInt(c.Param("variant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "variant id must be numeric"})
		return
	}

	date, ok := requireDate(c)
	if !ok {
		return
	}

	if err := h.query.FlagDiscontinued(c.Request.Context(), tenantID, variantID, date); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to flag variant", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flagged": true, "variant_id": variantID})
}

// requireDate parses the mandatory date query parameter.
func requireDate(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return time.Time{}, false
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}

	return date, true
}
