// internal/api/handlers/audit_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockops/replenish/internal/service"
)

type AuditHandler struct {
	audit *service.AuditService
}

func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

func (h *AuditHandler) Investigate(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	date, ok := requireDate(c)
	if !ok {
		return
	}

	report, err := h.audit.Investigate(c.Request.Context(), tenantID, date, strings.TrimSpace(c.Query("sku")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to investigate duplicates", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *AuditHandler) Clean(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	date, ok := requireDate(c)
	if !ok {
		return
	}

	result, err := h.audit.Clean(c.Request.Context(), tenantID, date, strings.TrimSpace(c.Query("sku")))
	if err != nil {
		if errors.Is(err, service.ErrRecalcInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "recompute in progress for tenant, retry later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clean duplicates", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AuditHandler) Validate(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	date, ok := requireDate(c)
	if !ok {
		return
	}

	report, err := h.audit.Validate(c.Request.Context(), tenantID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate metrics", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
