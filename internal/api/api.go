// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stockops/replenish/internal/api/handlers"
	"github.com/stockops/replenish/internal/api/middleware"
	"github.com/stockops/replenish/internal/service"
)

type Services struct {
	Recalc *service.RecalcService
	Query  *service.QueryService
	Audit  *service.AuditService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Recalc != nil && services.Query != nil {
			replenishHandler := handlers.NewReplenishmentHandler(services.Recalc, services.Query)
			replenishGroup := apiGroup.Group("/replenishment/:tenant_id")
			{
				replenishGroup.POST("/recalculate", replenishHandler.Recalculate)
				replenishGroup.GET("/ranked", replenishHandler.GetRanked)
				replenishGroup.GET("/export", replenishHandler.ExportCSV)
				replenishGroup.GET("/summary", replenishHandler.GetSummary)
				replenishGroup.GET("/available_dates", replenishHandler.GetAvailableDates)
				replenishGroup.GET("/runs", replenishHandler.ListRuns)
				replenishGroup.POST("/variants/:variant_id/discontinue", replenishHandler.FlagDiscontinued)
			}
		}

		if services.Audit != nil {
			auditHandler := handlers.NewAuditHandler(services.Audit)
			auditGroup := apiGroup.Group("/audit/:tenant_id/metrics")
			{
				auditGroup.GET("/investigate", auditHandler.Investigate)
				auditGroup.POST("/clean", auditHandler.Clean)
				auditGroup.GET("/validate", auditHandler.Validate)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
