// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockops/replenish/internal/api"
	"github.com/stockops/replenish/internal/cache"
	"github.com/stockops/replenish/internal/config"
	"github.com/stockops/replenish/internal/lock"
	"github.com/stockops/replenish/internal/repository/postgres"
	"github.com/stockops/replenish/internal/service"
	"github.com/stockops/replenish/internal/storage"
	"github.com/stockops/replenish/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Engine.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid engine configuration")
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Repositories
	variantRepo := postgres.NewVariantRepository(db)
	salesRepo := postgres.NewSalesRepository(db)
	stockRepo := postgres.NewStockRepository(db)
	recordRepo := postgres.NewReplenishmentRepository(db)
	runRepo := postgres.NewRunRepository(db)
	auditRepo := postgres.NewMetricAuditRepository(db)

	// Cache and locking. With Redis enabled the recalculation lock is shared
	// across replicas; otherwise the in-process registry is enough.
	rankedCache := cache.NewNoopRankedCache()
	var locker lock.TenantLocker = lock.NewMemoryLocker()
	if cfg.Cache.Enabled {
		client, ttl, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		rankedCache = cache.NewRankedCache(client, ttl)
		locker = lock.NewRedisLocker(client)
	}

	// Services
	recalcService := service.NewRecalcService(
		variantRepo, salesRepo, stockRepo, recordRepo, runRepo,
		locker, rankedCache, cfg.Engine,
	)
	if cfg.Archive.Enabled {
		archiver, err := storage.NewMinioClient(cfg.Archive)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize snapshot archive")
		}
		recalcService = recalcService.WithArchiver(archiver)
	}
	queryService := service.NewQueryService(recordRepo, rankedCache)
	auditService := service.NewAuditService(auditRepo, locker)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		Recalc: recalcService,
		Query:  queryService,
		Audit:  auditService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
