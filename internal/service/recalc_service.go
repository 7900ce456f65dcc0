// internal/service/recalc_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockops/replenish/internal/cache"
	"github.com/stockops/replenish/internal/config"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stockops/replenish/internal/engine"
	"github.com/stockops/replenish/internal/lock"
	"github.com/stockops/replenish/internal/repository"
	"github.com/stockops/replenish/internal/storage"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrTenantNotFound fails the whole run before any lock is taken.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrRecalcInProgress is the synchronous lock-contention rejection. It is
	// not a failure of the computation; callers retry with backoff.
	ErrRecalcInProgress = lock.ErrAlreadyLocked
)

// RecalcOptions are the caller-tunable knobs of one run. Zero values fall
// back to the configured defaults.
type RecalcOptions struct {
	WindowDays  int
	HorizonDays int
}

// RecalcService is the recalculation orchestrator: it serializes a full
// recompute per tenant, persists the snapshot atomically and reports a
// summary. Per-tenant exclusivity and idempotency live here.
type RecalcService struct {
	variants repository.VariantRepository
	sales    repository.SalesRepository
	stock    repository.StockRepository
	records  repository.ReplenishmentRepository
	runs     repository.RunRepository
	locker   lock.TenantLocker
	cache    cache.RankedCache
	archiver storage.ObjectStorage
	cfg      config.EngineConfig
	now      func() time.Time
}

func NewRecalcService(
	variants repository.VariantRepository,
	sales repository.SalesRepository,
	stock repository.StockRepository,
	records repository.ReplenishmentRepository,
	runs repository.RunRepository,
	locker lock.TenantLocker,
	cacheImpl cache.RankedCache,
	cfg config.EngineConfig,
) *RecalcService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRankedCache()
	}
	return &RecalcService{
		variants: variants,
		sales:    sales,
		stock:    stock,
		records:  records,
		runs:     runs,
		locker:   locker,
		cache:    cacheImpl,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithArchiver enables post-recompute CSV snapshot uploads.
func (s *RecalcService) WithArchiver(archiver storage.ObjectStorage) *RecalcService {
	s.archiver = archiver
	return s
}

// Recalculate runs the full pipeline for one tenant: aggregate sales, resolve
// stock, project demand, classify, then atomically replace the record set for
// today. Concurrent calls for the same tenant are rejected with
// ErrRecalcInProgress; different tenants run independently.
func (s *RecalcService) Recalculate(ctx context.Context, tenantID string, opts RecalcOptions) (*domain.RecalculationSummary, error) {
	cfg := s.cfg
	if opts.WindowDays != 0 {
		cfg.WindowDays = opts.WindowDays
	}
	if opts.HorizonDays != 0 {
		cfg.ProjectionHorizonDays = opts.HorizonDays
	}

	// Configuration errors fail the entire run immediately, no partial output.
	projector, err := engine.NewProjector(cfg)
	if err != nil {
		return nil, err
	}
	classifier := engine.NewClassifier(cfg)

	exists, err := s.variants.TenantExists(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	release, err := s.locker.Acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	// Released on every path out of the run, including caller cancellation.
	defer release()

	// The calculation date is the current UTC calendar day. Truncate would
	// round to a UTC instant but format in the local zone, mislabeling the day
	// on servers west of UTC.
	nowUTC := s.now().UTC()
	calcDate := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)
	run := &domain.CalculationRun{
		TenantID:        tenantID,
		CalculationDate: calcDate,
		Status:          domain.RunStatusRunning,
		StartedAt:       s.now(),
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record calculation run: %w", err)
	}

	summary, err := s.compute(ctx, tenantID, calcDate, cfg, projector, classifier)
	now := s.now()
	run.CompletedAt = &now
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = err.Error()
		if finishErr := s.runs.FinishRun(ctx, run); finishErr != nil {
			log.Error().Err(finishErr).Str("tenant_id", tenantID).Msg("failed to persist failed run")
		}
		return nil, err
	}

	run.Status = domain.RunStatusCompleted
	run.VariantsProcessed = summary.VariantsProcessed
	run.VariantsSkipped = summary.VariantsSkipped
	run.RecordsGenerated = summary.RecordsGenerated
	if err := s.runs.FinishRun(ctx, run); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to persist completed run")
	}

	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to invalidate ranked cache")
	}

	s.archiveSnapshot(ctx, tenantID, calcDate)

	return summary, nil
}

func (s *RecalcService) compute(
	ctx context.Context,
	tenantID string,
	calcDate time.Time,
	cfg config.EngineConfig,
	projector *engine.Projector,
	classifier *engine.Classifier,
) (*domain.RecalculationSummary, error) {
	var (
		variants   []domain.Variant
		aggregates []domain.SalesWindowAggregate
		stocks     map[int64]domain.StockState
	)

	// The three reads are independent snapshots; slight staleness between the
	// stock read and the sales read is an accepted approximation.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrentReads)
	g.Go(func() (err error) {
		variants, err = s.variants.GetVariants(gctx, tenantID)
		return err
	})
	g.Go(func() (err error) {
		aggregates, err = s.sales.GetWindowAggregates(gctx, tenantID, cfg.WindowDays, calcDate)
		return err
	})
	g.Go(func() (err error) {
		stocks, err = s.stock.GetStockStates(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load recalculation inputs: %w", err)
	}

	aggByVariant := make(map[int64]domain.SalesWindowAggregate, len(aggregates))
	for _, agg := range aggregates {
		aggByVariant[agg.VariantID] = agg
	}

	summary := &domain.RecalculationSummary{
		TenantID:        tenantID,
		CalculationDate: calcDate,
		WindowDays:      cfg.WindowDays,
		HorizonDays:     cfg.ProjectionHorizonDays,
		Status:          "completed",
	}

	records := make([]domain.ReplenishmentRecord, 0, len(variants))
	for _, variant := range variants {
		agg := aggByVariant[variant.ID]
		stock := stocks[variant.ID] // missing stock record defaults to (0, 0)

		// Malformed aggregates are logged and skipped, never fatal to the run.
		if err := validateAggregate(agg); err != nil {
			summary.VariantsSkipped++
			log.Warn().Err(err).
				Str("tenant_id", tenantID).
				Int64("variant_id", variant.ID).
				Str("sku", variant.SKU).
				Msg("skipping variant with malformed sales aggregate")
			continue
		}

		proj := projector.Project(agg.UnitsSold, stock.CurrentStock)
		assessment := classifier.Classify(agg, stock, proj)

		records = append(records, domain.ReplenishmentRecord{
			TenantID:          tenantID,
			VariantID:         variant.ID,
			SKU:               variant.SKU,
			ProductName:       variant.ProductName,
			VariantLabel:      variant.Label(),
			CalculationDate:   calcDate,
			CurrentStock:      stock.CurrentStock,
			PendingProduction: stock.PendingProduction,
			SalesInWindow:     agg.UnitsSold,
			OrdersInWindow:    agg.OrderCount,
			RevenueInWindow:   agg.Revenue,
			DailyVelocity:     proj.DailyVelocity,
			DaysOfSupply:      proj.DaysOfSupply,
			ProjectedDemand:   proj.ProjectedDemand,
			SuggestedQuantity: assessment.SuggestedQuantity,
			Urgency:           assessment.Urgency,
			Confidence:        assessment.Confidence,
			Reason:            assessment.Reason,
		})

		summary.VariantsProcessed++
		summary.UrgencyBreakdown.Add(assessment.Urgency)
		summary.DuplicateMetricRows += agg.DuplicateRows
	}

	// Single atomic replace: either the whole snapshot lands or nothing does.
	if err := s.records.ReplaceForDate(ctx, tenantID, calcDate, records); err != nil {
		return nil, fmt.Errorf("failed to persist replenishment snapshot: %w", err)
	}
	summary.RecordsGenerated = len(records)

	if summary.DuplicateMetricRows > 0 {
		log.Warn().
			Str("tenant_id", tenantID).
			Int("duplicate_rows", summary.DuplicateMetricRows).
			Msg("sales metric store holds duplicate rows; schedule a repair")
	}

	return summary, nil
}

// validateAggregate rejects metric data no projection can be built from.
func validateAggregate(agg domain.SalesWindowAggregate) error {
	if agg.UnitsSold < 0 {
		return fmt.Errorf("negative units sold: %d", agg.UnitsSold)
	}
	if agg.OrderCount < 0 {
		return fmt.Errorf("negative order count: %d", agg.OrderCount)
	}
	if agg.UnitsSold > 0 && agg.OrderCount == 0 {
		return fmt.Errorf("units sold %d with zero orders", agg.UnitsSold)
	}
	return nil
}

func (s *RecalcService) archiveSnapshot(ctx context.Context, tenantID string, calcDate time.Time) {
	if s.archiver == nil {
		return
	}

	records, err := s.records.GetRanked(ctx, domain.RankedFilter{
		TenantID: tenantID,
		Date:     calcDate.Format("2006-01-02"),
	})
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to load snapshot for archival")
		return
	}

	payload, err := RenderCSV(records)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("failed to render snapshot for archival")
		return
	}

	key := fmt.Sprintf("replenishment/%s/%s.csv", tenantID, calcDate.Format("2006-01-02"))
	if err := s.archiver.UploadObject(ctx, key, payload, "text/csv"); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to archive snapshot")
		return
	}

	log.Info().Str("key", key).Msg("archived replenishment snapshot")
}

// ListRuns exposes the orchestrator's audit trail.
func (s *RecalcService) ListRuns(ctx context.Context, tenantID string, limit int) ([]domain.CalculationRun, error) {
	return s.runs.ListRuns(ctx, tenantID, limit)
}
