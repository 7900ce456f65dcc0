// internal/service/query_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockops/replenish/internal/cache"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stockops/replenish/internal/repository"
)

// QueryService is the read-only surface over the ranked replenishment
// snapshot, consumed by the console UI.
type QueryService struct {
	records repository.ReplenishmentRepository
	cache   cache.RankedCache
}

func NewQueryService(records repository.ReplenishmentRepository, cacheImpl cache.RankedCache) *QueryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRankedCache()
	}
	return &QueryService{records: records, cache: cacheImpl}
}

// GetRanked returns the ordered listing: urgency tier first (critical on top),
// then ascending days of supply. forceRefresh bypasses the read-through cache.
func (s *QueryService) GetRanked(ctx context.Context, filter domain.RankedFilter, forceRefresh bool) ([]domain.ReplenishmentRecord, error) {
	if !forceRefresh {
		if records, ok, err := s.cache.GetRanked(ctx, filter); err == nil && ok {
			return records, nil
		} else if err != nil {
			log.Warn().Err(err).Msg("replenishment: cache get ranked failed")
		}
	}

	records, err := s.records.GetRanked(ctx, filter)
	if err != nil {
		return nil, err
	}
	domain.SortRanked(records)

	if err := s.cache.SetRanked(ctx, filter, records); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache set ranked failed")
	}

	return records, nil
}

// ExportCSV renders the ranked listing for download. Exporting the same
// snapshot twice yields byte-identical output.
func (s *QueryService) ExportCSV(ctx context.Context, filter domain.RankedFilter) ([]byte, error) {
	records, err := s.GetRanked(ctx, filter, false)
	if err != nil {
		return nil, err
	}
	return RenderCSV(records)
}

func (s *QueryService) GetUrgencySummary(ctx context.Context, tenantID string, date time.Time) (domain.UrgencyBreakdown, error) {
	return s.records.GetUrgencySummary(ctx, tenantID, date)
}

func (s *QueryService) GetAvailableDates(ctx context.Context, tenantID string, limit int) ([]time.Time, error) {
	return s.records.GetAvailableDates(ctx, tenantID, limit)
}

// FlagDiscontinued marks a variant for discontinuation review and drops the
// tenant's cached listings so the flag shows up immediately.
func (s *QueryService) FlagDiscontinued(ctx context.Context, tenantID string, variantID int64, date time.Time) error {
	if err := s.records.FlagDiscontinued(ctx, tenantID, variantID, date); err != nil {
		return fmt.Errorf("failed to flag variant for discontinuation: %w", err)
	}

	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("replenishment: cache invalidate failed")
	}

	return nil
}
