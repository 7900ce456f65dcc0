// internal/service/audit_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stockops/replenish/internal/lock"
	"github.com/stockops/replenish/internal/repository"
)

// AuditService is the duplication auditor/repairer for the sales metric
// store. Investigate, Clean and Validate are deliberately decoupled: duplicate
// detection is an operator-triggered diagnostic, not a background guarantee,
// and duplicates can recur from the upstream sync.
type AuditService struct {
	metrics repository.MetricAuditRepository
	locker  lock.TenantLocker
}

func NewAuditService(metrics repository.MetricAuditRepository, locker lock.TenantLocker) *AuditService {
	return &AuditService{metrics: metrics, locker: locker}
}

// Investigate groups metric rows by (tenant, variant, date) and reports every
// group with more than one row, plus the aggregate damage figures. Read-only.
func (s *AuditService) Investigate(ctx context.Context, tenantID string, date time.Time, sku string) (*domain.InvestigationReport, error) {
	totalRows, err := s.metrics.CountMetricRows(ctx, tenantID, date)
	if err != nil {
		return nil, err
	}

	groups, err := s.metrics.GetDuplicateGroups(ctx, tenantID, date, sku)
	if err != nil {
		return nil, err
	}

	report := &domain.InvestigationReport{
		TenantID:        tenantID,
		Date:            date,
		TotalMetricRows: totalRows,
		Duplications:    groups,
	}
	for _, g := range groups {
		report.AffectedVariants++
		report.DuplicateRows += g.DuplicateCount
		report.DoubleCountedUnits += g.TotalUnits
	}

	return report, nil
}

// Clean keeps the most recently created row of every duplicated group and
// deletes the rest. It takes the tenant's recalculation lock so a repair can
// never race a recompute reading the same date; groups already reduced to one
// row are untouched, so re-running is safe.
func (s *AuditService) Clean(ctx context.Context, tenantID string, date time.Time, sku string) (*domain.CleanResult, error) {
	release, err := s.locker.Acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	deleted, cleaned, err := s.metrics.DeleteAllButLatest(ctx, tenantID, date, sku)
	if err != nil {
		return nil, fmt.Errorf("failed to clean duplicate metrics: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("date", date.Format("2006-01-02")).
		Int("deleted_entries", deleted).
		Int("cleaned_variants", cleaned).
		Msg("cleaned duplicate sales metrics")

	return &domain.CleanResult{
		TenantID:            tenantID,
		Date:                date,
		DeletedEntries:      deleted,
		CleanedVariantCount: cleaned,
	}, nil
}

// Validate re-groups and asserts the at-most-one-row invariant, returning the
// residual grouped view for operator inspection when it does not hold.
func (s *AuditService) Validate(ctx context.Context, tenantID string, date time.Time) (*domain.ValidationReport, error) {
	groups, err := s.metrics.GetDuplicateGroups(ctx, tenantID, date, "")
	if err != nil {
		return nil, err
	}

	remaining := 0
	for _, g := range groups {
		remaining += g.DuplicateCount
	}

	return &domain.ValidationReport{
		TenantID:            tenantID,
		Date:                date,
		Residual:            groups,
		DuplicatesRemaining: remaining,
		IsClean:             len(groups) == 0,
	}, nil
}
