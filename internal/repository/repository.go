// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/stockops/replenish/internal/domain"
)

// VariantRepository reads the tenant's sellable catalog. Variants are owned
// by the catalog module; this engine never writes them.
type VariantRepository interface {
	GetVariants(ctx context.Context, tenantID string) ([]domain.Variant, error)
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// SalesRepository aggregates the daily sales metric rows over a trailing
// window. The metric store can hold duplicate (variant, window_end) rows left
// behind by racing sync triggers; reads sum across them and surface the
// duplicate count instead of assuming uniqueness. Pure read.
type SalesRepository interface {
	GetWindowAggregates(ctx context.Context, tenantID string, windowDays int, asOf time.Time) ([]domain.SalesWindowAggregate, error)
}

// StockRepository reads current on-hand stock and in-flight production per
// variant. Variants with no stock record default to (0, 0). Pure read.
type StockRepository interface {
	GetStockStates(ctx context.Context, tenantID string) (map[int64]domain.StockState, error)
}

// ReplenishmentRepository owns the engine's output rows. ReplaceForDate is the
// only write path for records: delete-then-insert for one (tenant, date) in a
// single transaction, which is what makes repeated recomputes idempotent.
type ReplenishmentRepository interface {
	ReplaceForDate(ctx context.Context, tenantID string, date time.Time, records []domain.ReplenishmentRecord) error
	GetRanked(ctx context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, error)
	GetUrgencySummary(ctx context.Context, tenantID string, date time.Time) (domain.UrgencyBreakdown, error)
	GetAvailableDates(ctx context.Context, tenantID string, limit int) ([]time.Time, error)
	FlagDiscontinued(ctx context.Context, tenantID string, variantID int64, date time.Time) error
}

// RunRepository persists the audit trail of orchestrator invocations.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.CalculationRun) error
	FinishRun(ctx context.Context, run *domain.CalculationRun) error
	ListRuns(ctx context.Context, tenantID string, limit int) ([]domain.CalculationRun, error)
}

// MetricAuditRepository is the duplication auditor's view of the sales metric
// store: grouped duplicate inspection plus the keep-latest repair delete. The
// engine owns the repair of duplicates even though the write path that creates
// them belongs to the upstream sync.
type MetricAuditRepository interface {
	CountMetricRows(ctx context.Context, tenantID string, date time.Time) (int, error)
	GetDuplicateGroups(ctx context.Context, tenantID string, date time.Time, sku string) ([]domain.DuplicateGroup, error)
	DeleteAllButLatest(ctx context.Context, tenantID string, date time.Time, sku string) (deleted int, cleanedVariants int, err error)
}
