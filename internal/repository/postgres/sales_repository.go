// internal/repository/postgres/sales_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/stockops/replenish/internal/domain"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

// GetWindowAggregates rolls the daily sales metric rows up into one aggregate
// per variant over (asOf - windowDays, asOf]. The upstream sync writes metric
// rows from non-cancelled orders only; cancelled orders never reach this
// table. The SUM deliberately runs across duplicate (variant, window_end)
// rows: the store is not assumed clean, and the per-variant duplicate count
// is surfaced so an operator can schedule a repair. Do not "fix" this query
// by deduplicating here.
func (r *salesRepository) GetWindowAggregates(ctx context.Context, tenantID string, windowDays int, asOf time.Time) ([]domain.SalesWindowAggregate, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("window days must be positive, got %d", windowDays)
	}

	query := `
		SELECT
			variant_id,
			COALESCE(SUM(units_sold), 0)  AS units_sold,
			COALESCE(SUM(order_count), 0) AS order_count,
			COALESCE(SUM(revenue), 0)     AS revenue,
			COUNT(*) - COUNT(DISTINCT window_end) AS duplicate_rows
		FROM sales_window_metrics
		WHERE tenant_id = $1
		  AND window_end > $2::date - $3::int
		  AND window_end <= $2::date
		GROUP BY variant_id
	`

	var aggregates []domain.SalesWindowAggregate
	if err := r.db.SelectContext(ctx, &aggregates, query, tenantID, asOf.Format("2006-01-02"), windowDays); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales window: %w", err)
	}

	return aggregates, nil
}
