// internal/repository/postgres/metric_audit_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/stockops/replenish/internal/domain"
)

type metricAuditRepository struct {
	db *DB
}

func NewMetricAuditRepository(db *DB) *metricAuditRepository {
	return &metricAuditRepository{db: db}
}

func (r *metricAuditRepository) CountMetricRows(ctx context.Context, tenantID string, date time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM sales_window_metrics
		WHERE tenant_id = $1 AND window_end = $2::date
	`
	if err := r.db.GetContext(ctx, &count, query, tenantID, date.Format("2006-01-02")); err != nil {
		return 0, fmt.Errorf("failed to count metric rows: %w", err)
	}
	return count, nil
}

// GetDuplicateGroups returns every (variant, window_end) key holding more than
// one metric row for the date, with the per-row quantities and timestamps an
// operator needs to see what the racing writers appended. Rows inside a group
// come back newest first.
func (r *metricAuditRepository) GetDuplicateGroups(ctx context.Context, tenantID string, date time.Time, sku string) ([]domain.DuplicateGroup, error) {
	query := `
		SELECT m.id, m.variant_id, v.sku, m.window_end,
		       m.units_sold, m.order_count, m.revenue, m.created_at
		FROM sales_window_metrics m
		JOIN variants v ON v.id = m.variant_id
		WHERE m.tenant_id = $1
		  AND m.window_end = $2::date
		  AND ($3 = '' OR v.sku = $3)
		  AND m.variant_id IN (
				SELECT variant_id
				FROM sales_window_metrics
				WHERE tenant_id = $1 AND window_end = $2::date
				GROUP BY variant_id
				HAVING COUNT(*) > 1
		  )
		ORDER BY m.variant_id, m.created_at DESC, m.id DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, tenantID, date.Format("2006-01-02"), sku)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate groups: %w", err)
	}
	defer rows.Close()

	var (
		groups  []domain.DuplicateGroup
		current *domain.DuplicateGroup
	)

	for rows.Next() {
		var (
			detail     domain.MetricRowDetail
			variantID  int64
			variantSKU string
			windowEnd  time.Time
		)
		if err := rows.Scan(&detail.ID, &variantID, &variantSKU, &windowEnd,
			&detail.UnitsSold, &detail.OrderCount, &detail.Revenue, &detail.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate row: %w", err)
		}

		if current == nil || current.VariantID != variantID {
			groups = append(groups, domain.DuplicateGroup{
				VariantID: variantID,
				SKU:       variantSKU,
				WindowEnd: windowEnd,
			})
			current = &groups[len(groups)-1]
		}

		current.Rows = append(current.Rows, detail)
		current.DuplicateCount++
		current.TotalUnits += detail.UnitsSold
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicate rows: %w", err)
	}

	return groups, nil
}

// DeleteAllButLatest keeps the most recently created row of each duplicated
// (variant, window_end) group and deletes the rest. Groups already holding a
// single row are untouched, so re-running the clean is safe.
func (r *metricAuditRepository) DeleteAllButLatest(ctx context.Context, tenantID string, date time.Time, sku string) (int, int, error) {
	query := `
		WITH ranked AS (
			SELECT m.id,
			       m.variant_id,
			       ROW_NUMBER() OVER (
					PARTITION BY m.variant_id
					ORDER BY m.created_at DESC, m.id DESC
			       ) AS rn
			FROM sales_window_metrics m
			JOIN variants v ON v.id = m.variant_id
			WHERE m.tenant_id = $1
			  AND m.window_end = $2::date
			  AND ($3 = '' OR v.sku = $3)
		),
		deleted AS (
			DELETE FROM sales_window_metrics
			WHERE id IN (SELECT id FROM ranked WHERE rn > 1)
			RETURNING id, variant_id
		)
		SELECT COUNT(*) AS deleted_rows, COUNT(DISTINCT variant_id) AS cleaned_variants
		FROM deleted
	`

	var deleted, cleaned int
	if err := r.db.QueryRowContext(ctx, query, tenantID, date.Format("2006-01-02"), sku).
		Scan(&deleted, &cleaned); err != nil {
		return 0, 0, fmt.Errorf("failed to delete duplicate rows: %w", err)
	}

	return deleted, cleaned, nil
}
