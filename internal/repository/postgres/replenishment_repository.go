// internal/repository/postgres/replenishment_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stockops/replenish/internal/domain"
)

type replenishmentRepository struct {
	db *DB
}

func NewReplenishmentRepository(db *DB) *replenishmentRepository {
	return &replenishmentRepository{db: db}
}

// ReplaceForDate atomically swaps the full record set for (tenant, date):
// delete existing rows, insert the new set, one transaction. Running the same
// recompute twice therefore yields the same final row set, never duplicates,
// and a cancelled run persists nothing at all.
func (r *replenishmentRepository) ReplaceForDate(ctx context.Context, tenantID string, date time.Time, records []domain.ReplenishmentRecord) error {
	day := date.Format("2006-01-02")

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM replenishment_records WHERE tenant_id = $1 AND calculation_date = $2::date`,
			tenantID, day,
		); err != nil {
			return fmt.Errorf("failed to delete existing records: %w", err)
		}

		query := `
			INSERT INTO replenishment_records (
				tenant_id, variant_id, sku, product_name, variant_label,
				calculation_date, current_stock, pending_production,
				sales_in_window, orders_in_window, revenue_in_window,
				daily_velocity, days_of_supply, projected_demand,
				suggested_quantity, urgency, confidence, reason, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				tenantID,
				rec.VariantID,
				rec.SKU,
				rec.ProductName,
				rec.VariantLabel,
				day,
				rec.CurrentStock,
				rec.PendingProduction,
				rec.SalesInWindow,
				rec.OrdersInWindow,
				rec.RevenueInWindow,
				rec.DailyVelocity,
				rec.DaysOfSupply,
				rec.ProjectedDemand,
				rec.SuggestedQuantity,
				rec.Urgency,
				rec.Confidence,
				rec.Reason,
			); err != nil {
				return fmt.Errorf("failed to insert record for variant %d: %w", rec.VariantID, err)
			}
		}

		return nil
	})
}

// GetRanked returns records ordered by urgency tier (critical first) then
// ascending days of supply. The tier ordering lives in SQL so pagination and
// the CSV export see the same ranking.
func (r *replenishmentRepository) GetRanked(ctx context.Context, filter domain.RankedFilter) ([]domain.ReplenishmentRecord, error) {
	query := `
		SELECT
			id, tenant_id, variant_id, sku, product_name, variant_label,
			calculation_date, current_stock, pending_production,
			sales_in_window, orders_in_window, revenue_in_window,
			daily_velocity, days_of_supply, projected_demand,
			suggested_quantity, urgency, confidence, reason,
			flagged_discontinued, created_at
		FROM replenishment_records
		WHERE tenant_id = $1
		  AND calculation_date = COALESCE(NULLIF($2, '')::date, (
				SELECT MAX(calculation_date) FROM replenishment_records WHERE tenant_id = $1
		  ))
		  AND ($3 = '' OR urgency = $3)
		ORDER BY
			CASE urgency
				WHEN 'critical' THEN 0
				WHEN 'high'     THEN 1
				WHEN 'medium'   THEN 2
				ELSE 3
			END,
			days_of_supply ASC,
			sku ASC
	`

	args := []interface{}{filter.TenantID, filter.Date, string(filter.Urgency)}
	if filter.Limit > 0 {
		query += " LIMIT $4"
		args = append(args, filter.Limit)
	}

	var records []domain.ReplenishmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ranked records: %w", err)
	}

	return records, nil
}

func (r *replenishmentRepository) GetUrgencySummary(ctx context.Context, tenantID string, date time.Time) (domain.UrgencyBreakdown, error) {
	query := `
		SELECT urgency, COUNT(*) AS count
		FROM replenishment_records
		WHERE tenant_id = $1 AND calculation_date = $2::date
		GROUP BY urgency
	`

	rows, err := r.db.QueryxContext(ctx, query, tenantID, date.Format("2006-01-02"))
	if err != nil {
		return domain.UrgencyBreakdown{}, fmt.Errorf("failed to summarize urgency: %w", err)
	}
	defer rows.Close()

	var breakdown domain.UrgencyBreakdown
	for rows.Next() {
		var urgency domain.Urgency
		var count int
		if err := rows.Scan(&urgency, &count); err != nil {
			return domain.UrgencyBreakdown{}, fmt.Errorf("failed to scan urgency summary: %w", err)
		}
		switch urgency {
		case domain.UrgencyCritical:
			breakdown.Critical += count
		case domain.UrgencyHigh:
			breakdown.High += count
		case domain.UrgencyMedium:
			breakdown.Medium += count
		default:
			breakdown.Low += count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.UrgencyBreakdown{}, fmt.Errorf("failed to iterate urgency summary: %w", err)
	}

	return breakdown, nil
}

func (r *replenishmentRepository) GetAvailableDates(ctx context.Context, tenantID string, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT DISTINCT calculation_date
		FROM replenishment_records
		WHERE tenant_id = $1
		ORDER BY calculation_date DESC
		LIMIT $2
	`

	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list calculation dates: %w", err)
	}

	return dates, nil
}

// FlagDiscontinued marks a variant's record for discontinuation review. This
// is the only field on a record that mutates after a recompute; the flag does
// not survive the next replace-for-date.
func (r *replenishmentRepository) FlagDiscontinued(ctx context.Context, tenantID string, variantID int64, date time.Time) error {
	query := `
		UPDATE replenishment_records
		SET flagged_discontinued = TRUE
		WHERE tenant_id = $1 AND variant_id = $2 AND calculation_date = $3::date
	`

	res, err := r.db.ExecContext(ctx, query, tenantID, variantID, date.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("failed to flag variant %d: %w", variantID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no replenishment record for variant %d on %s", variantID, date.Format("2006-01-02"))
	}

	return nil
}
