// internal/repository/postgres/run_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/stockops/replenish/internal/domain"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run *domain.CalculationRun) error {
	query := `
		INSERT INTO calculation_runs (tenant_id, calculation_date, status, started_at)
		VALUES ($1, $2::date, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRowContext(ctx, query,
		run.TenantID,
		run.CalculationDate.Format("2006-01-02"),
		run.Status,
		run.StartedAt,
	).Scan(&run.ID); err != nil {
		return fmt.Errorf("failed to create calculation run: %w", err)
	}

	return nil
}

func (r *runRepository) FinishRun(ctx context.Context, run *domain.CalculationRun) error {
	query := `
		UPDATE calculation_runs
		SET status = $2,
		    variants_processed = $3,
		    variants_skipped = $4,
		    records_generated = $5,
		    error_message = $6,
		    completed_at = $7
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		run.VariantsProcessed,
		run.VariantsSkipped,
		run.RecordsGenerated,
		run.ErrorMessage,
		run.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to finish calculation run: %w", err)
	}

	return nil
}

func (r *runRepository) ListRuns(ctx context.Context, tenantID string, limit int) ([]domain.CalculationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, tenant_id, calculation_date, status,
		       variants_processed, variants_skipped, records_generated,
		       COALESCE(error_message, '') AS error_message,
		       started_at, completed_at
		FROM calculation_runs
		WHERE tenant_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	var runs []domain.CalculationRun
	if err := r.db.SelectContext(ctx, &runs, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list calculation runs: %w", err)
	}

	return runs, nil
}
