// internal/repository/postgres/stock_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/stockops/replenish/internal/domain"
)

type stockRepository struct {
	db *DB
}

func NewStockRepository(db *DB) *stockRepository {
	return &stockRepository{db: db}
}

// GetStockStates returns the current stock snapshot per variant. Variants
// without a stock record simply stay absent from the map; callers default
// them to (0, 0).
func (r *stockRepository) GetStockStates(ctx context.Context, tenantID string) (map[int64]domain.StockState, error) {
	query := `
		SELECT s.variant_id, s.current_stock, s.pending_production
		FROM stock_states s
		JOIN variants v ON v.id = s.variant_id
		WHERE v.tenant_id = $1
	`

	var states []domain.StockState
	if err := r.db.SelectContext(ctx, &states, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to load stock states: %w", err)
	}

	byVariant := make(map[int64]domain.StockState, len(states))
	for _, s := range states {
		byVariant[s.VariantID] = s
	}

	return byVariant, nil
}
