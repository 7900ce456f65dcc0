// internal/repository/postgres/variant_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/stockops/replenish/internal/domain"
)

type variantRepository struct {
	db *DB
}

func NewVariantRepository(db *DB) *variantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) GetVariants(ctx context.Context, tenantID string) ([]domain.Variant, error) {
	query := `
		SELECT id, tenant_id, sku, product_name,
		       COALESCE(size, '') AS size, COALESCE(color, '') AS color, created_at
		FROM variants
		WHERE tenant_id = $1
		ORDER BY sku ASC
	`

	var variants []domain.Variant
	if err := r.db.SelectContext(ctx, &variants, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}

	return variants, nil
}

func (r *variantRepository) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, tenantID); err != nil {
		return false, fmt.Errorf("failed to check tenant: %w", err)
	}
	return exists, nil
}
