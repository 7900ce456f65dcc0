// internal/domain/audit.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricRowDetail is one physical sales metric row inside a duplicate group,
// with enough detail (quantity, timestamp) for an operator to pick apart what
// the racing sync writers appended.
type MetricRowDetail struct {
	ID         int64           `json:"id" db:"id"`
	UnitsSold  int             `json:"units_sold" db:"units_sold"`
	OrderCount int             `json:"order_count" db:"order_count"`
	Revenue    decimal.Decimal `json:"revenue" db:"revenue"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// DuplicateGroup is every metric row sharing one (tenant, variant, window_end)
// key when there is more than one of them.
type DuplicateGroup struct {
	VariantID      int64             `json:"variant_id"`
	SKU            string            `json:"sku"`
	WindowEnd      time.Time         `json:"window_end"`
	Rows           []MetricRowDetail `json:"rows"`
	DuplicateCount int               `json:"duplicate_count"` // total rows in the group
	TotalUnits     int               `json:"total_units"`     // units summed across all rows, double counting included
}

// InvestigationReport is the output of the auditor's Investigate operation.
type InvestigationReport struct {
	TenantID           string           `json:"tenant_id"`
	Date               time.Time        `json:"date"`
	TotalMetricRows    int              `json:"total_metric_rows"`
	Duplications       []DuplicateGroup `json:"duplications"`
	AffectedVariants   int              `json:"affected_variants"`
	DuplicateRows      int              `json:"total_duplicate_rows"`
	DoubleCountedUnits int              `json:"double_counted_units"`
}

// CleanResult reports what the auditor's Clean operation deleted.
type CleanResult struct {
	TenantID            string    `json:"tenant_id"`
	Date                time.Time `json:"date"`
	DeletedEntries      int       `json:"deleted_entries"`
	CleanedVariantCount int       `json:"cleaned_variant_count"`
}

// ValidationReport is the output of the auditor's Validate operation. Residual
// groups are included for operator inspection when the store is still dirty.
type ValidationReport struct {
	TenantID            string           `json:"tenant_id"`
	Date                time.Time        `json:"date"`
	Residual            []DuplicateGroup `json:"validation_results"`
	DuplicatesRemaining int              `json:"duplicates_remaining"`
	IsClean             bool             `json:"is_clean"`
}
