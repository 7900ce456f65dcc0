// internal/domain/models.go
package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Variant identifies one sellable SKU. Identity is immutable; display
// attributes are owned by the catalog module and only read here.
type Variant struct {
	ID          int64     `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	SKU         string    `json:"sku" db:"sku"`
	ProductName string    `json:"product_name" db:"product_name"`
	Size        string    `json:"size" db:"size"`
	Color       string    `json:"color" db:"color"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Label returns the human-readable size/color descriptor for exports.
func (v Variant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + " / " + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}

// StockState is the current on-hand and in-production quantity for a variant.
// Owned and mutated by the inventory/production modules; read-only here.
type StockState struct {
	VariantID         int64 `json:"variant_id" db:"variant_id"`
	CurrentStock      int   `json:"current_stock" db:"current_stock"`
	PendingProduction int   `json:"pending_production" db:"pending_production"`
}

// SalesWindowMetric is one aggregate row in the append-only sales metric
// store, keyed by (tenant, variant, window_end). Upstream sync triggers can
// race and append more than one row for the same key; the auditor restores
// the at-most-one-row invariant.
type SalesWindowMetric struct {
	ID         int64           `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	VariantID  int64           `json:"variant_id" db:"variant_id"`
	WindowEnd  time.Time       `json:"window_end" db:"window_end"`
	UnitsSold  int             `json:"units_sold" db:"units_sold"`
	OrderCount int             `json:"order_count" db:"order_count"`
	Revenue    decimal.Decimal `json:"revenue" db:"revenue"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// SalesWindowAggregate is the read-time rollup of sales activity for one
// variant over the trailing window. Reads sum across duplicate metric rows
// and surface the duplicate count so an operator can schedule a repair; they
// never assume the store is clean.
type SalesWindowAggregate struct {
	VariantID     int64           `json:"variant_id" db:"variant_id"`
	UnitsSold     int             `json:"units_sold" db:"units_sold"`
	OrderCount    int             `json:"order_count" db:"order_count"`
	Revenue       decimal.Decimal `json:"revenue" db:"revenue"`
	DuplicateRows int             `json:"duplicate_rows" db:"duplicate_rows"`
}

// ReplenishmentRecord is the engine's output for one variant on one
// calculation date. Each recalculation replaces the full set for
// (tenant, date); rows are never partially updated.
type ReplenishmentRecord struct {
	ID                  int64           `json:"id" db:"id"`
	TenantID            string          `json:"tenant_id" db:"tenant_id"`
	VariantID           int64           `json:"variant_id" db:"variant_id"`
	SKU                 string          `json:"sku" db:"sku"`
	ProductName         string          `json:"product_name" db:"product_name"`
	VariantLabel        string          `json:"variant_label" db:"variant_label"`
	CalculationDate     time.Time       `json:"calculation_date" db:"calculation_date"`
	CurrentStock        int             `json:"current_stock" db:"current_stock"`
	PendingProduction   int             `json:"pending_production" db:"pending_production"`
	SalesInWindow       int             `json:"sales_in_window" db:"sales_in_window"`
	OrdersInWindow      int             `json:"orders_in_window" db:"orders_in_window"`
	RevenueInWindow     decimal.Decimal `json:"revenue_in_window" db:"revenue_in_window"`
	DailyVelocity       float64         `json:"daily_velocity" db:"daily_velocity"`
	DaysOfSupply        float64         `json:"days_of_supply" db:"days_of_supply"`
	ProjectedDemand     float64         `json:"projected_demand" db:"projected_demand"`
	SuggestedQuantity   int             `json:"suggested_quantity" db:"suggested_quantity"`
	Urgency             Urgency         `json:"urgency" db:"urgency"`
	Confidence          Confidence      `json:"confidence" db:"confidence"`
	Reason              string          `json:"reason" db:"reason"`
	FlaggedDiscontinued bool            `json:"flagged_discontinued" db:"flagged_discontinued"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
}

// UrgencyBreakdown counts records per urgency tier for a run summary.
type UrgencyBreakdown struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Add increments the counter for the given tier.
func (b *UrgencyBreakdown) Add(u Urgency) {
	switch u {
	case UrgencyCritical:
		b.Critical++
	case UrgencyHigh:
		b.High++
	case UrgencyMedium:
		b.Medium++
	default:
		b.Low++
	}
}

// RecalculationSummary is the caller-facing result of one orchestrator run.
type RecalculationSummary struct {
	TenantID            string           `json:"tenant_id"`
	CalculationDate     time.Time        `json:"calculation_date"`
	WindowDays          int              `json:"window_days"`
	HorizonDays         int              `json:"projection_horizon_days"`
	VariantsProcessed   int              `json:"total_variants_processed"`
	VariantsSkipped     int              `json:"variants_skipped_due_to_error"`
	RecordsGenerated    int              `json:"records_generated"`
	UrgencyBreakdown    UrgencyBreakdown `json:"urgency_breakdown"`
	DuplicateMetricRows int              `json:"duplicate_metric_rows"`
	Status              string           `json:"status"`
}

// RunStatus is the lifecycle state of a calculation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CalculationRun is the persisted audit trail of one orchestrator invocation.
type CalculationRun struct {
	ID                int64      `json:"id" db:"id"`
	TenantID          string     `json:"tenant_id" db:"tenant_id"`
	CalculationDate   time.Time  `json:"calculation_date" db:"calculation_date"`
	Status            RunStatus  `json:"status" db:"status"`
	VariantsProcessed int        `json:"variants_processed" db:"variants_processed"`
	VariantsSkipped   int        `json:"variants_skipped" db:"variants_skipped"`
	RecordsGenerated  int        `json:"records_generated" db:"records_generated"`
	ErrorMessage      string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt         time.Time  `json:"started_at" db:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// SortRanked orders records by urgency tier (critical first) then ascending
// days of supply, with SKU as a stable tiebreak. This is the single ranking
// contract; the store's ORDER BY and any cached listing must agree with it.
func SortRanked(records []ReplenishmentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		if a.DaysOfSupply != b.DaysOfSupply {
			return a.DaysOfSupply < b.DaysOfSupply
		}
		return a.SKU < b.SKU
	})
}

// RankedFilter narrows the ranked replenishment listing.
type RankedFilter struct {
	TenantID string  `json:"tenant_id"`
	Date     string  `json:"date"` // YYYY-MM-DD; empty means latest available
	Urgency  Urgency `json:"urgency,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}
