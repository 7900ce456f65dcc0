// internal/service/export.go
package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockops/replenish/internal/domain"
)

var csvHeader = []string{
	"Rank", "Product Name", "Variant", "SKU", "Current Stock",
	"Sales In Window", "Daily Velocity", "Days Of Supply",
	"Revenue In Window", "Distinct Orders", "Urgency",
}

// RenderCSV serializes an already-ranked record list. Output is fully
// deterministic for a given input: rendering the same list twice yields
// byte-identical content. Days of supply is the capped sentinel for
// zero-velocity variants, so no float infinity ever reaches a column.
func RenderCSV(records []domain.ReplenishmentRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	var (
		totalUnits   int
		totalRevenue decimal.Decimal
		breakdown    domain.UrgencyBreakdown
	)

	for i, rec := range records {
		row := []string{
			fmt.Sprintf("%d", i+1),
			rec.ProductName,
			rec.VariantLabel,
			rec.SKU,
			fmt.Sprintf("%d", rec.CurrentStock),
			fmt.Sprintf("%d", rec.SalesInWindow),
			fmt.Sprintf("%.3f", rec.DailyVelocity),
			fmt.Sprintf("%.1f", rec.DaysOfSupply),
			fmt.Sprintf("%.2f", rec.RevenueInWindow.InexactFloat64()),
			fmt.Sprintf("%d", rec.OrdersInWindow),
			strings.ToUpper(string(rec.Urgency)),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}

		totalUnits += rec.SalesInWindow
		totalRevenue = totalRevenue.Add(rec.RevenueInWindow)
		breakdown.Add(rec.Urgency)
	}

	// Trailing summary section
	summary := [][]string{
		{},
		{"SUMMARY"},
		{"Total Variants", fmt.Sprintf("%d", len(records))},
		{"Total Units Sold", fmt.Sprintf("%d", totalUnits)},
		{"Total Revenue", fmt.Sprintf("%.2f", totalRevenue.InexactFloat64())},
		{"Critical", fmt.Sprintf("%d", breakdown.Critical)},
		{"High", fmt.Sprintf("%d", breakdown.High)},
		{"Medium", fmt.Sprintf("%d", breakdown.Medium)},
		{"Low", fmt.Sprintf("%d", breakdown.Low)},
	}
	if len(records) > 0 {
		summary = append(summary, []string{
			"Calculation Date", records[0].CalculationDate.Format("2006-01-02"),
		})
	}

	for _, row := range summary {
		if len(row) == 0 {
			row = []string{""}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv summary: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
