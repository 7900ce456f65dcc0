package service

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockops/replenish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportRecords() []domain.ReplenishmentRecord {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return []domain.ReplenishmentRecord{
		{
			ProductName:     "Basic Tee",
			VariantLabel:    "M / Black",
			SKU:             "SKU-A",
			CalculationDate: date,
			CurrentStock:    0,
			SalesInWindow:   60,
			OrdersInWindow:  10,
			RevenueInWindow: decimal.NewFromInt(900),
			DailyVelocity:   2,
			DaysOfSupply:    0,
			Urgency:         domain.UrgencyCritical,
		},
		{
			ProductName:     "Cap",
			VariantLabel:    "",
			SKU:             "SKU-D",
			CalculationDate: date,
			CurrentStock:    50,
			SalesInWindow:   0,
			OrdersInWindow:  0,
			RevenueInWindow: decimal.Zero,
			DailyVelocity:   0,
			DaysOfSupply:    9999,
			Urgency:         domain.UrgencyLow,
		},
	}
}

func TestRenderCSVRowsAndFormatting(t *testing.T) {
	out, err := RenderCSV(exportRecords())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	assert.Equal(t,
		"Rank,Product Name,Variant,SKU,Current Stock,Sales In Window,Daily Velocity,Days Of Supply,Revenue In Window,Distinct Orders,Urgency",
		lines[0])
	assert.Equal(t, "1,Basic Tee,M / Black,SKU-A,0,60,2.000,0.0,900.00,10,CRITICAL", lines[1])
	// The zero-velocity variant shows the capped sentinel, never Inf or NaN.
	assert.Equal(t, "2,Cap,,SKU-D,50,0,0.000,9999.0,0.00,0,LOW", lines[2])
	assert.NotContains(t, string(out), "Inf")
}

func TestRenderCSVSummarySection(t *testing.T) {
	out, err := RenderCSV(exportRecords())
	require.NoError(t, err)

	content := string(out)
	assert.Contains(t, content, "SUMMARY")
	assert.Contains(t, content, "Total Variants,2")
	assert.Contains(t, content, "Total Units Sold,60")
	assert.Contains(t, content, "Total Revenue,900.00")
	assert.Contains(t, content, "Critical,1")
	assert.Contains(t, content, "Low,1")
	assert.Contains(t, content, "Calculation Date,2026-03-02")
}

func TestRenderCSVIsDeterministic(t *testing.T) {
	records := exportRecords()

	first, err := RenderCSV(records)
	require.NoError(t, err)
	second, err := RenderCSV(records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderCSVEmptyList(t *testing.T) {
	out, err := RenderCSV(nil)
	require.NoError(t, err)

	content := string(out)
	assert.Contains(t, content, "Total Variants,0")
	assert.NotContains(t, content, "Calculation Date")
}
