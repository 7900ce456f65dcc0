package engine

import (
	"testing"

	"github.com/stockops/replenish/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, unitsSold, orderCount, currentStock, pending int) Assessment {
	t.Helper()

	cfg := testEngineConfig()
	projector, err := NewProjector(cfg)
	require.NoError(t, err)

	agg := domain.SalesWindowAggregate{UnitsSold: unitsSold, OrderCount: orderCount}
	stock := domain.StockState{CurrentStock: currentStock, PendingProduction: pending}
	proj := projector.Project(unitsSold, currentStock)

	return NewClassifier(cfg).Classify(agg, stock, proj)
}

func TestClassifyOutOfStockWhileSellingIsCritical(t *testing.T) {
	// 30 units over 30 days, nothing on hand: critical regardless of what the
	// day thresholds would say.
	a := classify(t, 30, 10, 0, 0)

	assert.Equal(t, domain.UrgencyCritical, a.Urgency)
	assert.Contains(t, a.Reason, "stock depleted")
}

func TestClassifyUrgencyTiers(t *testing.T) {
	// Velocity is 1 unit/day throughout, so days of supply equals stock.
	tests := []struct {
		name    string
		stock   int
		urgency domain.Urgency
	}{
		{"just under critical threshold", 6, domain.UrgencyCritical},
		{"exactly at critical threshold", 7, domain.UrgencyHigh},
		{"13 days left", 13, domain.UrgencyHigh},
		{"exactly at high threshold", 14, domain.UrgencyMedium},
		{"29 days left", 29, domain.UrgencyMedium},
		{"exactly at medium threshold", 30, domain.UrgencyLow},
		{"comfortable stock", 90, domain.UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := classify(t, 30, 10, tt.stock, 0)
			assert.Equal(t, tt.urgency, a.Urgency)
		})
	}
}

func TestClassifyNoDemandIsLowEvenAtZeroStock(t *testing.T) {
	// Out of stock but also not selling: a dead variant, not an emergency.
	a := classify(t, 0, 0, 0, 0)

	assert.Equal(t, domain.UrgencyLow, a.Urgency)
	assert.Zero(t, a.SuggestedQuantity)
	assert.Contains(t, a.Reason, "no sales recorded")
}

func TestClassifyConfidenceIsIndependentOfUrgency(t *testing.T) {
	// Two orders in the window is below the minimum sample, so confidence is
	// low, while the depleted stock still makes urgency critical.
	a := classify(t, 10, 2, 0, 0)

	assert.Equal(t, domain.UrgencyCritical, a.Urgency)
	assert.Equal(t, domain.ConfidenceLow, a.Confidence)
	assert.Contains(t, a.Reason, "treat velocity with caution")
}

func TestClassifyConfidenceFromSampleAndGeometry(t *testing.T) {
	cfg := testEngineConfig()

	t.Run("enough orders, horizon within window", func(t *testing.T) {
		c := NewClassifier(cfg)
		assert.Equal(t, domain.ConfidenceHigh, c.confidence(3))
	})

	t.Run("below minimum sample", func(t *testing.T) {
		c := NewClassifier(cfg)
		assert.Equal(t, domain.ConfidenceLow, c.confidence(2))
	})

	t.Run("horizon longer than window", func(t *testing.T) {
		longCfg := cfg
		longCfg.WindowDays = 14
		longCfg.ProjectionHorizonDays = 30
		c := NewClassifier(longCfg)
		assert.Equal(t, domain.ConfidenceMedium, c.confidence(10))
	})
}

func TestClassifySuggestedQuantity(t *testing.T) {
	// 60 units over 30 days is 2/day, projected demand 60, buffered by the
	// 20% safety factor to 72; minus 10 on hand and 5 in production.
	a := classify(t, 60, 10, 10, 5)
	assert.Equal(t, 57, a.SuggestedQuantity)
}

func TestClassifySuggestedQuantityClampsToZero(t *testing.T) {
	// Plenty of stock already covers the buffered demand.
	a := classify(t, 30, 10, 200, 0)
	assert.Zero(t, a.SuggestedQuantity)
}

func TestClassifyNoDemandNeverReorders(t *testing.T) {
	// Negative stock from an upstream data error must not turn into a
	// suggested order for a variant nobody buys.
	cfg := testEngineConfig()
	projector, err := NewProjector(cfg)
	require.NoError(t, err)

	agg := domain.SalesWindowAggregate{}
	stock := domain.StockState{CurrentStock: -12}
	a := NewClassifier(cfg).Classify(agg, stock, projector.Project(0, -12))

	assert.Zero(t, a.SuggestedQuantity)
}
