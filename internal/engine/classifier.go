// internal/engine/classifier.go
package engine

import (
	"fmt"
	"math"

	"github.com/stockops/replenish/internal/config"
	"github.com/stockops/replenish/internal/domain"
)

// Assessment is the classifier's verdict for one variant: how urgently it
// needs restocking, how much to order, and how far the velocity estimate can
// be trusted. Urgency and confidence are computed from disjoint inputs.
type Assessment struct {
	Urgency           domain.Urgency
	Confidence        domain.Confidence
	SuggestedQuantity int
	Reason            string
}

// Classifier applies the urgency decision list and the reorder quantity policy.
type Classifier struct {
	criticalDays  float64
	highDays      float64
	mediumDays    float64
	safetyFactor  float64
	minSample     int
	horizonLonger bool // projection horizon exceeds the sales window
}

// NewClassifier builds a classifier from engine policy. Thresholds are
// configuration with stated defaults (7/14/30 days), never literals in the
// decision code.
func NewClassifier(cfg config.EngineConfig) *Classifier {
	return &Classifier{
		criticalDays:  cfg.CriticalThresholdDays,
		highDays:      cfg.HighThresholdDays,
		mediumDays:    cfg.MediumThresholdDays,
		safetyFactor:  cfg.SafetyStockFactor,
		minSample:     cfg.MinOrderSample,
		horizonLonger: cfg.ProjectionHorizonDays > cfg.WindowDays,
	}
}

// Classify combines the sales aggregate, stock state and projection into a
// final assessment.
func (c *Classifier) Classify(agg domain.SalesWindowAggregate, stock domain.StockState, proj Projection) Assessment {
	urgency := c.urgency(stock.CurrentStock, proj)
	confidence := c.confidence(agg.OrderCount)

	return Assessment{
		Urgency:           urgency,
		Confidence:        confidence,
		SuggestedQuantity: c.suggestedQuantity(stock, proj),
		Reason:            c.reason(urgency, confidence, agg, stock, proj),
	}
}

// urgency walks the ordered decision list; first match wins.
func (c *Classifier) urgency(currentStock int, proj Projection) domain.Urgency {
	switch {
	case currentStock == 0 && proj.DailyVelocity > 0:
		// Actively selling and completely out: always critical, irrespective
		// of thresholds.
		return domain.UrgencyCritical
	case !proj.NoDemand && proj.DaysOfSupply < c.criticalDays:
		return domain.UrgencyCritical
	case !proj.NoDemand && proj.DaysOfSupply < c.highDays:
		return domain.UrgencyHigh
	case !proj.NoDemand && proj.DaysOfSupply < c.mediumDays:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// confidence reflects statistical reliability of the velocity estimate only.
// It must never look at stock or urgency.
func (c *Classifier) confidence(ordersInWindow int) domain.Confidence {
	switch {
	case ordersInWindow < c.minSample:
		return domain.ConfidenceLow
	case c.horizonLonger:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceHigh
	}
}

// suggestedQuantity applies the safety-stock buffered reorder formula, clamped
// to zero. Zero-velocity variants always suggest zero, even when stock has
// gone negative from upstream data errors: dead stock is never reordered.
func (c *Classifier) suggestedQuantity(stock domain.StockState, proj Projection) int {
	if proj.NoDemand {
		return 0
	}

	buffered := proj.ProjectedDemand * (1 + c.safetyFactor)
	qty := math.Round(buffered - float64(stock.CurrentStock) - float64(stock.PendingProduction))
	if qty < 0 {
		return 0
	}
	return int(qty)
}

func (c *Classifier) reason(urgency domain.Urgency, confidence domain.Confidence, agg domain.SalesWindowAggregate, stock domain.StockState, proj Projection) string {
	if proj.NoDemand {
		return "no sales recorded in window; restock not suggested"
	}

	var base string
	switch {
	case stock.CurrentStock == 0 && urgency == domain.UrgencyCritical:
		base = fmt.Sprintf("stock depleted while selling %.3f units/day", proj.DailyVelocity)
	case urgency == domain.UrgencyCritical:
		base = fmt.Sprintf("%.1f days of supply left at current velocity", proj.DaysOfSupply)
	case urgency == domain.UrgencyHigh:
		base = fmt.Sprintf("%.1f days of supply, below the %.0f-day reorder threshold", proj.DaysOfSupply, c.highDays)
	case urgency == domain.UrgencyMedium:
		base = fmt.Sprintf("%.1f days of supply, restock within the month", proj.DaysOfSupply)
	default:
		base = fmt.Sprintf("%.1f days of supply, no action needed", proj.DaysOfSupply)
	}

	// A critical variant with a thin order sample gets an explicit caution so
	// the restock decision can be sized down.
	if confidence == domain.ConfidenceLow {
		return fmt.Sprintf("%s; only %d orders observed in window, treat velocity with caution", base, agg.OrderCount)
	}
	return base
}
