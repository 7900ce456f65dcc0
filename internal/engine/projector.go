// internal/engine/projector.go
package engine

import (
	"fmt"
	"math"

	"github.com/stockops/replenish/internal/config"
)

// Projection holds the derived velocity and demand figures for one variant.
type Projection struct {
	DailyVelocity   float64 // average units sold per day over the trailing window
	ProjectedDemand float64 // expected units over the projection horizon
	DaysOfSupply    float64 // capped at the configured sentinel when NoDemand
	NoDemand        bool    // true when the variant sold nothing in the window
}

// Projector derives daily sales velocity and projected demand from a sales
// window aggregate. The sales window and the projection horizon are allowed to
// differ (e.g. sales measured over 60 days, demand projected over 30).
type Projector struct {
	windowDays  int
	horizonDays int
	supplyCap   float64
}

// NewProjector validates the engine policy and builds a projector. A
// non-positive window is a configuration error and fails the whole run here,
// before any variant is touched.
func NewProjector(cfg config.EngineConfig) (*Projector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Projector{
		windowDays:  cfg.WindowDays,
		horizonDays: cfg.ProjectionHorizonDays,
		supplyCap:   cfg.DaysOfSupplyCap,
	}, nil
}

// WindowDays returns the trailing window length the projector was built with.
func (p *Projector) WindowDays() int { return p.windowDays }

// HorizonDays returns the projection horizon length.
func (p *Projector) HorizonDays() int { return p.horizonDays }

// Project computes velocity, projected demand and days of supply for one
// variant. A zero-velocity variant gets the days-of-supply sentinel instead of
// a division by zero: an in-stock variant nobody buys is not a restocking
// emergency regardless of absolute stock count. Float infinity never escapes
// this function.
func (p *Projector) Project(unitsSold, currentStock int) Projection {
	velocity := float64(unitsSold) / float64(p.windowDays)

	proj := Projection{
		DailyVelocity:   velocity,
		ProjectedDemand: velocity * float64(p.horizonDays),
	}

	if velocity <= 0 {
		proj.NoDemand = true
		proj.DaysOfSupply = p.supplyCap
		return proj
	}

	proj.DaysOfSupply = math.Min(float64(currentStock)/velocity, p.supplyCap)
	return proj
}
