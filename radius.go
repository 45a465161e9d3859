package proximity

import (
	"math"
	"time"

	"github.com/hupe1980/proximity/model"
)

// RadiusEnv is the context a RadiusPolicy sees when a new entry is created.
type RadiusEnv struct {
	// Now is the insertion time.
	Now time.Time
	// Scale is the radius scale published by the feedback controller (1 without feedback).
	Scale float64
	// RecentInvalidations counts recent invalidations within radius of center.
	RecentInvalidations func(center model.Vector, radius float64) int
}

// RadiusPolicy chooses the acceptance radius of a new entry.
type RadiusPolicy interface {
	Radius(center model.Vector, env RadiusEnv) float64
}

// FixedRadius assigns the same radius to every entry.
// The feedback scale is ignored: the radius is fixed at construction time.
type FixedRadius float64

// Radius implements RadiusPolicy.
func (r FixedRadius) Radius(model.Vector, RadiusEnv) float64 {
	return float64(r)
}

// AdaptiveRadius narrows the radius of entries created in neighborhoods that
// were invalidated recently, and follows the feedback controller's scale.
//
//	r = clamp(Base * Scale * Shrink^n, Min, Base * Scale)
//
// where n is the number of recent invalidations within Neighborhood * Base
// of the new center.
type AdaptiveRadius struct {
	// Base is the radius used in quiet neighborhoods.
	Base float64
	// Min is the lower bound for the radius.
	Min float64
	// Shrink is the factor applied per nearby invalidation, in (0, 1].
	Shrink float64
	// Neighborhood scales Base to the distance within which invalidations count.
	Neighborhood float64
}

// NewAdaptiveRadius returns an AdaptiveRadius with commonly useful defaults.
func NewAdaptiveRadius(base float64) *AdaptiveRadius {
	return &AdaptiveRadius{
		Base:         base,
		Min:          0,
		Shrink:       0.5,
		Neighborhood: 2,
	}
}

// Radius implements RadiusPolicy.
func (a *AdaptiveRadius) Radius(center model.Vector, env RadiusEnv) float64 {
	scale := env.Scale
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	upper := a.Base * scale

	n := 0
	if env.RecentInvalidations != nil && a.Neighborhood > 0 {
		n = env.RecentInvalidations(center, a.Base*a.Neighborhood)
	}

	shrink := a.Shrink
	if shrink <= 0 || shrink > 1 {
		shrink = 1
	}

	r := upper * math.Pow(shrink, float64(n))
	if r < a.Min {
		r = a.Min
	}
	if r > upper && upper >= a.Min {
		r = upper
	}
	return max(r, 0)
}
