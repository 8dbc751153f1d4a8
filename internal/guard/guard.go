// Package guard bounds derivative magnitudes so a close encounter under
// fixed-step RK4 cannot blow up into NaN and poison the whole state.
package guard

import (
	"math"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

const (
	// MaxAcceleration caps acceleration magnitude.
	MaxAcceleration = 1000.0
	// MaxVelocity caps velocity magnitude.
	MaxVelocity = 100.0
	// MinDistance is the softening length: squared pairwise separation
	// is floored to MinDistance^2 before division in the force law.
	MinDistance = 0.01
)

// ClampAcceleration bounds a to MaxAcceleration, preserving direction.
// Non-finite input maps to the zero vector.
func ClampAcceleration(a vecmath.Vec3) vecmath.Vec3 {
	if !a.IsFinite() {
		return vecmath.Vec3{}
	}
	return a.ClampMag(MaxAcceleration)
}

// ClampVelocity bounds v to MaxVelocity, preserving direction.
// Non-finite input maps to the zero vector.
func ClampVelocity(v vecmath.Vec3) vecmath.Vec3 {
	if !v.IsFinite() {
		return vecmath.Vec3{}
	}
	return v.ClampMag(MaxVelocity)
}

// SoftenSq floors a squared separation at MinDistance^2.
func SoftenSq(r2 float64) float64 {
	if r2 < MinDistance*MinDistance {
		return MinDistance * MinDistance
	}
	return r2
}

// clampScalar bounds a lone derivative component, mapping non-finite
// values to zero.
func clampScalar(v, max float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}

// System wraps an inner system so every derivative component is bounded
// before the integrator combines stages. The integrator itself never
// clamps; this decorator is the single place derivatives are guarded.
type System struct {
	Inner dynamo.System
}

func Wrap(inner dynamo.System) *System {
	return &System{Inner: inner}
}

func (g *System) StateDim() int { return g.Inner.StateDim() }

func (g *System) Derive(x dynamo.State, t float64) dynamo.State {
	dx := g.Inner.Derive(x, t)
	for i := range dx {
		dx[i] = clampScalar(dx[i], MaxAcceleration)
	}
	return dx
}

// Energy forwards to the inner system when it defines one.
func (g *System) Energy(x dynamo.State) float64 {
	if h, ok := g.Inner.(dynamo.Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}
