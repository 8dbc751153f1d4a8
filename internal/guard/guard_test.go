package guard

import (
	"math"
	"testing"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

func TestClampAcceleration(t *testing.T) {
	a := vecmath.Vec3{X: 3000, Y: 4000}
	clamped := ClampAcceleration(a)

	if math.Abs(clamped.Mag()-MaxAcceleration) > 1e-9 {
		t.Errorf("expected magnitude %f, got %f", MaxAcceleration, clamped.Mag())
	}
	// Direction preserved: 3-4-5 triangle ratios
	if math.Abs(clamped.X/clamped.Y-0.75) > 1e-12 {
		t.Error("direction not preserved")
	}
}

func TestClampVelocityNonFinite(t *testing.T) {
	for _, v := range []vecmath.Vec3{
		{X: math.NaN()},
		{Y: math.Inf(1)},
		{Z: math.Inf(-1)},
	} {
		if got := ClampVelocity(v); got != (vecmath.Vec3{}) {
			t.Errorf("non-finite input must clamp to zero, got %+v", got)
		}
	}
}

func TestClampBelowCapUntouched(t *testing.T) {
	v := vecmath.Vec3{X: 1, Y: 2, Z: 3}
	if ClampVelocity(v) != v {
		t.Error("vector under cap modified")
	}
	if ClampAcceleration(v) != v {
		t.Error("vector under cap modified")
	}
}

func TestSoftenSq(t *testing.T) {
	if got := SoftenSq(0); got != MinDistance*MinDistance {
		t.Errorf("zero separation must floor to minDistance^2, got %g", got)
	}
	if got := SoftenSq(1.0); got != 1.0 {
		t.Errorf("large separation must pass through, got %g", got)
	}
}

type blowupSystem struct{}

func (blowupSystem) StateDim() int { return 2 }
func (blowupSystem) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{math.NaN(), 1e9}
}

func TestWrappedSystemBoundsDerivative(t *testing.T) {
	g := Wrap(blowupSystem{})

	dx := g.Derive(dynamo.State{0, 0}, 0)
	if dx[0] != 0 {
		t.Errorf("NaN component must map to zero, got %f", dx[0])
	}
	if dx[1] != MaxAcceleration {
		t.Errorf("oversized component must clamp to %f, got %f", MaxAcceleration, dx[1])
	}
}
