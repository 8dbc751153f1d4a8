package systems

import (
	"math"
	"testing"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/logging"
	"github.com/san-kum/chaoskit/internal/validate"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

func twoBodySystem(sep float64) (*NBody, dynamo.State) {
	nb := NewNBody(nil, []Body{
		{Name: "a", Mass: 2.0, Position: vecmath.Vec3{}, Velocity: vecmath.Vec3{X: 1}},
		{Name: "b", Mass: 1.0, Position: vecmath.Vec3{X: sep}, Velocity: vecmath.Vec3{X: -2}},
	})
	return nb, nb.DefaultState()
}

func TestMergeConservesMassAndMomentum(t *testing.T) {
	nb, x := twoBodySystem(0.05)

	before := nb.Momentum(x)
	massBefore := nb.bodies[0].Mass + nb.bodies[1].Mass

	x, events := nb.PostStep(x, 0)

	if nb.NumBodies() != 1 {
		t.Fatalf("expected 1 body after merge, got %d", nb.NumBodies())
	}
	if got := nb.bodies[0].Mass; math.Abs(got-massBefore) > 1e-12 {
		t.Errorf("mass not conserved: %f vs %f", got, massBefore)
	}

	after := nb.Momentum(x)
	if math.Abs(after.X-before.X) > 1e-12 || math.Abs(after.Y-before.Y) > 1e-12 {
		t.Errorf("momentum not conserved: %+v vs %+v", after, before)
	}

	// Exactly one merge event and one removal event.
	var merges, removals int
	for _, ev := range events {
		switch ev.Kind {
		case dynamo.EventMerge:
			merges++
			if ev.CombinedMass != massBefore {
				t.Errorf("merge event mass %f, want %f", ev.CombinedMass, massBefore)
			}
		case dynamo.EventBodyRemoved:
			removals++
		}
	}
	if merges != 1 || removals != 1 {
		t.Errorf("expected 1 merge + 1 removal, got %d + %d", merges, removals)
	}
}

func TestMergeHeavierIdentitySurvives(t *testing.T) {
	nb, x := twoBodySystem(0.05)

	nb.PostStep(x, 0)

	if nb.bodies[0].Name != "a+b" {
		t.Errorf("expected concatenated name a+b, got %q", nb.bodies[0].Name)
	}
}

func TestNoMergeAboveThreshold(t *testing.T) {
	nb, x := twoBodySystem(0.2)

	_, events := nb.PostStep(x, 0)
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if nb.NumBodies() != 2 {
		t.Errorf("bodies merged above threshold")
	}
}

func TestTripleCollisionResolvesDeterministically(t *testing.T) {
	build := func() *NBody {
		return NewNBody(nil, []Body{
			{Name: "a", Mass: 1.0, Position: vecmath.Vec3{}},
			{Name: "b", Mass: 2.0, Position: vecmath.Vec3{X: 0.05}},
			{Name: "c", Mass: 3.0, Position: vecmath.Vec3{X: 0.10}},
		})
	}

	nb := build()
	x, events := nb.PostStep(nb.DefaultState(), 0)

	if nb.NumBodies() != 1 {
		t.Fatalf("expected chained merges down to 1 body, got %d", nb.NumBodies())
	}
	if len(x) != 6 {
		t.Fatalf("state not shrunk: len %d", len(x))
	}
	if math.Abs(nb.bodies[0].Mass-6.0) > 1e-12 {
		t.Errorf("total mass %f, want 6", nb.bodies[0].Mass)
	}

	// Descending-index scan: pair (2,1) first, c survives (heavier),
	// then (1,0) against the combined body.
	if nb.bodies[0].Name != "c+b+a" {
		t.Errorf("unexpected merge order, final name %q", nb.bodies[0].Name)
	}

	// Same initial condition replays to the same event sequence.
	nb2 := build()
	_, events2 := nb2.PostStep(nb2.DefaultState(), 0)
	if len(events) != len(events2) {
		t.Fatalf("event count differs across identical runs")
	}
	for i := range events {
		if events[i].Body1 != events2[i].Body1 || events[i].Body2 != events2[i].Body2 {
			t.Errorf("event %d differs: %+v vs %+v", i, events[i], events2[i])
		}
	}
}

func TestMinPairDistance(t *testing.T) {
	nb, x := twoBodySystem(0.3)
	if got := nb.MinPairDistance(x); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("expected 0.3, got %f", got)
	}

	solo := NewNBody(nil, []Body{{Name: "a", Mass: 1}})
	if got := solo.MinPairDistance(solo.DefaultState()); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf for single body, got %f", got)
	}
}

func TestDispersionGrowsWithSpread(t *testing.T) {
	tight := NewNBody(nil, []Body{
		{Name: "a", Mass: 1, Position: vecmath.Vec3{X: -0.5}},
		{Name: "b", Mass: 1, Position: vecmath.Vec3{X: 0.5}},
		{Name: "c", Mass: 1},
	})
	wide := NewNBody(nil, []Body{
		{Name: "a", Mass: 1, Position: vecmath.Vec3{X: -5}},
		{Name: "b", Mass: 1, Position: vecmath.Vec3{X: 5}},
		{Name: "c", Mass: 1},
	})

	dTight := tight.Dispersion(tight.DefaultState())
	dWide := wide.Dispersion(wide.DefaultState())

	if dWide <= dTight {
		t.Errorf("dispersion should grow with spread: tight %f, wide %f", dTight, dWide)
	}
}

func TestNewNBodySanitizesMasses(t *testing.T) {
	val := validate.New(logging.Discard())
	nb := NewNBody(val, []Body{
		{Name: "a", Mass: -3.0},
		{Name: "b", Mass: 2.0},
	})

	if nb.bodies[0].Mass != 1.0 {
		t.Errorf("negative mass not substituted: %f", nb.bodies[0].Mass)
	}
	if nb.bodies[1].Mass != 2.0 {
		t.Errorf("valid mass modified: %f", nb.bodies[1].Mass)
	}
	if val.Corrections("mass") != 1 {
		t.Errorf("expected 1 mass correction, got %d", val.Corrections("mass"))
	}
}

func TestDeriveSymmetricPairZeroNetForce(t *testing.T) {
	nb, x := twoBodySystem(1.0)
	dx := nb.Derive(x, 0)

	// Newton's third law: accelerations scale inversely with mass.
	ax1, ax2 := dx[3], dx[9]
	if math.Abs(2.0*ax1+1.0*ax2) > 1e-12 {
		t.Errorf("forces not equal and opposite: %f, %f", ax1, ax2)
	}
}
