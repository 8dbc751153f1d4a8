package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

func TestStepAdvancesFixedSteps(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: 0.001})

	if _, err := e.Step(10); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if e.Steps() != 10 {
		t.Errorf("expected 10 steps, got %d", e.Steps())
	}
	if math.Abs(e.Time()-0.01) > 1e-12 {
		t.Errorf("expected t=0.01, got %f", e.Time())
	}
}

func TestBadDtSubstituted(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: -1})

	if e.Dt() != 0.001 {
		t.Errorf("expected default dt 0.001, got %f", e.Dt())
	}
	if e.Validator().Corrections("dt") != 1 {
		t.Errorf("expected 1 dt correction, got %d", e.Validator().Corrections("dt"))
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: 0.001})
	e.Step(50)

	e.SaveCheckpoint()
	saved := e.State()
	savedTime := e.Time()

	// Poison the state; the next step must reject and roll back.
	bad := e.State()
	bad[1] = math.NaN()
	e.SetState(bad)

	events, err := e.Step(1)
	if err == nil {
		t.Fatal("expected step rejection")
	}
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	got := e.State()
	for i := range saved {
		if got[i] != saved[i] {
			t.Errorf("component %d not restored exactly: %v vs %v", i, got[i], saved[i])
		}
	}
	if e.Time() != savedTime {
		t.Errorf("time not restored: %f vs %f", e.Time(), savedTime)
	}

	var restored bool
	for _, ev := range events {
		if ev.Kind == dynamo.EventCheckpointRestored {
			restored = true
		}
	}
	if !restored {
		t.Error("expected a checkpoint-restored event")
	}

	// Recovery is transparent: stepping resumes.
	if _, err := e.Step(5); err != nil {
		t.Errorf("stepping after recovery failed: %v", err)
	}
}

func TestInjectedNaNWithoutCheckpointIsFatal(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: 0.001})
	e.Step(5) // under the checkpoint interval, no snapshot yet

	bad := e.State()
	bad[0] = math.NaN()
	e.SetState(bad)

	_, err := e.Step(1)
	if !errors.Is(err, dynamo.ErrUnrecoverable) {
		t.Fatalf("expected ErrUnrecoverable, got %v", err)
	}
	if !e.Halted() {
		t.Error("engine should be halted")
	}

	if _, err := e.Step(1); !errors.Is(err, dynamo.ErrHalted) {
		t.Errorf("expected ErrHalted while halted, got %v", err)
	}

	e.Reset()
	if e.Halted() {
		t.Error("reset should clear the halt")
	}
	if _, err := e.Step(1); err != nil {
		t.Errorf("step after reset failed: %v", err)
	}
}

func TestPeriodicCheckpoint(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: 0.001})

	if _, _, ok := e.Checkpoint(); ok {
		t.Error("no checkpoint expected before the interval")
	}

	e.Step(CheckpointInterval)
	_, steps, ok := e.Checkpoint()
	if !ok {
		t.Fatal("expected checkpoint after interval")
	}
	if steps != CheckpointInterval {
		t.Errorf("checkpoint at step %d, want %d", steps, CheckpointInterval)
	}

	// Single slot: the next interval overwrites.
	e.Step(CheckpointInterval)
	_, steps, _ = e.Checkpoint()
	if steps != 2*CheckpointInterval {
		t.Errorf("checkpoint not overwritten: at step %d", steps)
	}
}

func TestForcedCollision(t *testing.T) {
	nb := systems.NewNBody(nil, []systems.Body{
		{Name: "a", Mass: 1.0, Position: vecmath.Vec3{}},
		{Name: "b", Mass: 1.0, Position: vecmath.Vec3{X: 0.05}},
	})
	e := New(nb, Options{Dt: 0.001})

	events, err := e.Step(1)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	merges := 0
	for _, ev := range events {
		if ev.Kind == dynamo.EventMerge {
			merges++
		}
	}
	if merges != 1 {
		t.Errorf("expected exactly 1 merge event, got %d", merges)
	}
	if nb.NumBodies() != 1 {
		t.Errorf("expected 1 body after merge, got %d", nb.NumBodies())
	}
	if len(e.State()) != 6 {
		t.Errorf("state not shrunk to 6 components, got %d", len(e.State()))
	}
}

func TestFigureEightEnergyDrift(t *testing.T) {
	nb := systems.NewNBody(nil, systems.DefaultBodies())
	e := New(nb, Options{Dt: 0.005})

	if _, err := e.Step(1000); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if drift := e.DriftPct(); drift >= 0.1 {
		t.Errorf("figure-eight drift %.4f%% exceeds 0.1%%", drift)
	}
	if nb.NumBodies() != 3 {
		t.Errorf("figure-eight must not merge, have %d bodies", nb.NumBodies())
	}
}

func TestHistorySampling(t *testing.T) {
	e := New(systems.NewLorenz(), Options{Dt: 0.001, HistoryStride: 5, HistoryCapacity: 100})

	e.Step(50)
	if got := e.History().Len(); got != 10 {
		t.Errorf("expected 10 history records after 50 steps at stride 5, got %d", got)
	}

	recs := e.History().Records()
	if recs[0].Step != 5 || recs[9].Step != 50 {
		t.Errorf("unexpected sampled steps: first %d last %d", recs[0].Step, recs[9].Step)
	}
}

type recordingObserver struct {
	steps  int
	events []dynamo.Event
}

func (r *recordingObserver) OnStep(x dynamo.State, t float64) { r.steps++ }
func (r *recordingObserver) OnEvent(ev dynamo.Event)          { r.events = append(r.events, ev) }

func TestObserverNotified(t *testing.T) {
	nb := systems.NewNBody(nil, []systems.Body{
		{Name: "a", Mass: 2.0, Position: vecmath.Vec3{}},
		{Name: "b", Mass: 1.0, Position: vecmath.Vec3{X: 0.05}},
	})
	e := New(nb, Options{Dt: 0.001})

	obs := &recordingObserver{}
	e.AddObserver(obs)

	e.Step(3)
	if obs.steps != 3 {
		t.Errorf("observer saw %d steps, want 3", obs.steps)
	}
	if len(obs.events) != 2 { // merge + removal on the first step
		t.Errorf("observer saw %d events, want 2", len(obs.events))
	}
}

func TestSnapshotAndFeatures(t *testing.T) {
	nb := systems.NewNBody(nil, systems.DefaultBodies())
	e := New(nb, Options{Dt: 0.005})
	e.Step(10)

	snap := e.Snapshot()
	if snap.Kind != "nbody" {
		t.Errorf("kind %q", snap.Kind)
	}
	if snap.Bodies != 3 {
		t.Errorf("bodies %d", snap.Bodies)
	}
	if snap.Energy >= 0 {
		t.Errorf("bound three-body system should have negative energy, got %f", snap.Energy)
	}
	if math.IsInf(snap.MinPairDistance, 1) {
		t.Error("min pair distance should be finite with 3 bodies")
	}

	values, labels := e.Features()
	if len(values) != len(labels) {
		t.Fatalf("feature/label length mismatch: %d vs %d", len(values), len(labels))
	}
	if len(values) != 6+18 {
		t.Errorf("expected 6 scalars + 18 state components, got %d", len(values))
	}
	if labels[0] != "time" || values[0] != e.Time() {
		t.Errorf("first feature should be time: %s=%f", labels[0], values[0])
	}
}

func TestResetRestoresMergedBodies(t *testing.T) {
	nb := systems.NewNBody(nil, []systems.Body{
		{Name: "a", Mass: 1.0, Position: vecmath.Vec3{}},
		{Name: "b", Mass: 1.0, Position: vecmath.Vec3{X: 0.05}},
	})
	e := New(nb, Options{Dt: 0.001})

	e.Step(1)
	if nb.NumBodies() != 1 {
		t.Fatal("merge did not happen")
	}

	e.Reset()
	if nb.NumBodies() != 2 {
		t.Errorf("reset should restore the 2 initial bodies, got %d", nb.NumBodies())
	}
	if e.Time() != 0 || e.Steps() != 0 {
		t.Errorf("reset should zero the clock: t=%f steps=%d", e.Time(), e.Steps())
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() dynamo.State {
		e := New(systems.NewLorenz(), Options{Dt: 0.001})
		e.Step(500)
		return e.State()
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay diverged at component %d: %v vs %v", i, a[i], b[i])
		}
	}
}
