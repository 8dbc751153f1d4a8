package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an autonomous ODE dX/dt = f(X, t). Derive must be pure:
// identical (x, t) always yield identical output.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian is implemented by systems with a defined total energy.
type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// PostStepper is implemented by systems that rewrite state after an
// accepted step (collision merges). The returned state may have a
// different dimension than the input.
type PostStepper interface {
	PostStep(x State, t float64) (State, []Event)
}

type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

type Observer interface {
	OnStep(x State, t float64)
	OnEvent(ev Event)
}

// EventKind discriminates engine push-notifications.
type EventKind int

const (
	EventMerge EventKind = iota
	EventBodyRemoved
	EventCheckpointRestored
)

// Event is the only information the engine pushes outward. Merge events
// carry both body names, the merge position and the combined mass;
// removal events carry the removed body's index at removal time.
type Event struct {
	Kind         EventKind
	Time         float64
	Body1        string
	Body2        string
	Position     [3]float64
	CombinedMass float64
	Index        int
}
