package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoskit/internal/systems"
)

// Snapshot is the flat diagnostic view the host polls once per frame.
type Snapshot struct {
	Kind            string
	Time            float64
	Steps           int
	Dt              float64
	Energy          float64
	InitialEnergy   float64
	DriftPct        float64
	Dispersion      float64
	MinPairDistance float64
	Bodies          int
	Corrections     int
	Halted          bool
}

func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Kind:            e.sys.Kind().String(),
		Time:            e.time,
		Steps:           e.steps,
		Dt:              e.dt,
		Energy:          e.Energy(),
		InitialEnergy:   e.initialEnergy,
		DriftPct:        e.DriftPct(),
		MinPairDistance: math.Inf(1),
		Corrections:     e.val.TotalCorrections(),
		Halted:          e.halted,
	}

	if nb, ok := e.sys.(*systems.NBody); ok {
		s.Bodies = nb.NumBodies()
		s.Dispersion = nb.Dispersion(e.state)
		s.MinPairDistance = nb.MinPairDistance(e.state)
	}

	return s
}

// Features returns a plain numeric vector with parallel labels, the
// seam external consumers (plots, classifiers) read from. Scalar
// diagnostics come first, then the raw state components.
func (e *Engine) Features() ([]float64, []string) {
	snap := e.Snapshot()

	values := []float64{
		snap.Time,
		snap.Energy,
		snap.DriftPct,
		snap.Dispersion,
		snap.MinPairDistance,
		float64(snap.Bodies),
	}
	labels := []string{
		"time", "energy", "drift_pct", "dispersion", "min_distance", "bodies",
	}

	for i, v := range e.state {
		values = append(values, v)
		labels = append(labels, fmt.Sprintf("x%d", i))
	}

	return values, labels
}
