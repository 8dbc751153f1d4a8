package schema

import (
	"encoding/json"
	"fmt"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/engine"
	"github.com/san-kum/chaoskit/internal/history"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

// legacyDocument is the flat-array N-body format that predates the
// versioned schema: parallel position/velocity/mass/color/name arrays
// for the final frame, plus parallel time/energy series.
type legacyDocument struct {
	Positions  [][]float64 `json:"positions"`
	Velocities [][]float64 `json:"velocities"`
	Masses     []float64   `json:"masses"`
	Colors     []string    `json:"colors"`
	Names      []string    `json:"names"`
	Times      []float64   `json:"times"`
	Energies   []float64   `json:"energies"`
	G          float64     `json:"g"`
	Dt         float64     `json:"dt"`
}

func parseLegacy(data []byte) (*legacyDocument, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *legacyDocument) validate() error {
	n := len(d.Positions)
	if n == 0 {
		return fmt.Errorf("%w: no positions", dynamo.ErrImportFormat)
	}
	if len(d.Velocities) != n || len(d.Masses) != n {
		return fmt.Errorf("%w: parallel arrays disagree (%d positions, %d velocities, %d masses)",
			dynamo.ErrImportFormat, n, len(d.Velocities), len(d.Masses))
	}
	for i := 0; i < n; i++ {
		if len(d.Positions[i]) < 2 || len(d.Positions[i]) > 3 ||
			len(d.Velocities[i]) != len(d.Positions[i]) {
			return fmt.Errorf("%w: body %d has malformed coordinates", dynamo.ErrImportFormat, i)
		}
		for _, v := range append(append([]float64{}, d.Positions[i]...), d.Velocities[i]...) {
			if err := validateFinite("coordinate", v); err != nil {
				return err
			}
		}
		if err := validateFinite("mass", d.Masses[i]); err != nil {
			return err
		}
	}
	if len(d.Times) != len(d.Energies) {
		return fmt.Errorf("%w: time/energy arrays disagree", dynamo.ErrImportFormat)
	}
	for i := range d.Times {
		if err := validateFinite("time", d.Times[i]); err != nil {
			return err
		}
		if err := validateFinite("energy", d.Energies[i]); err != nil {
			return err
		}
	}
	return nil
}

// importLegacy rebuilds an N-body engine from the final frame. The
// legacy format keeps no separate initial-condition record, so the
// initial bodies are re-derived from that same frame; Reset returns
// here, not to wherever the original run began. Known asymmetry.
func importLegacy(doc *legacyDocument, opts engine.Options) (*engine.Engine, error) {
	n := len(doc.Positions)
	bodies := make([]systems.Body, n)
	for i := 0; i < n; i++ {
		bodies[i] = systems.Body{
			Name:     fmt.Sprintf("body%d", i),
			Mass:     doc.Masses[i],
			Position: legacyVec(doc.Positions[i]),
			Velocity: legacyVec(doc.Velocities[i]),
		}
		if i < len(doc.Names) {
			bodies[i].Name = doc.Names[i]
		}
		if i < len(doc.Colors) {
			bodies[i].Color = doc.Colors[i]
		}
	}

	sys := systems.NewNBody(opts.Validator, bodies)
	if doc.G != 0 {
		if err := sys.SetParam("G", doc.G); err != nil {
			return nil, err
		}
	}

	opts.Dt = doc.Dt // zero falls through to the validator default
	e := engine.New(sys, opts)

	var t float64
	if len(doc.Times) > 0 {
		t = doc.Times[len(doc.Times)-1]
	}
	steps := 0
	if e.Dt() > 0 {
		steps = int(t/e.Dt() + 0.5)
	}
	e.Restore(e.State(), t, steps)

	for i, ht := range doc.Times {
		e.History().Append(history.Record{Time: ht, Energy: doc.Energies[i]})
	}
	return e, nil
}

func legacyVec(coords []float64) vecmath.Vec3 {
	v := vecmath.Vec3{X: coords[0], Y: coords[1]}
	if len(coords) == 3 {
		v.Z = coords[2]
	}
	return v
}
