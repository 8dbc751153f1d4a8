// Package schema serializes engine state to a versioned JSON document
// and reconstructs engines from either the current schema or the
// legacy flat-array format. Import validates the entire payload before
// touching any engine state.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/engine"
	"github.com/san-kum/chaoskit/internal/history"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

// Version tags exported documents for forward-compatible import.
const Version = 2

type Document struct {
	SchemaVersion int                `json:"schemaVersion"`
	Simulation    Simulation         `json:"simulation"`
	Parameters    map[string]float64 `json:"parameters"`
	State         StateDoc           `json:"state"`
	History       HistoryDoc         `json:"history"`
	Metadata      Metadata           `json:"metadata"`
}

type Simulation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Dimension int    `json:"dimension"`
}

// Entity is one exported body, or for oscillator systems the single
// entity carrying the whole state vector.
type Entity struct {
	Name     string      `json:"name,omitempty"`
	Color    string      `json:"color,omitempty"`
	Mass     float64     `json:"mass,omitempty"`
	Position *[3]float64 `json:"position,omitempty"`
	Velocity *[3]float64 `json:"velocity,omitempty"`
	Vector   []float64   `json:"vector,omitempty"`
}

type StateDoc struct {
	Time       float64            `json:"time"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Aggregates map[string]float64 `json:"aggregates"`
	Entities   []Entity           `json:"entities"`
	// Initial conditions, the Reset target. The legacy format has no
	// equivalent record.
	Initial []Entity `json:"initialEntities,omitempty"`
}

type HistoryDoc struct {
	Time       []float64            `json:"time"`
	Aggregates map[string][]float64 `json:"aggregates"`
	Entities   []TrackSet           `json:"entities"`
}

// TrackSet is one entity's sampled trajectory, one row per frame.
type TrackSet struct {
	Name   string      `json:"name,omitempty"`
	Tracks [][]float64 `json:"tracks"`
}

type Metadata struct {
	ExportedAt string `json:"exportedAt"`
	Generator  string `json:"generator"`
}

var simulationNames = map[systems.Kind]string{
	systems.KindNBody:          "Gravitational N-Body",
	systems.KindDoublePendulum: "Double Pendulum",
	systems.KindLorenz:         "Lorenz Attractor",
	systems.KindRossler:        "Rossler Attractor",
	systems.KindWaterwheel:     "Malkus Waterwheel",
}

// Export builds the current-schema document for e.
func Export(e *engine.Engine) *Document {
	sys := e.System()
	kind := sys.Kind()
	snap := e.Snapshot()

	doc := &Document{
		SchemaVersion: Version,
		Simulation: Simulation{
			ID:        kind.String(),
			Name:      simulationNames[kind],
			Type:      kind.String(),
			Dimension: dimensionOf(sys),
		},
		Parameters: sys.Params(),
		State: StateDoc{
			Time:  e.Time(),
			Dt:    e.Dt(),
			Steps: e.Steps(),
			Aggregates: map[string]float64{
				"energy":     snap.Energy,
				"driftPct":   snap.DriftPct,
				"dispersion": snap.Dispersion,
			},
			Entities: entitiesOf(sys, e.State()),
			Initial:  initialEntitiesOf(e),
		},
		History: historyOf(e),
		Metadata: Metadata{
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Generator:  "chaoskit",
		},
	}

	if !math.IsInf(snap.MinPairDistance, 1) {
		doc.State.Aggregates["minDistance"] = snap.MinPairDistance
	}
	return doc
}

// ExportJSON marshals the document with indentation.
func ExportJSON(e *engine.Engine) ([]byte, error) {
	return json.MarshalIndent(Export(e), "", "  ")
}

func dimensionOf(sys systems.System) int {
	if _, ok := sys.(*systems.NBody); ok {
		return 3
	}
	return sys.StateDim()
}

func entitiesOf(sys systems.System, x dynamo.State) []Entity {
	nb, ok := sys.(*systems.NBody)
	if !ok {
		return []Entity{{Name: sys.Kind().String(), Vector: append([]float64(nil), x...)}}
	}

	bodies := nb.Bodies(x)
	out := make([]Entity, len(bodies))
	for i, b := range bodies {
		pos, vel := b.Position.Array(), b.Velocity.Array()
		out[i] = Entity{
			Name:     b.Name,
			Color:    b.Color,
			Mass:     b.Mass,
			Position: &pos,
			Velocity: &vel,
		}
	}
	return out
}

func bodiesOf(entities []Entity) []systems.Body {
	out := make([]systems.Body, len(entities))
	for i, ent := range entities {
		out[i] = systems.Body{
			Name:  ent.Name,
			Color: ent.Color,
			Mass:  ent.Mass,
		}
		if ent.Position != nil {
			out[i].Position = vec3Of(*ent.Position)
		}
		if ent.Velocity != nil {
			out[i].Velocity = vec3Of(*ent.Velocity)
		}
	}
	return out
}

func initialEntitiesOf(e *engine.Engine) []Entity {
	sys := e.System()
	if _, ok := sys.(*systems.NBody); ok {
		// Initial bodies may differ in count from the live set after
		// merges; flatten them through a scratch system.
		scratch := systems.NewNBody(nil, e.InitialBodies())
		return entitiesOf(scratch, scratch.DefaultState())
	}
	return []Entity{{Name: sys.Kind().String(), Vector: append([]float64(nil), e.InitialState()...)}}
}

func historyOf(e *engine.Engine) HistoryDoc {
	records := e.History().Records()
	doc := HistoryDoc{
		Time: make([]float64, 0, len(records)),
		Aggregates: map[string][]float64{
			"energy":   make([]float64, 0, len(records)),
			"driftPct": make([]float64, 0, len(records)),
		},
	}

	dim := e.System().StateDim()
	var kept []dynamo.State
	for _, r := range records {
		// Merges change the state dimension mid-history; tracks only
		// cover frames matching the final entity list.
		if len(r.State) != dim {
			continue
		}
		doc.Time = append(doc.Time, r.Time)
		doc.Aggregates["energy"] = append(doc.Aggregates["energy"], r.Energy)
		doc.Aggregates["driftPct"] = append(doc.Aggregates["driftPct"], r.Drift)
		kept = append(kept, r.State)
	}

	if nb, ok := e.System().(*systems.NBody); ok {
		bodies := nb.Bodies(e.State())
		doc.Entities = make([]TrackSet, len(bodies))
		for i, b := range bodies {
			set := TrackSet{Name: b.Name, Tracks: make([][]float64, len(kept))}
			for f, x := range kept {
				set.Tracks[f] = []float64{x[i*6], x[i*6+1], x[i*6+2]}
			}
			doc.Entities[i] = set
		}
	} else {
		set := TrackSet{Name: e.System().Kind().String(), Tracks: make([][]float64, len(kept))}
		for f, x := range kept {
			set.Tracks[f] = append([]float64(nil), x...)
		}
		doc.Entities = []TrackSet{set}
	}

	return doc
}

// Import reconstructs an engine from data. The current schema is tried
// first, then the legacy flat-array format; anything else fails with
// ErrImportFormat. The returned engine is freshly built, so a parse or
// validation failure leaves nothing half-mutated.
func Import(data []byte, opts engine.Options) (*engine.Engine, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err == nil && doc.SchemaVersion >= 1 {
		return importDocument(&doc, opts)
	}

	if legacy, err := parseLegacy(data); err == nil {
		return importLegacy(legacy, opts)
	}

	return nil, dynamo.ErrImportFormat
}

func importDocument(doc *Document, opts engine.Options) (*engine.Engine, error) {
	if doc.SchemaVersion > Version {
		return nil, fmt.Errorf("%w: schema version %d newer than supported %d",
			dynamo.ErrImportFormat, doc.SchemaVersion, Version)
	}
	kind, err := systems.ParseKind(doc.Simulation.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrImportFormat, err)
	}
	if err := validateDocument(doc, kind); err != nil {
		return nil, err
	}

	var sys systems.System
	if kind == systems.KindNBody {
		sys = systems.NewNBody(opts.Validator, bodiesOf(doc.State.Entities))
	} else {
		sys, err = systems.New(kind)
		if err != nil {
			return nil, err
		}
	}

	for name, v := range doc.Parameters {
		// Per-body masses were already installed via entities.
		if kind == systems.KindNBody && name != "G" && name != "mergeDistance" {
			continue
		}
		if name == "buckets" {
			continue
		}
		if err := sys.SetParam(name, v); err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", dynamo.ErrImportFormat, name, err)
		}
	}

	if kind != systems.KindNBody && len(doc.State.Entities[0].Vector) != sys.StateDim() {
		return nil, fmt.Errorf("%w: state vector length %d, want %d",
			dynamo.ErrImportFormat, len(doc.State.Entities[0].Vector), sys.StateDim())
	}

	opts.Dt = doc.State.Dt
	e := engine.New(sys, opts)

	if len(doc.State.Initial) > 0 {
		e.LoadInitial(stateOf(sys, doc.State.Initial))
	}
	e.Restore(stateOf(sys, doc.State.Entities), doc.State.Time, doc.State.Steps)
	importHistory(e, &doc.History)
	return e, nil
}

func stateOf(sys systems.System, entities []Entity) dynamo.State {
	if nb, ok := sys.(*systems.NBody); ok {
		return nb.StateOf(bodiesOf(entities))
	}
	return append(dynamo.State(nil), entities[0].Vector...)
}

func vec3Of(a [3]float64) vecmath.Vec3 {
	return vecmath.FromArray(a)
}

func importHistory(e *engine.Engine, doc *HistoryDoc) {
	_, isNBody := e.System().(*systems.NBody)
	dim := e.System().StateDim()

	for i, t := range doc.Time {
		rec := history.Record{Time: t}
		if vals := doc.Aggregates["energy"]; i < len(vals) {
			rec.Energy = vals[i]
		}
		if vals := doc.Aggregates["driftPct"]; i < len(vals) {
			rec.Drift = vals[i]
		}
		if isNBody {
			rec.State = bodyFrame(doc.Entities, i, dim)
		} else if len(doc.Entities) == 1 && i < len(doc.Entities[0].Tracks) {
			rec.State = append(dynamo.State(nil), doc.Entities[0].Tracks[i]...)
		}
		e.History().Append(rec)
	}
}

// bodyFrame rebuilds one sampled state vector from per-entity position
// tracks. Tracks carry positions only; velocity slots stay zero.
func bodyFrame(sets []TrackSet, frame, dim int) dynamo.State {
	if len(sets) == 0 || len(sets)*6 != dim {
		return nil
	}
	x := make(dynamo.State, dim)
	for b, set := range sets {
		if frame >= len(set.Tracks) || len(set.Tracks[frame]) != 3 {
			return nil
		}
		copy(x[b*6:b*6+3], set.Tracks[frame])
	}
	return x
}

func validateDocument(doc *Document, kind systems.Kind) error {
	if len(doc.State.Entities) == 0 {
		return fmt.Errorf("%w: no entities", dynamo.ErrImportFormat)
	}
	if err := validateFinite("dt", doc.State.Dt); err != nil {
		return err
	}
	if err := validateFinite("time", doc.State.Time); err != nil {
		return err
	}

	for i, ent := range doc.State.Entities {
		if kind == systems.KindNBody {
			if ent.Position == nil || ent.Velocity == nil {
				return fmt.Errorf("%w: entity %d missing position/velocity", dynamo.ErrImportFormat, i)
			}
			for _, v := range ent.Position {
				if err := validateFinite("position", v); err != nil {
					return err
				}
			}
			for _, v := range ent.Velocity {
				if err := validateFinite("velocity", v); err != nil {
					return err
				}
			}
		} else {
			for _, v := range ent.Vector {
				if err := validateFinite("state", v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateFinite(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: non-finite %s", dynamo.ErrImportFormat, what)
	}
	return nil
}
