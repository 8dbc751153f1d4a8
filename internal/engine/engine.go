// Package engine advances a dynamical system by whole fixed steps,
// guarding the numerics and rolling back to a checkpoint when a step
// goes non-finite. The host (a render loop, the CLI, a test) owns the
// instance and drives Step(n) synchronously; nothing here spawns
// goroutines or blocks on I/O.
package engine

import (
	"log/slog"
	"math"
	"strings"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/guard"
	"github.com/san-kum/chaoskit/internal/history"
	"github.com/san-kum/chaoskit/internal/integrators"
	"github.com/san-kum/chaoskit/internal/logging"
	"github.com/san-kum/chaoskit/internal/observability"
	"github.com/san-kum/chaoskit/internal/systems"
	"github.com/san-kum/chaoskit/internal/validate"
)

// CheckpointInterval is how many accepted steps separate snapshots.
const CheckpointInterval = 200

type Options struct {
	Dt                 float64
	Integrator         dynamo.Integrator
	Validator          *validate.Validator
	Logger             *slog.Logger
	Collector          *observability.Collector
	CheckpointInterval int
	HistoryStride      int
	HistoryCapacity    int
}

// Engine owns one system's state and advances it step by step. Not
// safe for concurrent use; independent engines share nothing.
type Engine struct {
	sys     systems.System
	guarded dynamo.System
	integ   dynamo.Integrator
	val     *validate.Validator
	log     *slog.Logger
	metrics *observability.Collector

	dt    float64
	state dynamo.State
	time  float64
	steps int

	chkptInterval int
	chkpt         *checkpoint

	initialState  dynamo.State
	initialBodies []systems.Body
	initialEnergy float64

	hist      *history.Store
	observers []dynamo.Observer
	halted    bool
}

func New(sys systems.System, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	val := opts.Validator
	if val == nil {
		val = validate.New(log)
	}
	integ := opts.Integrator
	if integ == nil {
		integ = integrators.NewRK4()
	}
	interval := opts.CheckpointInterval
	if interval <= 0 {
		interval = CheckpointInterval
	}

	e := &Engine{
		sys:           sys,
		guarded:       guard.Wrap(sys),
		integ:         integ,
		val:           val,
		log:           log,
		metrics:       opts.Collector,
		chkptInterval: interval,
		hist:          history.New(opts.HistoryStride, opts.HistoryCapacity),
	}

	if e.metrics != nil {
		val.OnCorrected(func(name string) {
			e.metrics.ParameterCorrected.WithLabelValues(name).Inc()
		})
	}

	e.dt, _ = val.Validate("dt", opts.Dt, validate.RuleDt)
	e.LoadInitial(sys.DefaultState())
	return e
}

// LoadInitial installs a new initial condition: the reset target,
// distinct from checkpoints. Clears time, history and checkpoint.
func (e *Engine) LoadInitial(x dynamo.State) {
	e.initialState = x.Clone()
	if nb, ok := e.sys.(*systems.NBody); ok {
		e.initialBodies = nb.Bodies(e.initialState)
	}
	e.rewind(e.initialState.Clone(), e.initialBodies)
	e.initialEnergy = e.Energy()
}

// Reset reloads the last explicit initial-condition snapshot and
// clears all transient state, including a halt.
func (e *Engine) Reset() {
	e.rewind(e.initialState.Clone(), e.initialBodies)
}

func (e *Engine) rewind(x dynamo.State, bodies []systems.Body) {
	if nb, ok := e.sys.(*systems.NBody); ok && bodies != nil {
		x = nb.StateOf(bodies)
	}
	e.state = x
	e.time = 0
	e.steps = 0
	e.chkpt = nil
	e.halted = false
	e.hist.Clear()
	e.updateBodyGauge()
}

// Step advances n whole fixed steps, returning any events raised. A
// non-finite state rejects the step: with a checkpoint available the
// engine rolls back and reports a recoverable *SimulationError wrapping
// ErrInvalidState; without one it halts with ErrUnrecoverable and only
// Reset clears the halt.
func (e *Engine) Step(n int) ([]dynamo.Event, error) {
	if e.halted {
		return nil, dynamo.ErrHalted
	}

	var events []dynamo.Event
	for i := 0; i < n; i++ {
		next := e.integ.Step(e.guarded, e.state, e.time, e.dt)

		if !next.IsValid() {
			if e.metrics != nil {
				e.metrics.InvalidStates.Inc()
			}
			if e.chkpt == nil {
				e.halted = true
				e.log.Error("state diverged with no checkpoint, halting",
					"step", e.steps, "time", e.time)
				return events, &dynamo.SimulationError{
					Step: e.steps, Time: e.time, Wrapped: dynamo.ErrUnrecoverable,
				}
			}

			failedAt := e.steps
			failedTime := e.time
			ev := e.restore()
			events = append(events, ev)
			e.notifyEvent(ev)
			return events, &dynamo.SimulationError{
				Step: failedAt, Time: failedTime, Wrapped: dynamo.ErrInvalidState,
			}
		}

		e.state = next
		e.time += e.dt
		e.steps++
		if e.metrics != nil {
			e.metrics.StepsTotal.Inc()
		}

		if ps, ok := e.sys.(dynamo.PostStepper); ok {
			var evs []dynamo.Event
			e.state, evs = ps.PostStep(e.state, e.time)
			for _, ev := range evs {
				if ev.Kind == dynamo.EventMerge {
					e.log.Info("bodies merged",
						"body1", ev.Body1, "body2", ev.Body2, "mass", ev.CombinedMass)
					if e.metrics != nil {
						e.metrics.MergesTotal.Inc()
					}
				}
				e.notifyEvent(ev)
			}
			if len(evs) > 0 {
				e.updateBodyGauge()
			}
			events = append(events, evs...)
		}

		if e.steps%e.chkptInterval == 0 {
			e.save()
		}
		if e.hist.Due(e.steps) {
			snap := e.Snapshot()
			e.hist.Append(history.Record{
				Time:   e.time,
				Step:   e.steps,
				State:  e.state,
				Energy: snap.Energy,
				Drift:  snap.DriftPct,
			})
		}
		for _, o := range e.observers {
			o.OnStep(e.state, e.time)
		}
	}

	return events, nil
}

func (e *Engine) notifyEvent(ev dynamo.Event) {
	for _, o := range e.observers {
		o.OnEvent(ev)
	}
}

func (e *Engine) updateBodyGauge() {
	if e.metrics == nil {
		return
	}
	if nb, ok := e.sys.(*systems.NBody); ok {
		e.metrics.Bodies.Set(float64(nb.NumBodies()))
	}
}

// AddObserver registers o for per-step and per-event notifications.
func (e *Engine) AddObserver(o dynamo.Observer) {
	e.observers = append(e.observers, o)
}

// State returns a copy of the current state vector.
func (e *Engine) State() dynamo.State { return e.state.Clone() }

// SetState overwrites the state in place, e.g. drag-to-reposition.
// The next step validates the result.
func (e *Engine) SetState(x dynamo.State) { e.state = x.Clone() }

func (e *Engine) Time() float64          { return e.time }
func (e *Engine) Steps() int             { return e.steps }
func (e *Engine) Dt() float64            { return e.dt }
func (e *Engine) Halted() bool           { return e.halted }
func (e *Engine) System() systems.System { return e.sys }
func (e *Engine) History() *history.Store {
	return e.hist
}
func (e *Engine) Validator() *validate.Validator { return e.val }

// InitialState returns a copy of the reset target state.
func (e *Engine) InitialState() dynamo.State { return e.initialState.Clone() }

// InitialBodies returns the initial body set for N-body systems, nil
// otherwise.
func (e *Engine) InitialBodies() []systems.Body {
	if e.initialBodies == nil {
		return nil
	}
	out := make([]systems.Body, len(e.initialBodies))
	copy(out, e.initialBodies)
	return out
}

// SetParam validates then applies a parameter change. "dt" is engine
// owned; everything else is delegated to the system.
func (e *Engine) SetParam(name string, value float64) error {
	switch name {
	case "dt":
		e.dt, _ = e.val.Validate("dt", value, validate.RuleDt)
		return nil
	case "G":
		value, _ = e.val.Validate("G", value, validate.RuleG)
	default:
		rule := validate.Rule{Default: 0}
		if strings.HasPrefix(name, "mass") || name == "m1" || name == "m2" {
			rule = validate.RuleMass
		}
		value, _ = e.val.Validate(name, value, rule)
	}
	return e.sys.SetParam(name, value)
}

// Energy reports total energy, 0 for systems without one.
func (e *Engine) Energy() float64 {
	if h, ok := e.sys.(dynamo.Hamiltonian); ok {
		return h.Energy(e.state)
	}
	return 0
}

// Restore installs a mid-run position, used by schema import after the
// whole payload has been validated.
func (e *Engine) Restore(x dynamo.State, t float64, steps int) {
	e.state = x.Clone()
	e.time = t
	e.steps = steps
	e.halted = false
}

// DriftPct is the relative energy drift from the initial condition, in
// percent; 0 when the initial energy was 0.
func (e *Engine) DriftPct() float64 {
	if e.initialEnergy == 0 {
		return 0
	}
	return math.Abs(e.Energy()-e.initialEnergy) / math.Abs(e.initialEnergy) * 100
}
