package engine

import (
	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/systems"
)

// checkpoint is the single-slot rollback snapshot. For N-body systems
// body metadata is captured too, since merges rewrite mass and
// identity between snapshots.
type checkpoint struct {
	state  dynamo.State
	time   float64
	steps  int
	bodies []systems.Body
}

// save overwrites the previous checkpoint with the current position.
func (e *Engine) save() {
	c := &checkpoint{
		state: e.state.Clone(),
		time:  e.time,
		steps: e.steps,
	}
	if nb, ok := e.sys.(*systems.NBody); ok {
		c.bodies = nb.Bodies(e.state)
	}
	e.chkpt = c

	if e.metrics != nil {
		e.metrics.CheckpointSaves.Inc()
	}
	e.log.Debug("checkpoint saved", "step", e.steps, "time", e.time)
}

// restore rolls back to the checkpoint and returns the event
// describing the jump.
func (e *Engine) restore() dynamo.Event {
	c := e.chkpt

	x := c.state.Clone()
	if nb, ok := e.sys.(*systems.NBody); ok && c.bodies != nil {
		x = nb.StateOf(c.bodies)
	}
	e.state = x
	e.time = c.time
	e.steps = c.steps

	if e.metrics != nil {
		e.metrics.CheckpointRestores.Inc()
	}
	e.updateBodyGauge()
	e.log.Warn("invalid state, restored checkpoint",
		"step", c.steps, "time", c.time)

	return dynamo.Event{Kind: dynamo.EventCheckpointRestored, Time: c.time}
}

// Checkpoint reports the saved step position, or ok=false when no
// checkpoint has been taken yet.
func (e *Engine) Checkpoint() (time float64, steps int, ok bool) {
	if e.chkpt == nil {
		return 0, 0, false
	}
	return e.chkpt.time, e.chkpt.steps, true
}

// SaveCheckpoint forces an immediate snapshot outside the periodic
// schedule. Exposed for hosts that checkpoint before risky mutations.
func (e *Engine) SaveCheckpoint() {
	e.save()
}

// RestoreCheckpoint rolls back to the saved position on demand.
// Returns false when no checkpoint exists.
func (e *Engine) RestoreCheckpoint() bool {
	if e.chkpt == nil {
		return false
	}
	ev := e.restore()
	e.notifyEvent(ev)
	return true
}
