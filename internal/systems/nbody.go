package systems

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoskit/internal/dynamo"
	"github.com/san-kum/chaoskit/internal/guard"
	"github.com/san-kum/chaoskit/internal/validate"
	"github.com/san-kum/chaoskit/internal/vecmath"
)

// MergeDistance is the separation below which two bodies merge.
const MergeDistance = 0.15

// Body is one gravitating particle. Name and Color are opaque identity
// consumed by the view layer.
type Body struct {
	Name     string
	Color    string
	Mass     float64
	Position vecmath.Vec3
	Velocity vecmath.Vec3
}

// NBody simulates N gravitating bodies in three dimensions.
// State: [x, y, z, vx, vy, vz] per body, concatenated in body order.
// Body metadata (mass, identity) lives here; positions and velocities
// are authoritative in the engine's state vector and mirrored into
// Bodies on demand.
type NBody struct {
	G             float64
	MergeDistance float64
	bodies        []Body
}

// NewNBody sanitizes G and every mass through val (nil skips
// validation) and returns a ready system.
func NewNBody(val *validate.Validator, bodies []Body) *NBody {
	nb := &NBody{
		G:             1.0,
		MergeDistance: MergeDistance,
		bodies:        make([]Body, len(bodies)),
	}
	copy(nb.bodies, bodies)

	if val != nil {
		nb.G, _ = val.Validate("G", nb.G, validate.RuleG)
		for i := range nb.bodies {
			nb.bodies[i].Mass, _ = val.Validate("mass", nb.bodies[i].Mass, validate.RuleMass)
		}
	}
	return nb
}

// DefaultBodies is the figure-eight three-body choreography (Chenciner
// and Montgomery), stable under G=1 with unit masses.
func DefaultBodies() []Body {
	p := vecmath.Vec3{X: 0.97000436, Y: -0.24308753}
	v := vecmath.Vec3{X: 0.466203685, Y: 0.43236573}
	return []Body{
		{Name: "alpha", Color: "#ff6b6b", Mass: 1.0, Position: p, Velocity: v},
		{Name: "beta", Color: "#4ecdc4", Mass: 1.0, Position: p.Scale(-1), Velocity: v},
		{Name: "gamma", Color: "#ffe66d", Mass: 1.0, Velocity: v.Scale(-2)},
	}
}

func (nb *NBody) Kind() Kind     { return KindNBody }
func (nb *NBody) StateDim() int  { return len(nb.bodies) * 6 }
func (nb *NBody) NumBodies() int { return len(nb.bodies) }

// Bodies returns body metadata with position/velocity filled from x.
func (nb *NBody) Bodies(x dynamo.State) []Body {
	out := make([]Body, len(nb.bodies))
	copy(out, nb.bodies)
	for i := range out {
		out[i].Position = posAt(x, i)
		out[i].Velocity = velAt(x, i)
	}
	return out
}

// StateOf flattens bodies into a state vector and replaces the stored
// metadata. Used by initial-condition loading and import.
func (nb *NBody) StateOf(bodies []Body) dynamo.State {
	nb.bodies = make([]Body, len(bodies))
	copy(nb.bodies, bodies)

	x := make(dynamo.State, len(bodies)*6)
	for i, b := range bodies {
		setPos(x, i, b.Position)
		setVel(x, i, b.Velocity)
	}
	return x
}

func posAt(x dynamo.State, i int) vecmath.Vec3 {
	return vecmath.Vec3{X: x[i*6], Y: x[i*6+1], Z: x[i*6+2]}
}

func velAt(x dynamo.State, i int) vecmath.Vec3 {
	return vecmath.Vec3{X: x[i*6+3], Y: x[i*6+4], Z: x[i*6+5]}
}

func setPos(x dynamo.State, i int, p vecmath.Vec3) {
	x[i*6], x[i*6+1], x[i*6+2] = p.X, p.Y, p.Z
}

func setVel(x dynamo.State, i int, v vecmath.Vec3) {
	x[i*6+3], x[i*6+4], x[i*6+5] = v.X, v.Y, v.Z
}

func (nb *NBody) Derive(x dynamo.State, _ float64) dynamo.State {
	n := len(nb.bodies)
	dx := make(dynamo.State, len(x))

	accel := make([]vecmath.Vec3, n)
	for i := 0; i < n; i++ {
		pi := posAt(x, i)
		for j := i + 1; j < n; j++ {
			d := posAt(x, j).Sub(pi)
			r2 := guard.SoftenSq(d.MagSq())
			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			accel[i] = accel[i].Add(d.Scale(nb.G * nb.bodies[j].Mass * r3Inv))
			accel[j] = accel[j].Add(d.Scale(-nb.G * nb.bodies[i].Mass * r3Inv))
		}
	}

	for i := 0; i < n; i++ {
		v := guard.ClampVelocity(velAt(x, i))
		a := guard.ClampAcceleration(accel[i])
		dx[i*6], dx[i*6+1], dx[i*6+2] = v.X, v.Y, v.Z
		dx[i*6+3], dx[i*6+4], dx[i*6+5] = a.X, a.Y, a.Z
	}

	return dx
}

// PostStep resolves collisions after an accepted step. Pairs are
// scanned in descending index order and the scan restarts after each
// merge, so chained multi-body collisions resolve deterministically
// within one step.
func (nb *NBody) PostStep(x dynamo.State, t float64) (dynamo.State, []dynamo.Event) {
	var events []dynamo.Event

	for {
		i, j, ok := nb.closestOverlap(x)
		if !ok {
			break
		}
		x = nb.merge(x, i, j, t, &events)
	}

	return x, events
}

// closestOverlap returns the first pair within MergeDistance in a
// descending-index scan, as (higher, lower) indices.
func (nb *NBody) closestOverlap(x dynamo.State) (int, int, bool) {
	n := len(nb.bodies)
	for i := n - 1; i >= 1; i-- {
		for j := i - 1; j >= 0; j-- {
			if posAt(x, i).Sub(posAt(x, j)).Mag() < nb.MergeDistance {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// merge combines bodies i and j (i > j). Mass is summed; velocity and
// position are mass-weighted averages, conserving momentum. The more
// massive body keeps its slot and identity; ties keep the lower index.
func (nb *NBody) merge(x dynamo.State, i, j int, t float64, events *[]dynamo.Event) dynamo.State {
	survivor, removed := j, i
	if nb.bodies[i].Mass > nb.bodies[j].Mass {
		survivor, removed = i, j
	}

	bs, br := nb.bodies[survivor], nb.bodies[removed]
	total := bs.Mass + br.Mass

	pos := posAt(x, survivor).Scale(bs.Mass / total).
		Add(posAt(x, removed).Scale(br.Mass / total))
	vel := velAt(x, survivor).Scale(bs.Mass / total).
		Add(velAt(x, removed).Scale(br.Mass / total))

	*events = append(*events, dynamo.Event{
		Kind:         dynamo.EventMerge,
		Time:         t,
		Body1:        bs.Name,
		Body2:        br.Name,
		Position:     pos.Array(),
		CombinedMass: total,
	})

	nb.bodies[survivor].Mass = total
	nb.bodies[survivor].Name = bs.Name + "+" + br.Name
	setPos(x, survivor, pos)
	setVel(x, survivor, vel)

	*events = append(*events, dynamo.Event{
		Kind:  dynamo.EventBodyRemoved,
		Time:  t,
		Index: removed,
		Body1: br.Name,
	})

	nb.bodies = append(nb.bodies[:removed], nb.bodies[removed+1:]...)
	return append(x[:removed*6], x[removed*6+6:]...)
}

func (nb *NBody) Energy(x dynamo.State) float64 {
	n := len(nb.bodies)
	ke := 0.0
	pe := 0.0

	for i := 0; i < n; i++ {
		ke += 0.5 * nb.bodies[i].Mass * velAt(x, i).MagSq()

		for j := i + 1; j < n; j++ {
			r := math.Sqrt(guard.SoftenSq(posAt(x, j).Sub(posAt(x, i)).MagSq()))
			pe -= nb.G * nb.bodies[i].Mass * nb.bodies[j].Mass / r
		}
	}

	return ke + pe
}

func (nb *NBody) Momentum(x dynamo.State) vecmath.Vec3 {
	var p vecmath.Vec3
	for i := range nb.bodies {
		p = p.Add(velAt(x, i).Scale(nb.bodies[i].Mass))
	}
	return p
}

// MinPairDistance returns the minimum pairwise separation, +Inf with
// fewer than two bodies.
func (nb *NBody) MinPairDistance(x dynamo.State) float64 {
	n := len(nb.bodies)
	if n < 2 {
		return math.Inf(1)
	}

	min := math.Inf(1)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := posAt(x, j).Sub(posAt(x, i)).Mag(); d < min {
				min = d
			}
		}
	}
	return min
}

// Dispersion is log(1 + var(distance from center of mass) * 10), a
// dispersion index, not thermodynamic entropy.
func (nb *NBody) Dispersion(x dynamo.State) float64 {
	n := len(nb.bodies)
	if n == 0 {
		return 0
	}

	var com vecmath.Vec3
	total := 0.0
	for i := range nb.bodies {
		com = com.Add(posAt(x, i).Scale(nb.bodies[i].Mass))
		total += nb.bodies[i].Mass
	}
	com = com.Scale(1 / total)

	mean := 0.0
	dists := make([]float64, n)
	for i := 0; i < n; i++ {
		dists[i] = posAt(x, i).Sub(com).Mag()
		mean += dists[i]
	}
	mean /= float64(n)

	variance := 0.0
	for _, d := range dists {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(n)

	return math.Log(1 + variance*10)
}

func (nb *NBody) DefaultState() dynamo.State {
	return nb.StateOf(nb.bodies)
}

func (nb *NBody) Params() map[string]float64 {
	p := map[string]float64{"G": nb.G, "mergeDistance": nb.MergeDistance}
	for i, b := range nb.bodies {
		p[fmt.Sprintf("mass%d", i)] = b.Mass
	}
	return p
}

func (nb *NBody) SetParam(name string, value float64) error {
	switch name {
	case "G":
		nb.G = value
	case "mergeDistance":
		nb.MergeDistance = value
	default:
		var i int
		if _, err := fmt.Sscanf(name, "mass%d", &i); err == nil && i >= 0 && i < len(nb.bodies) {
			nb.bodies[i].Mass = value
			return nil
		}
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
