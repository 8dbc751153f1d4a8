package systems

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoskit/internal/dynamo"
)

// Waterwheel models the Malkus waterwheel: a rotating wheel of leaking
// buckets fed near the top, a mechanical analogue of the Lorenz system.
// State: [omega, theta, m_0 .. m_{n-1}].
type Waterwheel struct {
	NumBuckets int
	Q          float64 // inflow rate
	K          float64 // leak rate
	Nu         float64 // rotational damping
	Radius     float64
	Inertia    float64 // wheel inertia without water
}

func NewWaterwheel() *Waterwheel {
	return &Waterwheel{
		NumBuckets: 20,
		Q:          2.5,
		K:          0.1,
		Nu:         1.0,
		Radius:     1.0,
		Inertia:    1.0,
	}
}

func (w *Waterwheel) Kind() Kind    { return KindWaterwheel }
func (w *Waterwheel) StateDim() int { return 2 + w.NumBuckets }

func (w *Waterwheel) bucketAngle(theta float64, i int) float64 {
	return theta + 2*math.Pi*float64(i)/float64(w.NumBuckets)
}

func (w *Waterwheel) Derive(x dynamo.State, _ float64) dynamo.State {
	omega, theta := x[0], x[1]
	n := w.NumBuckets

	torque := 0.0
	for i := 0; i < n; i++ {
		torque += x[2+i] * math.Sin(w.bucketAngle(theta, i))
	}

	dx := make(dynamo.State, 2+n)
	dx[0] = torque - w.Nu*omega
	dx[1] = omega

	// Inflow is confined to the buckets nearest the top of the wheel.
	threshold := math.Abs(math.Cos(2 * math.Pi / float64(n)))
	for i := 0; i < n; i++ {
		angle := w.bucketAngle(theta, i)
		outflow := w.K * x[2+i]

		inflow := 0.0
		if math.Cos(angle) > threshold {
			u := math.Atan2(math.Tan(angle), 1.0)
			inflow = w.Q / 2.0 * (math.Cos(float64(n)*u/2.0) + 1)
		}

		dx[2+i] = inflow - outflow
	}

	return dx
}

// Energy reports rotational kinetic energy plus bucket gravitational
// potential. The wheel is driven and damped, so drift here is
// informational, not a conservation check.
func (w *Waterwheel) Energy(x dynamo.State) float64 {
	omega, theta := x[0], x[1]

	inertia := w.Inertia
	pe := 0.0
	for i := 0; i < w.NumBuckets; i++ {
		m := x[2+i]
		inertia += m * w.Radius * w.Radius
		pe += m * defaultGravity * w.Radius * (1 + math.Cos(w.bucketAngle(theta, i)))
	}

	return 0.5*inertia*omega*omega + pe
}

func (w *Waterwheel) DefaultState() dynamo.State {
	x := make(dynamo.State, w.StateDim())
	x[0] = 0.1 // small initial spin breaks the symmetric rest state
	return x
}

func (w *Waterwheel) Params() map[string]float64 {
	return map[string]float64{
		"Q": w.Q, "K": w.K, "nu": w.Nu,
		"radius": w.Radius, "buckets": float64(w.NumBuckets),
	}
}

func (w *Waterwheel) SetParam(name string, value float64) error {
	switch name {
	case "Q":
		w.Q = value
	case "K":
		w.K = value
	case "nu":
		w.Nu = value
	case "radius":
		w.Radius = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
