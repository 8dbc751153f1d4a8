package integrators

import "github.com/san-kum/chaoskit/internal/dynamo"

// Euler is the 1st-order explicit stepper, kept for order-of-convergence
// comparisons against RK4.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	dx := dyn.Derive(x, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
