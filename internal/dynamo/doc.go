// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Event]: outward push-notifications (merges, removals, rollbacks)
//
// # Example
//
//	sys := systems.NewLorenz()
//	eng := engine.New(sys, engine.Options{Dt: 0.001})
//	events, err := eng.Step(10)
//
// # Thread Safety
//
// Engine instances are NOT thread-safe. Independent instances may be
// advanced in any order with no shared mutable state between them.
package dynamo
