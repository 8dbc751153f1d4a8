// Package viz provides terminal-based visualization for running simulations.
//
// The package implements a live TUI using the Bubble Tea framework:
//
//   - [Model]: Bubble Tea model driving an engine and rendering its state
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	C     - Save a checkpoint
//	V     - Restore the last checkpoint
//	Tab   - Cycle tunable parameters
//	Up/Dn - Adjust the selected parameter
//	X/Y/Z - Rotate the 3D camera
//	?     - Show help overlay
package viz
