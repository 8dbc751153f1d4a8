package analysis

import (
	"context"
	"runtime"
	"sync"

	"github.com/san-kum/chaoskit/internal/dynamo"
)

// SweepPoint is the outcome for one grid cell.
type SweepPoint struct {
	Params   map[string]float64
	Exponent float64
}

// BuildFunc constructs a fresh system for one parameter assignment.
// Returning a new instance per cell keeps cells independent, so the
// sweep can run them concurrently.
type BuildFunc func(params map[string]float64) (dynamo.System, dynamo.Integrator, dynamo.State, error)

// Sweep estimates the largest Lyapunov exponent across a parameter
// grid, the cartesian product of Values[i] over Names[i].
type Sweep struct {
	Names  []string
	Values [][]float64
	// Workers bounds concurrency; <1 means GOMAXPROCS.
	Workers int
}

// Run evaluates every grid cell. Results come back in grid order
// regardless of completion order.
func (s *Sweep) Run(ctx context.Context, build BuildFunc, dt, duration, perturbation float64) ([]SweepPoint, error) {
	cells := s.grid()
	points := make([]SweepPoint, len(cells))
	errs := make([]error, len(cells))

	workers := s.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				params := cells[idx]
				sys, integ, x0, err := build(params)
				if err != nil {
					errs[idx] = err
					continue
				}
				points[idx] = SweepPoint{
					Params:   params,
					Exponent: LyapunovExponent(sys, integ, x0, dt, duration, perturbation),
				}
			}
		}()
	}

dispatch:
	for i := range cells {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return points, nil
}

// grid expands the cartesian product, varying the last name fastest.
func (s *Sweep) grid() []map[string]float64 {
	cells := []map[string]float64{{}}
	for d, name := range s.Names {
		next := make([]map[string]float64, 0, len(cells)*len(s.Values[d]))
		for _, cell := range cells {
			for _, v := range s.Values[d] {
				expanded := make(map[string]float64, len(cell)+1)
				for k, kv := range cell {
					expanded[k] = kv
				}
				expanded[name] = v
				next = append(next, expanded)
			}
		}
		cells = next
	}
	return cells
}

// MostChaotic returns the index of the point with the largest exponent,
// -1 for an empty slice.
func MostChaotic(points []SweepPoint) int {
	best := -1
	for i, p := range points {
		if best == -1 || p.Exponent > points[best].Exponent {
			best = i
		}
	}
	return best
}
