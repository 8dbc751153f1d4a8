// Package observability bundles Prometheus metrics for the simulation
// engine and provides an HTTP handler to expose them.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles engine counters. Construct one per registry; the
// engine increments it, the CLI optionally serves it.
type Collector struct {
	gatherer prometheus.Gatherer

	StepsTotal         prometheus.Counter
	ParameterCorrected *prometheus.CounterVec
	CheckpointSaves    prometheus.Counter
	CheckpointRestores prometheus.Counter
	MergesTotal        prometheus.Counter
	InvalidStates      prometheus.Counter
	Bodies             prometheus.Gauge
}

// NewCollector registers engine metrics against reg, defaulting to the
// global Prometheus registry when nil. Taking a concrete *Registry
// keeps Handler serving the same registry the metrics landed in.
func NewCollector(reg *prometheus.Registry) *Collector {
	registerer := prometheus.Registerer(prometheus.DefaultRegisterer)
	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if reg != nil {
		registerer = reg
		gatherer = reg
	}

	factory := promauto.With(registerer)
	return &Collector{
		gatherer: gatherer,
		StepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaoskit_steps_total",
			Help: "Total accepted integration steps.",
		}),
		ParameterCorrected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaoskit_parameter_corrections_total",
			Help: "Parameter substitutions applied by the validator, by parameter kind.",
		}, []string{"param"}),
		CheckpointSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaoskit_checkpoint_saves_total",
			Help: "Periodic checkpoint snapshots taken.",
		}),
		CheckpointRestores: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaoskit_checkpoint_restores_total",
			Help: "Rollbacks to the last checkpoint after an invalid state.",
		}),
		MergesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaoskit_body_merges_total",
			Help: "Collision merges resolved.",
		}),
		InvalidStates: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaoskit_invalid_states_total",
			Help: "Steps rejected because the state went non-finite.",
		}),
		Bodies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chaoskit_bodies",
			Help: "Current number of bodies in the active system.",
		}),
	}
}

// Handler returns an HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
