// Package metrics counts compilations for Prometheus.
//
// A Recorder owns its registry, so several recorders (one per test, or
// one per watch session) never collide on the default registerer. Batch
// runs export through the node_exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/cdrc/internal/compiler"
	"github.com/roach88/cdrc/internal/ir"
)

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder tracks compile outcomes.
type Recorder struct {
	reg          *prometheus.Registry
	compilations *prometheus.CounterVec
	errors       *prometheus.CounterVec
	fixedTerms   prometheus.Histogram
	randomTerms  prometheus.Histogram
}

// NewRecorder creates a recorder with its metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdrc_compilations_total",
			Help: "Formulas compiled, by result.",
		}, []string{"result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cdrc_compile_errors_total",
			Help: "Failed compilations, by error kind.",
		}, []string{"kind"}),
		fixedTerms: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cdrc_fixed_terms",
			Help:    "Fixed-effect terms per compiled formula.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		randomTerms: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cdrc_random_terms",
			Help:    "Random-effect terms per compiled formula, across all blocks.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
	r.reg.MustRegister(r.compilations, r.errors, r.fixedTerms, r.randomTerms)

	// Pre-create result series so both appear in exports from the start.
	r.compilations.WithLabelValues(ResultOK)
	r.compilations.WithLabelValues(ResultError)
	return r
}

// Observe records the outcome of one compilation.
func (r *Recorder) Observe(spec *ir.ModelSpec, err error) {
	if err != nil {
		r.compilations.WithLabelValues(ResultError).Inc()
		r.errors.WithLabelValues(compiler.KindName(err)).Inc()
		return
	}
	r.compilations.WithLabelValues(ResultOK).Inc()
	r.fixedTerms.Observe(float64(len(spec.Terms)))

	n := 0
	for _, b := range spec.Random {
		n += len(b.Terms)
	}
	r.randomTerms.Observe(float64(n))
}

// Gatherer exposes the recorder's registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
