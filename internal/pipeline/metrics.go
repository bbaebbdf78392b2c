package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the derivation pipeline. Construct with an
// explicit registerer so independent derivers (and tests) never fight
// over metric registration.
type Metrics struct {
	derivations   *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	iterations    prometheus.Histogram
	appends       prometheus.Counter
	appendErrors  prometheus.Counter
}

// NewMetrics registers the pipeline metrics with reg. A nil registerer
// uses the default.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		derivations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coagula_derivations_total",
			Help: "Derivations by outcome",
		}, []string{"outcome"}),

		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coagula_gate_decisions_total",
			Help: "Gate decisions by verdict",
		}, []string{"verdict"}),

		iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coagula_convergence_iterations",
			Help:    "Iterations per convergence run",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		}),

		appends: factory.NewCounter(prometheus.CounterOpts{
			Name: "coagula_ledger_appends_total",
			Help: "Blocks appended to the ledger",
		}),

		appendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "coagula_ledger_append_errors_total",
			Help: "Failed ledger appends",
		}),
	}
}

func (m *Metrics) observeDerivation(outcome string) {
	if m == nil {
		return
	}
	m.derivations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeGate(commit bool) {
	if m == nil {
		return
	}
	verdict := "hold"
	if commit {
		verdict = "fire"
	}
	m.gateDecisions.WithLabelValues(verdict).Inc()
}

func (m *Metrics) observeIterations(n int) {
	if m == nil {
		return
	}
	m.iterations.Observe(float64(n))
}

func (m *Metrics) observeAppend(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.appendErrors.Inc()
		return
	}
	m.appends.Inc()
}
