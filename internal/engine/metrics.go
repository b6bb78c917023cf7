package engine

import "github.com/prometheus/client_golang/prometheus"

// runMetrics exposes run progress and proposal health. Collectors register on
// the configured Registerer when one is supplied and stay local otherwise.
type runMetrics struct {
	sweeps     prometheus.Counter
	snapshots  prometheus.Counter
	acceptance *prometheus.GaugeVec
}

func newRunMetrics(reg prometheus.Registerer) *runMetrics {
	m := &runMetrics{
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anacoda",
			Name:      "sweeps_total",
			Help:      "Completed Gibbs sweeps.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anacoda",
			Name:      "trace_snapshots_total",
			Help:      "Snapshots recorded into the trace.",
		}),
		acceptance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "anacoda",
			Name:      "acceptance_rate",
			Help:      "Observed acceptance rate per parameter block since the last adaptation.",
		}, []string{"block"}),
	}
	if reg != nil {
		reg.MustRegister(m.sweeps, m.snapshots, m.acceptance)
	}
	return m
}

func (m *runMetrics) observeRates(rates map[BlockKind]float64) {
	for kind, rate := range rates {
		m.acceptance.WithLabelValues(kind.String()).Set(rate)
	}
}
