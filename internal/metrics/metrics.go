// Package metrics defines the Prometheus counters for imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds import counters registered on one registry.
type Metrics struct {
	Imports *prometheus.CounterVec
	Rows    *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_imports_total",
				Help: "Number of CSV imports by outcome",
			},
			[]string{"outcome"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_rows_total",
				Help: "Number of CSV data rows by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.Imports, m.Rows)
	return m
}

// ObserveImport counts one import and its rows. A nil receiver is a no-op.
func (m *Metrics) ObserveImport(outcome string, accepted, skipped int) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(outcome).Inc()
	m.Rows.WithLabelValues("accepted").Add(float64(accepted))
	m.Rows.WithLabelValues("skipped").Add(float64(skipped))
}
