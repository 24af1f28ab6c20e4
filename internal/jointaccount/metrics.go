package jointaccount

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects sign-request client metrics.
type Metrics struct {
	roundTripsTotal *prometheus.CounterVec
}

// NewMetrics builds the metric set; a nil reg falls back to the global
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		roundTripsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "joint_account_round_trips_total",
			Help: "Number of sign-request API round trips by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.roundTripsTotal)
	return m
}

func (m *Metrics) observeRoundTrip(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.roundTripsTotal.WithLabelValues(operation, outcome).Inc()
}
