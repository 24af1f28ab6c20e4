package signing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects signing engine metrics.
type Metrics struct {
	signaturesTotal *prometheus.CounterVec
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
}

// NewMetrics builds the metric set; a nil reg falls back to the global
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		signaturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signing_signatures_total",
			Help: "Number of per-transaction signing attempts by backend and outcome",
		}, []string{"backend", "outcome"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signing_sessions_total",
			Help: "Number of signing sessions by terminal outcome",
		}, []string{"outcome"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signing_session_duration_seconds",
			Help:    "Wall time of a signing session from start to terminal state",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
	}
	reg.MustRegister(
		m.signaturesTotal,
		m.sessionsTotal,
		m.sessionDuration,
	)
	return m
}

func (m *Metrics) observeSignature(backend string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.signaturesTotal.WithLabelValues(backend, outcome).Inc()
}

func (m *Metrics) observeSession(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	m.sessionDuration.Observe(time.Since(start).Seconds())
}
