package widget

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	commits        *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	resets         *prometheus.CounterVec
	gateOutcomes   *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "commits_total",
			Help:      "Commit attempts by widget kind and result.",
		}, []string{"kind", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "notifications_total",
			Help:      "Delivered notifications by widget kind, primitive and state.",
		}, []string{"kind", "primitive", "status"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "commitment_resets_total",
			Help:      "Commitments dropped because a different search arrived.",
		}, []string{"kind"}),
		gateOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cards",
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmation gate outcomes.",
		}, []string{"outcome"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cards",
			Name:      "sessions_active",
			Help:      "Widget sessions currently held in memory.",
		}),
	}
	reg.MustRegister(m.commits, m.notifications, m.resets, m.gateOutcomes, m.sessionsActive)
	return m
}

func (m *Metrics) commit(kind Kind, result string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) notification(kind Kind, p Primitive, status NotificationStatus) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(kind), string(p), string(status)).Inc()
}

func (m *Metrics) reset(kind Kind) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) gate(outcome GateOutcome) {
	if m == nil {
		return
	}
	m.gateOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) sessions(delta float64) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(delta)
}
