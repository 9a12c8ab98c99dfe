package service

import (
	"github.com/edupay/upiverify/common"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions       *prometheus.CounterVec
	pollOutcomes      *prometheus.CounterVec
	statusCheckErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upiverify",
			Name:      "transitions_total",
			Help:      "Payment request status transitions.",
		}, []string{"from", "to"}),
		pollOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "upiverify",
			Name:      "poll_outcomes_total",
			Help:      "Verification poll results by outcome.",
		}, []string{"outcome"}),
		statusCheckErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "upiverify",
			Name:      "status_check_errors_total",
			Help:      "Failed authoritative status checks against the payment rail.",
		}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.pollOutcomes, m.statusCheckErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveTransition(from, to common.PaymentStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ObservePollOutcome(outcome string) {
	if m == nil {
		return
	}
	m.pollOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStatusCheckError() {
	if m == nil {
		return
	}
	m.statusCheckErrors.Inc()
}
