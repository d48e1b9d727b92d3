package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent registry operations.
type Metrics struct {
	ConsentsRegistered  prometheus.Counter
	ConsentsUpdated     prometheus.Counter
	GrantsWithdrawn     *prometheus.CounterVec
	ConsentsErased      prometheus.Counter
	ActiveConsentsTotal prometheus.Gauge
	GrantChecks         *prometheus.CounterVec
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		ConsentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consents_registered_total",
			Help: "Total number of first-time consent registrations",
		}),
		ConsentsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consents_updated_total",
			Help: "Total number of consent registrations merged into an existing record",
		}),
		GrantsWithdrawn: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_grants_withdrawn_total",
			Help: "Total number of grants withdrawn, labeled by grant",
		}, []string{"grant"}),
		ConsentsErased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_consents_erased_total",
			Help: "Total number of consent records removed by erasure requests",
		}),
		ActiveConsentsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "consentd_active_consents",
			Help: "Current number of consent records held by this process",
		}),
		GrantChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_grant_checks_total",
			Help: "Total number of grant checks, labeled by grant and outcome",
		}, []string{"grant", "outcome"}),
	}
}

func (m *Metrics) IncrementRegistered() {
	m.ConsentsRegistered.Inc()
	m.ActiveConsentsTotal.Inc()
}

func (m *Metrics) IncrementUpdated() {
	m.ConsentsUpdated.Inc()
}

func (m *Metrics) IncrementWithdrawn(grant string) {
	m.GrantsWithdrawn.WithLabelValues(grant).Inc()
}

func (m *Metrics) IncrementErased() {
	m.ConsentsErased.Inc()
	m.ActiveConsentsTotal.Dec()
}

func (m *Metrics) ObserveGrantCheck(grant string, granted bool) {
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	m.GrantChecks.WithLabelValues(grant, outcome).Inc()
}
