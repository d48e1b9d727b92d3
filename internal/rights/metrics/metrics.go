package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds collectors for data-subject-rights requests.
type Metrics struct {
	Requests        *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentd_rights_requests_total",
			Help: "Total number of rights requests, labeled by type and outcome",
		}, []string{"type", "outcome"}),
		GatewayDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentd_data_gateway_duration_seconds",
			Help:    "Duration of data gateway calls made for rights requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveRequest(requestType, outcome string) {
	m.Requests.WithLabelValues(requestType, outcome).Inc()
}

func (m *Metrics) ObserveGateway(operation string, d time.Duration) {
	m.GatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}
