package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Score            prometheus.Gauge
	ReportsGenerated prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Score: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "consentd_compliance_score",
			Help: "Score of the most recently generated compliance report",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentd_compliance_reports_total",
			Help: "Total number of compliance reports generated",
		}),
	}
}

func (m *Metrics) ObserveReport(score int) {
	m.Score.Set(float64(score))
	m.ReportsGenerated.Inc()
}
