package metrics

import (
	"time"

	"paygate/internal/app/port"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports payment counters and stage latency.
type PrometheusRecorder struct {
	counters  *prometheus.CounterVec
	histogram *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors with reg. A nil reg means the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) port.MetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counters := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paygate",
			Name:      "events_total",
			Help:      "Payment events by action and outcome",
		},
		[]string{"type", "action", "outcome"},
	)

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paygate",
			Name:      "stage_latency_seconds",
			Help:      "Latency of payment stages",
			// подтверждение блока может занимать минуты
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"operation", "chain", "action"},
	)

	reg.MustRegister(counters, histogram)

	return &PrometheusRecorder{
		counters:  counters,
		histogram: histogram,
	}
}

func (p *PrometheusRecorder) IncCounter(name string, labels map[string]string) {
	p.counters.With(prometheus.Labels{
		"type":    name,
		"action":  labels["action"],
		"outcome": labels["outcome"],
	}).Inc()
}

func (p *PrometheusRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	p.histogram.With(prometheus.Labels{
		"operation": name,
		"chain":     labels["chain"],
		"action":    labels["action"],
	}).Observe(d.Seconds())
}

type noopRecorder struct{}

// NewNoopRecorder returns a recorder that drops everything.
func NewNoopRecorder() port.MetricsRecorder { return noopRecorder{} }

func (noopRecorder) IncCounter(string, map[string]string)                    {}
func (noopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
