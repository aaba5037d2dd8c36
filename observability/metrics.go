package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for contract submission and
// webhook relay. A nil *Metrics records nothing.
type Metrics struct {
	WebhooksReceivedTotal *prometheus.CounterVec
	RelayedTotal          *prometheus.CounterVec
	PoisonedTotal         *prometheus.CounterVec
	SubmissionsTotal      *prometheus.CounterVec
	SubmitLatency         prometheus.Histogram
	RelayLatency          prometheus.Histogram
	PoisonSize            prometheus.Gauge
	PendingMessages       prometheus.Gauge
}

// NewMetrics creates the instruments and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhooksReceivedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esignatures_webhooks_received_total",
			Help: "Inbound webhook calls by result.",
		}, []string{"result"}),
		RelayedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esignatures_relayed_total",
			Help: "Webhook events published to the bus by kind.",
		}, []string{"kind"}),
		PoisonedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esignatures_poisoned_total",
			Help: "Queue messages moved to the poison queue by reason.",
		}, []string{"reason"}),
		SubmissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "esignatures_submissions_total",
			Help: "Contract submissions by outcome.",
		}, []string{"outcome"}),
		SubmitLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "esignatures_submit_latency_seconds",
			Help:    "Latency of contract submissions.",
			Buckets: prometheus.DefBuckets,
		}),
		RelayLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "esignatures_relay_latency_seconds",
			Help:    "Time to parse, store and publish one queued webhook.",
			Buckets: prometheus.DefBuckets,
		}),
		PoisonSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "esignatures_poison_size",
			Help: "Entries in the poison queue.",
		}),
		PendingMessages: f.NewGauge(prometheus.GaugeOpts{
			Name: "esignatures_pending_messages",
			Help: "Webhook messages waiting to be relayed.",
		}),
	}
}

// RecordReceive counts an inbound webhook call.
func (m *Metrics) RecordReceive(result string) {
	if m == nil {
		return
	}
	m.WebhooksReceivedTotal.WithLabelValues(result).Inc()
}

// RecordRelay counts a published event and its processing latency.
func (m *Metrics) RecordRelay(kind string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.RelayedTotal.WithLabelValues(kind).Inc()
	m.RelayLatency.Observe(latencySeconds)
}

// RecordPoison counts a message moved to the poison queue.
func (m *Metrics) RecordPoison(reason string) {
	if m == nil {
		return
	}
	m.PoisonedTotal.WithLabelValues(reason).Inc()
}

// RecordSubmission counts a contract submission and its latency.
func (m *Metrics) RecordSubmission(outcome string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmitLatency.Observe(latencySeconds)
}

// SetQueueSizes updates the pending and poison gauges.
func (m *Metrics) SetQueueSizes(pending, poison int64) {
	if m == nil {
		return
	}
	m.PendingMessages.Set(float64(pending))
	m.PoisonSize.Set(float64(poison))
}
