// Package metrics provides Prometheus metrics for the ping probe.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/collectors/version"
)

const (
	namespace = "ping_probe"
)

// Metrics contains all Prometheus metrics for the probe.
type Metrics struct {
	// Check metrics
	ChecksTotal   *prometheus.CounterVec
	CheckFailures *prometheus.CounterVec
	CheckDuration prometheus.Histogram
	LastCheck     *prometheus.GaugeVec

	// Packet metrics
	PacketsSent     *prometheus.CounterVec
	PacketsReceived *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec
	RTTSeconds      *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge

	// Hub forwarder metrics
	HubConnected     prometheus.Gauge
	HubReportsSent   prometheus.Counter
	HubReportsFailed prometheus.Counter
	HubQueueDropped  prometheus.Counter
}

// Failure reasons recorded on CheckFailures.
const (
	ReasonConfig    = "config"
	ReasonResolve   = "resolve"
	ReasonTransport = "transport"
	ReasonTotalLoss = "total_loss"
	ReasonCancelled = "cancelled"
)

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	// Build info for the running probe binary.
	reg.MustRegister(version.NewCollector(namespace))

	m := &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Total ping checks run per asset",
		}, []string{"asset"}),
		CheckFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_failures_total",
			Help:      "Total failed ping checks by asset and reason",
		}, []string{"asset", "reason"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Wall clock duration of complete ping checks",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		LastCheck: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_check_timestamp_seconds",
			Help:      "Unix timestamp of the last completed check per asset",
		}, []string{"asset"}),

		PacketsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Echo requests sent per asset",
		}, []string{"asset"}),
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Echo replies counted as alive per asset",
		}, []string{"asset"}),
		PacketsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Sent packets without an alive reply per asset",
		}, []string{"asset"}),
		RTTSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rtt_seconds",
			Help:      "Round-trip time of alive replies",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"asset"}),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Echo sessions currently in flight",
		}),

		HubConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_connected",
			Help:      "Whether the hub forwarder currently has a connection (0 or 1)",
		}),
		HubReportsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_reports_sent_total",
			Help:      "Report envelopes delivered to the hub",
		}),
		HubReportsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_reports_failed_total",
			Help:      "Report envelopes that failed to send",
		}),
		HubQueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_queue_dropped_total",
			Help:      "Report envelopes dropped because the send queue was full",
		}),
	}

	return m
}
