package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the IPC core. Each instance
// carries its own registry so tests can construct metrics freely.
type Metrics struct {
	// Control socket metrics
	SessionsActive   prometheus.Gauge
	SessionsTotal    prometheus.Counter
	RequestsTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	PushesTotal      prometheus.Counter
	FramedBytes      prometheus.Counter

	// Facade metrics
	WindowsActive  prometheus.Gauge
	DownloadsTotal *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		startTime: time.Now(),
		registry:  registry,

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quahl_ipc_sessions_active",
			Help: "Number of currently open control socket sessions",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "quahl_ipc_sessions_total",
			Help: "Total number of accepted control socket sessions",
		}),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quahl_ipc_requests_total",
				Help: "Total number of dispatched requests",
			},
			[]string{"method", "status"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quahl_ipc_dispatch_duration_seconds",
				Help:    "Time spent inside method handlers",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		PushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "quahl_ipc_pushes_total",
			Help: "Total number of push messages broadcast",
		}),
		FramedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "quahl_ipc_framed_bytes_total",
			Help: "Total inbound bytes consumed by the message framer",
		}),

		WindowsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quahl_windows_active",
			Help: "Number of open browser windows",
		}),
		DownloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quahl_downloads_total",
				Help: "Downloads by terminal status",
			},
			[]string{"status"},
		),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quahl_uptime_seconds",
			Help: "Process uptime in seconds",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
	return m.registry
}
