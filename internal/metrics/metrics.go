// Package metrics provides Prometheus collectors for the streaming engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine collectors on a private registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  *prometheus.CounterVec
	sessionsStopped  *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
	completions      *prometheus.CounterVec
	fileErrors       *prometheus.CounterVec
	deviceErrors     *prometheus.CounterVec
	activeSessions   *prometheus.GaugeVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "sessions_started_total",
			Help:      "Sessions that submitted their first buffer.",
		}, []string{"direction"}),
		sessionsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "sessions_stopped_total",
			Help:      "Sessions torn down, by reason.",
		}, []string{"direction", "reason"}),
		bytesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "bytes_transferred_total",
			Help:      "PCM bytes read from or written to backing files.",
		}, []string{"direction"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "buffer_completions_total",
			Help:      "Buffer completion signals serviced by session workers.",
		}, []string{"direction"}),
		fileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "file_errors_total",
			Help:      "Backing file open, read or write failures.",
		}, []string{"direction", "operation"}),
		deviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicebox",
			Name:      "device_errors_total",
			Help:      "Device creation, state change or enqueue failures.",
		}, []string{"direction", "operation"}),
		activeSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voicebox",
			Name:      "active_sessions",
			Help:      "Sessions currently streaming.",
		}, []string{"direction"}),
	}

	registry.MustRegister(
		m.sessionsStarted,
		m.sessionsStopped,
		m.bytesTransferred,
		m.completions,
		m.fileErrors,
		m.deviceErrors,
		m.activeSessions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionStarted(direction string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(direction).Inc()
	m.activeSessions.WithLabelValues(direction).Inc()
}

func (m *Metrics) SessionStopped(direction, reason string) {
	if m == nil {
		return
	}
	m.sessionsStopped.WithLabelValues(direction, reason).Inc()
	m.activeSessions.WithLabelValues(direction).Dec()
}

func (m *Metrics) Transferred(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) Completion(direction string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(direction).Inc()
}

func (m *Metrics) FileError(direction, operation string) {
	if m == nil {
		return
	}
	m.fileErrors.WithLabelValues(direction, operation).Inc()
}

func (m *Metrics) DeviceError(direction, operation string) {
	if m == nil {
		return
	}
	m.deviceErrors.WithLabelValues(direction, operation).Inc()
}
