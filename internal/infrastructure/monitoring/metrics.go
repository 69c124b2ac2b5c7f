package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the daemon. Each instance
// carries its own registry so tests can build them freely.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Panel metrics
	PanelVisible prometheus.Gauge
	RendersTotal prometheus.Counter
	ShowsTotal   *prometheus.CounterVec

	// Channel metrics
	ChannelConnections prometheus.Gauge
	ChannelMessages    *prometheus.CounterVec

	// Vault metrics
	TokenPersists *prometheus.CounterVec

	// Notification metrics
	Notifications *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	m := &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panelhost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		PanelVisible: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhost_panel_visible",
				Help: "Whether a panel is currently visible (0 or 1)",
			},
		),
		RendersTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "panelhost_renders_total",
				Help: "Total number of panel renders",
			},
		),
		ShowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhost_shows_total",
				Help: "Total number of show requests by outcome",
			},
			[]string{"mode", "status"},
		),

		ChannelConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhost_channel_connections",
				Help: "Number of live surface channel connections",
			},
		),
		ChannelMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhost_channel_messages_total",
				Help: "Total number of channel messages by direction and kind",
			},
			[]string{"direction", "kind"},
		),

		TokenPersists: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhost_token_persists_total",
				Help: "Total number of token persist operations by outcome",
			},
			[]string{"key", "status"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panelhost_notifications_total",
				Help: "Total number of editor notifications by level",
			},
			[]string{"level"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "panelhost_uptime_seconds",
				Help: "Daemon uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordShow records a show or revive request outcome.
func (m *Metrics) RecordShow(mode, status string) {
	m.ShowsTotal.WithLabelValues(mode, status).Inc()
}

// RecordRender records one completed render.
func (m *Metrics) RecordRender() {
	m.RendersTotal.Inc()
}

// SetPanelVisible flips the visibility gauge.
func (m *Metrics) SetPanelVisible(visible bool) {
	if visible {
		m.PanelVisible.Set(1)
		return
	}
	m.PanelVisible.Set(0)
}

// RecordChannelMessage records one channel frame.
func (m *Metrics) RecordChannelMessage(direction, kind string) {
	m.ChannelMessages.WithLabelValues(direction, kind).Inc()
}

// RecordTokenPersist records a vault write outcome.
func (m *Metrics) RecordTokenPersist(key, status string) {
	m.TokenPersists.WithLabelValues(key, status).Inc()
}

// RecordNotification records an editor notification.
func (m *Metrics) RecordNotification(level string) {
	m.Notifications.WithLabelValues(level).Inc()
}

// IncChannelConnections increments the live connection gauge.
func (m *Metrics) IncChannelConnections() { m.ChannelConnections.Inc() }

// DecChannelConnections decrements the live connection gauge.
func (m *Metrics) DecChannelConnections() { m.ChannelConnections.Dec() }
