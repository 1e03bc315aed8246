package infrastructure

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider request outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds the bot's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesTotal    *prometheus.CounterVec
	ProviderRequests *prometheus.CounterVec
	ProviderDuration prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// NewMetrics registers all collectors on reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsbot_messages_total",
			Help: "Inbound messages by channel and classified intent.",
		}, []string{"channel", "intent"}),
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsbot_provider_requests_total",
			Help: "News provider requests by outcome.",
		}, []string{"outcome"}),
		ProviderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsbot_provider_request_duration_seconds",
			Help:    "News provider request latency.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsbot_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) ObserveMessage(channel, intent string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(channel, intent).Inc()
}

func (m *Metrics) ObserveProvider(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(outcome).Inc()
	m.ProviderDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

// Handler exposes the registry for scraping. A nil *Metrics serves 404.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
