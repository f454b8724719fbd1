package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records latency and outcome for order gateway calls.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of order gateway requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Order gateway requests by operation and response status.",
	}, []string{"operation", "status"})
	reg.MustRegister(duration, requests)
	return &GatewayMetrics{
		duration: duration,
		requests: requests,
	}
}

// Observe records one completed request. A zero status means the request
// never produced a response.
func (g *GatewayMetrics) Observe(operation string, status int, elapsed time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	g.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	g.requests.WithLabelValues(op, statusLabel(status)).Inc()
}

// CallbackMetrics counts payment redirects received by the callback server.
type CallbackMetrics struct {
	received   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
}

// NewCallbackMetrics registers the callback metrics on the provided registerer.
func NewCallbackMetrics(reg prometheus.Registerer) *CallbackMetrics {
	if reg == nil {
		return &CallbackMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment redirects received by kind and provider.",
	}, []string{"kind", "provider"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callback_duplicates_total",
		Help: "Payment redirects skipped because the reference was already handled.",
	}, []string{"provider"})
	reg.MustRegister(received, duplicates)
	return &CallbackMetrics{received: received, duplicates: duplicates}
}

// IncReceived increments the received counter.
func (c *CallbackMetrics) IncReceived(kind, provider string) {
	if c == nil || c.received == nil {
		return
	}
	c.received.WithLabelValues(normalizeLabel(kind), normalizeLabel(provider)).Inc()
}

// IncDuplicate increments the duplicate counter.
func (c *CallbackMetrics) IncDuplicate(provider string) {
	if c == nil || c.duplicates == nil {
		return
	}
	c.duplicates.WithLabelValues(normalizeLabel(provider)).Inc()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
