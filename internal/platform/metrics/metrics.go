package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flow operations and outcomes used as label values.
const (
	OpAuthorize    = "authorize"
	OpAuthenticate = "authenticate"
	OpConsent      = "consent"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors of the authorization flow.
// All methods are safe on a nil receiver so tests can skip metrics.
type Metrics struct {
	FlowRequests          *prometheus.CounterVec
	TicketsIssued         prometheus.Counter
	TicketsConsumed       *prometheus.CounterVec
	ResolveClientDuration prometheus.Histogram
	RequestLatency        *prometheus.HistogramVec
	RateLimited           *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FlowRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_flow_requests_total",
			Help: "Authorization flow requests by operation and outcome (success, protocol error, internal failure)",
		}, []string{"operation", "outcome", "error"}),
		TicketsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "authgate_tickets_issued_total",
			Help: "Authentication tickets minted",
		}),
		TicketsConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_tickets_consumed_total",
			Help: "Tickets consumed by consent, by decision",
		}, []string{"decision"}),
		ResolveClientDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_resolve_client_duration_seconds",
			Help:    "Duration of client registry lookups",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by route",
		}, []string{"route"}),
	}
}

// IncrementRateLimited records a request rejected with 429.
func (m *Metrics) IncrementRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(route).Inc()
}

// ObserveFlow counts one flow request. errCode is empty on success.
func (m *Metrics) ObserveFlow(operation, outcome, errCode string) {
	if m == nil {
		return
	}
	m.FlowRequests.WithLabelValues(operation, outcome, errCode).Inc()
}

// IncrementTicketsIssued records a minted ticket.
func (m *Metrics) IncrementTicketsIssued() {
	if m == nil {
		return
	}
	m.TicketsIssued.Inc()
}

// IncrementTicketsConsumed records a ticket consumed with the given decision.
func (m *Metrics) IncrementTicketsConsumed(decision string) {
	if m == nil {
		return
	}
	m.TicketsConsumed.WithLabelValues(decision).Inc()
}

// ObserveResolveClient records the duration of a registry lookup.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveResolveClient(start time.Time) {
	if m == nil {
		return
	}
	m.ResolveClientDuration.Observe(time.Since(start).Seconds())
}

// ObserveRequest records HTTP latency for a route pattern.
func (m *Metrics) ObserveRequest(method, route string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
