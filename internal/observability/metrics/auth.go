package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	obserrors "github.com/target/mmk-sessiongate/internal/observability/errors"
)

const namespace = "sessiongate"

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultNoop    = "noop"
)

// Auth holds the collectors for the session surface. A nil *Auth is valid and
// records nothing, so components can be built without metrics in tests.
type Auth struct {
	csrfRejections       *prometheus.CounterVec
	sessionsEstablished  prometheus.Counter
	establishRejections  prometheus.Counter
	logouts              *prometheus.CounterVec
	invalidationFailures *prometheus.CounterVec
	invalidationDuration prometheus.Histogram
	adminDenials         *prometheus.CounterVec
	rateLimited          *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	breakerState         *prometheus.GaugeVec
	eventsDropped        *prometheus.CounterVec
}

// NewAuth creates the auth collectors and registers them with reg.
// Passing nil registers against prometheus.DefaultRegisterer.
func NewAuth(reg prometheus.Registerer) *Auth {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Auth{
		csrfRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csrf_rejections_total",
			Help:      "State-changing requests rejected by the Origin check.",
		}, []string{"reason"}),
		sessionsEstablished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_established_total",
			Help:      "Sessions whose cookies were issued.",
		}),
		establishRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_establish_rejections_total",
			Help:      "Session establishment requests rejected for invalid tokens.",
		}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Completed logouts by remote invalidation result.",
		}, []string{"remote"}),
		invalidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_invalidation_failures_total",
			Help:      "Identity provider sign-out calls that failed, panicked or timed out.",
		}, []string{"error_class"}),
		invalidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_invalidation_duration_seconds",
			Help:      "Latency of identity provider sign-out calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		adminDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_access_denials_total",
			Help:      "Requests rejected by privilege checks.",
		}, []string{"required"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}, []string{"route"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Identity provider circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"name"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_dropped_total",
			Help:      "Security events not written to the audit log because its write budget was spent.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.csrfRejections,
		m.sessionsEstablished,
		m.establishRejections,
		m.logouts,
		m.invalidationFailures,
		m.invalidationDuration,
		m.adminDenials,
		m.rateLimited,
		m.httpRequests,
		m.httpRequestDuration,
		m.breakerState,
		m.eventsDropped,
	)
	return m
}

// CSRFRejected counts an Origin rejection; reason is the error code sent to the client.
func (m *Auth) CSRFRejected(reason string) {
	if m == nil {
		return
	}
	m.csrfRejections.WithLabelValues(reason).Inc()
}

func (m *Auth) SessionEstablished() {
	if m == nil {
		return
	}
	m.sessionsEstablished.Inc()
}

func (m *Auth) SessionEstablishRejected() {
	if m == nil {
		return
	}
	m.establishRejections.Inc()
}

// LogoutCompleted counts a logout. result is one of ResultSuccess, ResultError or ResultSkipped.
func (m *Auth) LogoutCompleted(result string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(result).Inc()
}

// UpstreamInvalidationFailed counts a failed sign-out, labelled by the innermost error type.
func (m *Auth) UpstreamInvalidationFailed(err error) {
	if m == nil {
		return
	}
	class := obserrors.Classify(err)
	if class == "" {
		class = "unknown"
	}
	m.invalidationFailures.WithLabelValues(class).Inc()
}

func (m *Auth) ObserveInvalidation(seconds float64) {
	if m == nil {
		return
	}
	m.invalidationDuration.Observe(seconds)
}

func (m *Auth) AdminDenied(required string) {
	if m == nil {
		return
	}
	m.adminDenials.WithLabelValues(required).Inc()
}

func (m *Auth) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}

// ObserveHTTP records one served request.
func (m *Auth) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// SetBreakerState publishes a circuit breaker transition. state follows the
// 0=closed, 1=half-open, 2=open encoding.
func (m *Auth) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(state)
}

// SecurityEventDropped counts an audit write skipped by the write budget.
func (m *Auth) SecurityEventDropped(kind string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(kind).Inc()
}
