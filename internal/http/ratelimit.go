package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/target/mmk-sessiongate/internal/observability/metrics"
)

const defaultVisitorTTL = 3 * time.Minute

// visitor tracks a rate limiter per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	RPS               float64 // Zero disables limiting
	Burst             int
	TrustProxyHeaders bool
	VisitorTTL        time.Duration    // Optional: idle visitors are evicted after this long
	Metrics           *metrics.Auth    // Optional
	Logger            *slog.Logger     // Optional
	Now               func() time.Time // Optional: injectable clock for tests
}

// RateLimiter enforces a per-client token bucket on the mutating auth endpoints.
// Its visitor map holds only client addresses, never session data.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	trust    bool
	metrics  *metrics.Auth
	logger   *slog.Logger
	now      func() time.Time
}

// NewRateLimiter builds a RateLimiter, or returns nil when opts.RPS is not
// positive. A nil RateLimiter lets every request through.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	if opts.RPS <= 0 {
		return nil
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	ttl := opts.VisitorTTL
	if ttl <= 0 {
		ttl = defaultVisitorTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(opts.RPS),
		burst:    burst,
		ttl:      ttl,
		trust:    opts.TrustProxyHeaders,
		metrics:  opts.Metrics,
		logger:   logger.With("component", "rate_limiter"),
		now:      now,
	}
}

// Limit returns middleware that answers 429 once the client exceeds its bucket.
// route labels the rejection metric.
func (l *RateLimiter) Limit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, l.trust)
			if !l.allow(ip) {
				l.logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				l.metrics.RateLimited(route)
				w.Header().Set("Retry-After", "1")
				WriteError(w, ErrorParams{
					Code:    http.StatusTooManyRequests,
					ErrCode: "rate_limited",
					Err:     errors.New("too many requests"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Run evicts idle visitors every TTL until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// cleanup evicts all visitors whose lastSeen is older than the TTL.
func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

func (l *RateLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
