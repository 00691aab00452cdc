package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/cache"
)

// TokenBucket checks a distributed token bucket.
type TokenBucket interface {
	CheckRateLimit(ctx context.Context, key string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for per-principal rate limiting.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Buckets TokenBucket
	Enabled bool
	// RequestsPerMinute of zero means unlimited.
	RequestsPerMinute int
	Burst             int
}

// RateLimitPrincipal returns middleware that rate limits requests per
// authenticated principal. Must be applied after Authenticate.
func RateLimitPrincipal(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			principalID := auth.AccountIDFromContext(r.Context())
			if principalID == "" {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.RequestsPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Buckets.CheckRateLimit(
				r.Context(),
				"principal:"+principalID,
				cfg.RequestsPerMinute,
				cfg.Burst,
			)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("principal_id", principalID),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				cfg.Logger.Warn("rate limit exceeded",
					slog.String("principal_id", principalID),
					slog.String("type", "principal"),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				writeRateLimitError(w, result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimiter enforces an in-process per-IP request budget.
// A nil *IPRateLimiter admits everything.
type IPRateLimiter struct {
	logger    *slog.Logger
	perMinute int
	limit     rate.Limit
	burst     int
	window    time.Duration
	// sweepEvery bounds how often idle clients are evicted.
	sweepEvery time.Duration
	mu         sync.Mutex
	clients    map[string]*clientLimiter
	lastSweep  time.Time
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates a limiter for the provided requests-per-minute
// budget. It returns nil when requestsPerMinute is not positive.
func NewIPRateLimiter(requestsPerMinute int, logger *slog.Logger) *IPRateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	burst := requestsPerMinute / 2
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		logger:     logger,
		perMinute:  requestsPerMinute,
		limit:      rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:      burst,
		window:     5 * time.Minute,
		sweepEvery: time.Minute,
		clients:    make(map[string]*clientLimiter),
		now:        time.Now,
	}
}

// RateLimitIP returns middleware that rate limits requests per client IP.
// Used on login and register to slow down credential stuffing.
func RateLimitIP(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limiter := l.get(ip)

			if !limiter.AllowN(l.now(), 1) {
				retryAfter := l.retryAfter()
				l.logger.Warn("rate limit exceeded",
					slog.String("type", "ip"),
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int64("retry_after_seconds", int64(retryAfter.Seconds())),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				writeRateLimitError(w, retryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *IPRateLimiter) get(key string) *rate.Limiter {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.cleanupLocked(now)
		l.lastSweep = now
	}
	return limiter
}

// retryAfter is the time until one token refills, rounded up to whole seconds.
func (l *IPRateLimiter) retryAfter() time.Duration {
	seconds := (60 + l.perMinute - 1) / l.perMinute
	return time.Duration(seconds) * time.Second
}

func (l *IPRateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", int(retryAfter.Seconds())))
}

// clientIP is the host part of RemoteAddr. Forwarding headers are ignored
// here: the router rewrites RemoteAddr with chi's RealIP only when
// TRUST_PROXY_HEADERS says a trusted proxy sets them.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
