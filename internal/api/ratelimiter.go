package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow() bool
}

// retryAdvisor is implemented by limiters that can tell how long a rejected
// client should wait.
type retryAdvisor interface {
	RetryAfter() time.Duration
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

// newTokenBucketLimiter returns nil, which disables limiting, when either the
// rate or the burst is not positive.
func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 || burst <= 0 {
		return nil
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

// RetryAfter estimates the wait until the next token becomes available.
func (l *limiterAdapter) RetryAfter() time.Duration {
	if l == nil || l.limiter == nil {
		return 0
	}
	limit := l.limiter.Limit()
	if limit <= 0 || limit == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		if advisor, ok := limiter.(retryAdvisor); ok {
			seconds := int(math.Ceil(advisor.RetryAfter().Seconds()))
			if seconds > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
			}
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "rate limit exceeded, please retry shortly")
	})
}
