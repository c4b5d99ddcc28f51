package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"agentic-rag/internal/pkg/apperr"
	"agentic-rag/internal/transport/http/response"
)

var errTooManyRequests = apperr.RateLimited("too many requests, slow down")

// RateLimiter keeps one token bucket per client key. Buckets unused for ttl are dropped.
type RateLimiter struct {
	limiters *cache.Cache
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(perSecond float64, burst int, ttl time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateLimiter{
		limiters: cache.New(ttl, 2*ttl),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	return l.limiter(key).Allow()
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		// lost the race to another request for the same key
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// Middleware limits requests per client IP.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			response.Fail(c, errTooManyRequests)
			return
		}
		c.Next()
	}
}
