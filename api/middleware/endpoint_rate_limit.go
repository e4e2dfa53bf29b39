package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter layers per-route limits on top of the global one, so
// expensive routes like telemetry ingest can carry their own budget.
type EndpointRateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{
		limiters: make(map[string]*RateLimiter),
	}
}

// AddEndpoint registers a limit for one route path. Paths without a
// registered limit pass through untouched.
func (e *EndpointRateLimiter) AddEndpoint(path string, limit int, window time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limiters[path] = NewRateLimiter(limit, window)
}

func (e *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		e.mu.RLock()
		limiter, ok := e.limiters[c.FullPath()]
		e.mu.RUnlock()

		if ok && !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for this endpoint",
				"retry_after": limiter.window.Seconds(),
			})
			return
		}

		c.Next()
	}
}
