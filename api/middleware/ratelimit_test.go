package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d should pass", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other keys are tracked independently.
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	limiter := NewRateLimiter(2, 20*time.Millisecond)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func newLimitedRouter(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(NewRateLimiter(limit, time.Minute)))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	router := newLimitedRouter(2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestEndpointRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	erl := NewEndpointRateLimiter()
	erl.AddEndpoint("/expensive", 1, time.Minute)

	router := gin.New()
	router.Use(erl.Middleware())
	router.GET("/expensive", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/cheap", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("/expensive"))
	assert.Equal(t, http.StatusTooManyRequests, do("/expensive"))

	// Unconfigured endpoints are never limited.
	assert.Equal(t, http.StatusOK, do("/cheap"))
	assert.Equal(t, http.StatusOK, do("/cheap"))
}
