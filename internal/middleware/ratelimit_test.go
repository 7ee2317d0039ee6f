package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "198.51.100.9:43210"
		return r
	}

	r := newReq()
	assert.Equal(t, "198.51.100.9", ClientIP(r))

	r = newReq()
	r.Header.Set("X-Real-IP", "203.0.113.5")
	assert.Equal(t, "203.0.113.5", ClientIP(r))

	// X-Forwarded-For wins and the first hop is the client.
	r = newReq()
	r.Header.Set("X-Real-IP", "203.0.113.5")
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("203.0.113.7"), "request %d", i)
	}
	assert.False(t, limiter.Allow("203.0.113.7"))

	// Other IPs keep their own budget.
	assert.True(t, limiter.Allow("203.0.113.8"))
}

func TestRateLimitAuthMiddleware(t *testing.T) {
	handler := RateLimitAuth()(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		r.RemoteAddr = "203.0.113.7:1000"
		handler(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "203.0.113.7:1000"
	handler(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
