package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountryResolvesFromEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"status":"success","countryCode":"de"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)
	assert.Equal(t, "DE", r.Country(context.Background(), "203.0.113.7"))
}

func TestCountryEmptyOnFailure(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		r := NewHTTPResolver(srv.URL, time.Second)
		assert.Empty(t, r.Country(context.Background(), "203.0.113.7"))
	})

	t.Run("lookup failure status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail"}`))
		}))
		defer srv.Close()
		r := NewHTTPResolver(srv.URL, time.Second)
		assert.Empty(t, r.Country(context.Background(), "203.0.113.7"))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()
		r := NewHTTPResolver(srv.URL, 20*time.Millisecond)
		assert.Empty(t, r.Country(context.Background(), "203.0.113.7"))
	})

	t.Run("unreachable", func(t *testing.T) {
		r := NewHTTPResolver("http://127.0.0.1:1", 100*time.Millisecond)
		assert.Empty(t, r.Country(context.Background(), "203.0.113.7"))
	})
}

func TestCountrySkipsPrivateAndInvalidIPs(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)
	for _, ip := range []string{"", "127.0.0.1", "10.0.0.5", "192.168.1.2", "not-an-ip", "0.0.0.0"} {
		assert.Empty(t, r.Country(context.Background(), ip), "ip %q", ip)
	}
	assert.False(t, called)
}
