package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func setupRateLimitRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.001, Burst: 2, IdleTTL: time.Minute})
	r := setupRateLimitRouter(rl)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on 429")
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d status = %d, want %d (all: %v)", i, codes[i], want[i], codes)
		}
	}
}

func TestRateLimit_SeparateBucketsPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RPS: 0.001, Burst: 1})
	r := setupRateLimitRouter(rl)

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("first request from %s status = %d, want 200", addr, w.Code)
		}
	}
	if got := rl.Clients(); got != 3 {
		t.Errorf("Clients() = %d, want 3", got)
	}
}

func TestRateLimit_CustomKey(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RPS:     0.001,
		Burst:   1,
		KeyFunc: func(c *gin.Context) string { return "shared" },
	})
	r := setupRateLimitRouter(rl)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/test", nil))
	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.9:80"
	r.ServeHTTP(second, req)

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("statuses = %d, %d; want 200, 429", first.Code, second.Code)
	}
}

func TestNewRateLimiter_InvalidConfigPanics(t *testing.T) {
	for _, cfg := range []RateLimitConfig{{RPS: 0, Burst: 1}, {RPS: 1, Burst: 0}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %+v", cfg)
				}
			}()
			NewRateLimiter(cfg)
		}()
	}
}
