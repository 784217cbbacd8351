package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/simp-lee/memorial/internal/pkg"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// IdleTTL evicts limiters of clients that have been quiet this long.
	IdleTTL time.Duration
	// KeyFunc identifies the client; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
}

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	cfg      RateLimitConfig
	limiters *cache.Cache
}

// NewRateLimiter creates a RateLimiter. Non-positive RPS or Burst panic.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		panic("middleware.NewRateLimiter: rps and burst must be positive")
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{
		cfg:      cfg,
		limiters: cache.New(cfg.IdleTTL, cfg.IdleTTL),
	}
}

// Middleware answers 429 with a Retry-After header once a client's bucket
// is empty.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := rl.limiter(rl.cfg.KeyFunc(c))

		res := lim.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			retry := int(math.Ceil(delay.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, pkg.Response{
				Code:    http.StatusTooManyRequests,
				Message: "too many requests",
				Data:    nil,
			})
			return
		}
		c.Next()
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	return rl.limiters.ItemCount()
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		lim := v.(*rate.Limiter)
		// Slide the idle expiry forward.
		rl.limiters.Set(key, lim, cache.DefaultExpiration)
		return lim
	}

	lim := rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst)
	if err := rl.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Lost the race to another request from the same client.
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}
