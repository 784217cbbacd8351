package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds the configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests.
	// ["*"] allows any origin and "https://*.example.org" allows every
	// subdomain of example.org over https. Matching ignores case.
	AllowOrigins []string

	AllowMethods []string
	AllowHeaders []string

	// ExposeHeaders are readable by browser scripts on the response.
	ExposeHeaders []string

	AllowCredentials bool

	// MaxAge is how long a preflight result may be cached. Zero omits the header.
	MaxAge time.Duration
}

// DefaultCORSConfig allows any origin to call the obituary API with bearer
// tokens. It suits local development only.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
}

// CORS is CORSWithConfig(DefaultCORSConfig()).
func CORS() gin.HandlerFunc {
	return CORSWithConfig(DefaultCORSConfig())
}

// originMatcher holds AllowOrigins split into exact origins and
// "scheme://*." suffix patterns, all lowercased.
type originMatcher struct {
	any      bool
	exact    map[string]bool
	suffixes []string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]bool, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			// "https://*.example.org" matches "https://" + anything + ".example.org".
			scheme, host, _ := strings.Cut(o, "://*")
			m.suffixes = append(m.suffixes, scheme+"://\x00"+host)
		default:
			m.exact[o] = true
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	origin = strings.ToLower(origin)
	if m.any || m.exact[origin] {
		return true
	}
	for _, p := range m.suffixes {
		prefix, suffix, _ := strings.Cut(p, "\x00")
		sub, ok := strings.CutPrefix(origin, prefix)
		if ok && len(sub) > len(suffix) && strings.HasSuffix(sub, suffix) {
			return true
		}
	}
	return false
}

// CORSWithConfig answers preflight requests with 204 and decorates actual
// requests from allowed origins. Requests from other origins pass through
// without CORS headers, so browsers block them.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	origins := newOriginMatcher(cfg.AllowOrigins)
	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Add("Vary", "Origin")
		if !origins.allows(origin) {
			c.Next()
			return
		}

		if origins.any && !cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			// Credentialed responses must name the origin.
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)
		if maxAge != "" {
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
