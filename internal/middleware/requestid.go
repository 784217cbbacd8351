package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/memorial/internal/pkg"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLength = 64

// RequestIDConfig controls where request IDs come from.
type RequestIDConfig struct {
	// TrustUpstream reuses a well-formed incoming X-Request-ID, such as the
	// one memorialctl sends, so client and server logs share one ID.
	TrustUpstream bool
	// NewID mints IDs. Defaults to uuid.NewString.
	NewID func() string
}

// RequestID assigns a fresh ID to every request and ignores upstream values.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig tags each request with an ID. The ID is echoed in the
// X-Request-ID response header, stored on the gin context for error bodies
// and attached to every log record written with the request context.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !cfg.TrustUpstream || !validRequestID(id) {
			id = newID()
		}

		c.Set(pkg.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(
			logger.WithContextAttrs(c.Request.Context(), slog.String("request_id", id)),
		)

		c.Next()
	}
}

// GetRequestID returns the ID assigned to the request, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(pkg.RequestIDKey)
}

// validRequestID accepts up to 64 ASCII letters, digits and hyphens.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch b := id[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '-':
		default:
			return false
		}
	}
	return true
}
