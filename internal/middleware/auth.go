package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/pkg"
)

const principalContextKey = "principal"

// TokenVerifier validates a bearer token and returns its principal.
type TokenVerifier interface {
	Verify(token string) (*domain.Principal, error)
}

// RequireAuth returns a gin middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header with 401. On success the verified
// principal is stored on the context; see CurrentPrincipal.
func RequireAuth(verifier TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	if verifier == nil {
		panic("middleware.RequireAuth: verifier must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			logger.DebugContext(c.Request.Context(), "token rejected", slog.String("error", err.Error()))
			unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by RequireAuth.
func CurrentPrincipal(c *gin.Context) (*domain.Principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.Principal)
	return p, ok && p != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="memorial"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, pkg.Response{
		Code:    http.StatusUnauthorized,
		Message: msg,
		Data:    nil,
	})
}
