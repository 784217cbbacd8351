package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/pkg"
)

// Recovery turns a panic in a later handler into a logged 500 carrying the
// standard error envelope and the request ID. A response that has already
// started is left as is. http.ErrAbortHandler is re-raised so net/http can
// drop the connection without logging.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			logger.ErrorContext(c.Request.Context(), "panic recovered",
				slog.Any("panic", v),
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.Response{
				Code:      http.StatusInternalServerError,
				Message:   "internal server error",
				RequestID: GetRequestID(c),
			})
		}()
		c.Next()
	}
}
