package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/pkg"
)

// renderError aborts with the standard JSON envelope.
func renderError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, pkg.Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// noRouteHandler answers unknown paths with a JSON 404.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderError(c, http.StatusNotFound, "not found")
	}
}

// noMethodHandler answers known paths hit with an unsupported verb.
func noMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderError(c, http.StatusMethodNotAllowed, "method not allowed")
	}
}
