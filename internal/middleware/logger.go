package middleware

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerConfig controls request logging.
type LoggerConfig struct {
	// SkipPaths are logged at debug level only (health probes, scrapes).
	SkipPaths []string
	// SlowThreshold raises successful requests slower than this to Warn.
	// Zero disables the check.
	SlowThreshold time.Duration
}

// Logger writes one access log record per request.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(logger, LoggerConfig{})
}

// LoggerWithConfig writes one record per request once the handlers are
// done: Error for 5xx, Warn for 4xx and slow requests, Info otherwise, and
// Debug for SkipPaths. The record carries the caller's user_id when the
// request was authenticated, and the request context so the request_id
// attribute is attached by the logger.
func LoggerWithConfig(logger *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		attrs := make([]slog.Attr, 0, 9)
		attrs = append(attrs,
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("client_ip", c.ClientIP()),
		)
		if p, ok := CurrentPrincipal(c); ok {
			attrs = append(attrs, slog.String("user_id", p.UserID))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		var level slog.Level
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case cfg.SlowThreshold > 0 && latency > cfg.SlowThreshold:
			level = slog.LevelWarn
			attrs = append(attrs, slog.Bool("slow", true))
		case slices.Contains(cfg.SkipPaths, c.Request.URL.Path):
			level = slog.LevelDebug
		default:
			level = slog.LevelInfo
		}
		logger.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}
