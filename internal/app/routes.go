package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/config"
	"github.com/simp-lee/memorial/internal/middleware"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	// Health lists extra components reported by /health with a fixed state.
	Health map[string]string
	// Metrics is optional; when set its exposition is served on MetricsPath.
	Metrics     *middleware.Metrics
	MetricsPath string
}

// RegisterRoutes registers all application routes on the given gin.Engine.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}

	r.GET("/health", healthHandler(deps.DB, deps.Health))

	if deps.Metrics != nil {
		path := strings.TrimSpace(deps.MetricsPath)
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api)
	}

	r.HandleMethodNotAllowed = true
	r.NoRoute(noRouteHandler())
	r.NoMethod(noMethodHandler())

	return nil
}

// healthHandler pings the store on every call. info adds fixed component
// states, such as the configured biography provider.
func healthHandler(db *gorm.DB, info map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		components := make(gin.H, len(info)+1)
		for name, state := range info {
			components[name] = state
		}

		status, code := "ok", http.StatusOK
		components["database"] = "ok"
		if err := pingDB(c.Request.Context(), db); err != nil {
			components["database"] = "error"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(code, gin.H{"status": status, "components": components})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
