package auth

import "github.com/gin-gonic/gin"

// Module serves the account endpoints under /api/auth.
type Module struct {
	svc   Service
	guard []gin.HandlerFunc
}

// NewModule wires the auth routes to svc. guard runs before every auth
// route; the server passes its login rate limiter here. Panics if svc is nil.
func NewModule(svc Service, guard ...gin.HandlerFunc) *Module {
	if svc == nil {
		panic("auth.NewModule: service must not be nil")
	}
	return &Module{svc: svc, guard: guard}
}

// RegisterRoutes implements app.Module.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	g := api.Group("/auth", m.guard...)
	g.POST("/login", m.login)
	g.POST("/register", m.register)
}
