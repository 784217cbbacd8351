package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/domain"
)

// Module serves the account endpoints under /api/users. Every route
// requires a signed-in caller.
type Module struct {
	svc         domain.UserService
	requireAuth gin.HandlerFunc
}

// NewModule panics if svc or requireAuth is nil.
func NewModule(svc domain.UserService, requireAuth gin.HandlerFunc) *Module {
	if svc == nil {
		panic("user.NewModule: service must not be nil")
	}
	if requireAuth == nil {
		panic("user.NewModule: requireAuth must not be nil")
	}
	return &Module{svc: svc, requireAuth: requireAuth}
}

// RegisterRoutes implements app.Module.
func (m *Module) RegisterRoutes(api *gin.RouterGroup) {
	api.Group("/users", m.requireAuth).GET("/me", m.me)
}
