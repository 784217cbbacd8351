package user

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/middleware"
	"github.com/simp-lee/memorial/internal/pkg"
)

// ProfileResponse is the public view of the authenticated account.
type ProfileResponse struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newProfile(u *domain.User) ProfileResponse {
	return ProfileResponse{
		ID:             u.ID,
		Email:          u.Email,
		EmailConfirmed: u.EmailConfirmed,
		Roles:          u.RoleNames(),
		CreatedAt:      u.CreatedAt,
	}
}

// me serves GET /api/users/me.
func (m *Module) me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	u, err := m.svc.Profile(c.Request.Context(), p)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, newProfile(u))
}
