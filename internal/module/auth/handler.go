package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/memorial/internal/pkg"
)

const registeredMessage = "User registered successfully"

// login exchanges credentials for a bearer token. Token responses are
// never cached by intermediaries.
func (m *Module) login(c *gin.Context) {
	var req LoginRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	resp, err := m.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		pkg.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, resp)
}

// register creates an account. It does not sign the caller in.
func (m *Module) register(c *gin.Context) {
	var req RegisterRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	if _, err := m.svc.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		pkg.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: registeredMessage})
}
