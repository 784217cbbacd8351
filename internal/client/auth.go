package client

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token   string    `json:"token"`
	Email   string    `json:"email"`
	Expires time.Time `json:"expires"`
}

// Profile is the signed-in user's account as reported by the server.
type Profile struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"emailConfirmed"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Login exchanges email and password for a token. Bad credentials yield an
// error of KindUnauthorized.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &Error{Kind: KindDecode, Method: http.MethodPost, Path: "/api/auth/login", StatusCode: http.StatusOK, Message: "response carries no token"}
	}
	return &resp, nil
}

// Register creates an account. A taken email yields KindConflict.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	return c.do(ctx, http.MethodPost, "/api/auth/register", nil, nil, req, nil)
}

// Me returns the profile behind cred.
func (c *Client) Me(ctx context.Context, cred *Credential) (*Profile, error) {
	var env struct {
		Data Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, cred, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
