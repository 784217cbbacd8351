package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/simp-lee/memorial/internal/domain"
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// Claims is the JWT payload issued on login.
type Claims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(secret, issuer, audience string, expiry time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", MinSecretLength)
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("jwt issuer and audience are required")
	}
	if expiry <= 0 {
		return nil, errors.New("token expiry must be positive")
	}

	t := &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		expiry:   expiry,
		now:      time.Now,
	}
	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	return t, nil
}

// Issue signs a token for user and returns it with its expiry.
func (t *TokenIssuer) Issue(user *domain.User) (string, time.Time, error) {
	now := t.now().UTC()
	expires := now.Add(t.expiry)

	claims := Claims{
		Name:  user.Email,
		Email: user.Email,
		Roles: user.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	// The exp claim has second precision.
	return signed, expires.Truncate(time.Second), nil
}

// Parse validates signature, algorithm, issuer, audience and expiry with no
// clock skew allowance.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	if _, err := t.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Verify implements middleware.TokenVerifier.
func (t *TokenIssuer) Verify(token string) (*domain.Principal, error) {
	claims, err := t.Parse(token)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}, nil
}
