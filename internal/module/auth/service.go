package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/memorial/internal/domain"
)

// Service defines the authentication operations.
type Service interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, email, password string) (*domain.User, error)
}

var (
	errInvalidCredentials = domain.NewAppError(domain.CodeUnauthorized, "invalid email or password", nil)
	errEmailTaken         = domain.NewAppError(domain.CodeAlreadyExists, "email is already registered", nil)
)

// authService implements Service.
type authService struct {
	issuer   *TokenIssuer
	userRepo domain.UserRepository
	logger   *slog.Logger
}

// NewService creates a new auth Service.
func NewService(issuer *TokenIssuer, userRepo domain.UserRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		issuer:   issuer,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Login authenticates a user by email and password and returns a JWT token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.InfoContext(ctx, "login failed", slog.Uint64("user_id", uint64(user.ID)))
		return nil, errInvalidCredentials
	}

	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to generate token", err)
	}

	return &AuthResponse{
		Token:   token,
		Email:   user.Email,
		Expires: expires,
	}, nil
}

// Register creates a confirmed account in the User role. The lookup, role
// creation and insert share one transaction.
func (s *authService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if err := validateRegisterInput(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to hash password", err)
	}

	var user *domain.User
	err = s.userRepo.Transaction(ctx, func(repo domain.UserRepository) error {
		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return errEmailTaken
		} else if !domain.IsNotFound(err) {
			return err
		}

		role, err := repo.EnsureRole(ctx, domain.RoleUser)
		if err != nil {
			return err
		}

		user = &domain.User{
			Email:          email,
			PasswordHash:   string(hash),
			EmailConfirmed: true,
			Roles:          []domain.Role{*role},
		}
		return repo.Create(ctx, user)
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if domain.IsAlreadyExists(err) {
			return nil, errEmailTaken
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterInput(email, password string) error {
	if email == "" {
		return domain.NewAppError(domain.CodeValidation, "email is required", nil)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return domain.NewAppError(domain.CodeValidation, "email must be a valid email address", nil)
	}
	if len(password) < 6 {
		return domain.NewAppError(domain.CodeValidation, "password must be at least 6 characters", nil)
	}
	if len(password) > 72 {
		return domain.NewAppError(domain.CodeValidation, "password must not exceed 72 characters", nil)
	}
	return nil
}
