package user

import (
	"context"
	"strconv"

	"github.com/simp-lee/memorial/internal/domain"
)

type service struct {
	repo domain.UserRepository
}

// NewService returns the domain.UserService backed by repo.
func NewService(repo domain.UserRepository) domain.UserService {
	return &service{repo: repo}
}

func (s *service) Profile(ctx context.Context, p *domain.Principal) (*domain.User, error) {
	if p == nil {
		return nil, domain.ErrUnauthorized
	}
	id, err := strconv.ParseUint(p.UserID, 10, 64)
	if err != nil || id == 0 {
		return nil, domain.ErrUnauthorized
	}

	u, err := s.repo.GetByID(ctx, uint(id))
	if domain.IsNotFound(err) {
		// A valid token for a deleted account.
		return nil, domain.ErrUnauthorized
	}
	return u, err
}
