package user

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/pkg"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns the GORM-backed domain.UserRepository. Users are
// always loaded with their roles.
func NewRepository(db *gorm.DB) domain.UserRepository {
	return &repository{db: db}
}

func (r *repository) withRoles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Roles")
}

// Create inserts u together with its role memberships.
func (r *repository) Create(ctx context.Context, u *domain.User) error {
	return pkg.StoreError(r.db.WithContext(ctx).Create(u).Error)
}

func (r *repository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var u domain.User
	if err := r.withRoles(ctx).First(&u, id).Error; err != nil {
		return nil, pkg.StoreError(err)
	}
	return &u, nil
}

// GetByEmail expects an already normalized address.
func (r *repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.withRoles(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, pkg.StoreError(err)
	}
	return &u, nil
}

// EnsureRole returns the named role, creating it on first use.
func (r *repository) EnsureRole(ctx context.Context, name string) (*domain.Role, error) {
	role := domain.Role{Name: name}
	if err := r.db.WithContext(ctx).Where(domain.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, pkg.StoreError(err)
	}
	return &role, nil
}

func (r *repository) Transaction(ctx context.Context, fn func(repo domain.UserRepository) error) error {
	return pkg.RepoTx(ctx, r.db, func(tx *gorm.DB) domain.UserRepository {
		return &repository{db: tx}
	}, fn)
}
