package obituary

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/pkg"
)

var (
	sortFields = pkg.Fields{
		"id":           "id",
		"fullName":     "full_name",
		"dateOfBirth":  "date_of_birth",
		"dateOfDeath":  "date_of_death",
		"createdAtUtc": "created_at_utc",
	}
	filterFields = pkg.Fields{
		"fullName":        "full_name",
		"createdByUserId": "created_by_user_id",
	}
)

// writableColumns are replaced on update; creator and creation time are not.
var writableColumns = []string{"full_name", "date_of_birth", "date_of_death", "biography", "primary_photo_base64"}

type obituaryRepository struct {
	db *gorm.DB
}

// NewRepository creates a domain.ObituaryRepository backed by GORM.
func NewRepository(db *gorm.DB) domain.ObituaryRepository {
	return &obituaryRepository{db: db}
}

func (r *obituaryRepository) Create(ctx context.Context, o *domain.Obituary) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return pkg.StoreError(err)
	}
	return nil
}

func (r *obituaryRepository) GetByID(ctx context.Context, id uint) (*domain.Obituary, error) {
	var o domain.Obituary
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, pkg.StoreError(err)
	}
	return &o, nil
}

// List returns one page of obituaries. Ties and unknown sort fields fall
// back to newest first.
func (r *obituaryRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Obituary], error) {
	filtered := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&domain.Obituary{}).
			Scopes(pkg.Filter(req, filterFields))
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, pkg.StoreError(err)
	}

	var items []domain.Obituary
	if err := filtered().Scopes(
		pkg.Sort(req, sortFields, "id:desc"),
		pkg.Paginate(req),
	).Find(&items).Error; err != nil {
		return nil, pkg.StoreError(err)
	}

	return pkg.NewPageResult(items, total, req), nil
}

// SearchByName matches name case-insensitively anywhere in full_name.
func (r *obituaryRepository) SearchByName(ctx context.Context, name string, limit int) ([]domain.Obituary, error) {
	items := []domain.Obituary{}
	if err := r.db.WithContext(ctx).
		Where("LOWER(full_name) LIKE ? ESCAPE '\\'", pkg.ContainsPattern(name)).
		Order("full_name asc").
		Order("id asc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, pkg.StoreError(err)
	}
	return items, nil
}

func (r *obituaryRepository) Update(ctx context.Context, o *domain.Obituary) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Obituary{ID: o.ID}).
		Select(writableColumns).
		Updates(o)
	if result.Error != nil {
		return pkg.StoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *obituaryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Obituary{}, id)
	if result.Error != nil {
		return pkg.StoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *obituaryRepository) Transaction(ctx context.Context, fn func(repo domain.ObituaryRepository) error) error {
	return pkg.RepoTx(ctx, r.db, func(tx *gorm.DB) domain.ObituaryRepository {
		return &obituaryRepository{db: tx}
	}, fn)
}
