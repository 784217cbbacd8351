package obituary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/pkg"
)

// MaxSearchResults caps name search results.
const MaxSearchResults = 100

// ServiceOptions configures the obituary service.
type ServiceOptions struct {
	// EnforceOwnership limits update and delete to the creator.
	EnforceOwnership bool
	// MaxPhotoBytes bounds the decoded photo size; zero disables the check.
	MaxPhotoBytes int
	// Cache is optional.
	Cache  *DetailCache
	Logger *slog.Logger
	Now    func() time.Time
}

type obituaryService struct {
	repo             domain.ObituaryRepository
	enforceOwnership bool
	maxPhotoBytes    int
	cache            *DetailCache
	logger           *slog.Logger
	now              func() time.Time
}

// NewService creates a domain.ObituaryService.
func NewService(repo domain.ObituaryRepository, opts ServiceOptions) domain.ObituaryService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &obituaryService{
		repo:             repo,
		enforceOwnership: opts.EnforceOwnership,
		maxPhotoBytes:    opts.MaxPhotoBytes,
		cache:            opts.Cache,
		logger:           opts.Logger,
		now:              opts.Now,
	}
}

// Create stamps the creator and creation time and persists o.
func (s *obituaryService) Create(ctx context.Context, caller *domain.Principal, o *domain.Obituary) (*domain.Obituary, error) {
	if caller == nil || caller.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	normalize(o)
	if err := s.validate(o); err != nil {
		return nil, err
	}

	o.ID = 0
	o.CreatedByUserID = caller.UserID
	o.CreatedAtUTC = s.now().UTC()

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "obituary created",
		slog.Uint64("obituary_id", uint64(o.ID)),
		slog.String("user_id", caller.UserID),
	)
	return o, nil
}

func (s *obituaryService) Get(ctx context.Context, id uint) (*domain.Obituary, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	if o, ok := s.cache.Get(id); ok {
		return o, nil
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(o)
	return o, nil
}

func (s *obituaryService) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Obituary], error) {
	return s.repo.List(ctx, req)
}

// Search returns obituaries whose name contains name. A blank name matches
// nothing.
func (s *obituaryService) Search(ctx context.Context, name string) ([]domain.Obituary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []domain.Obituary{}, nil
	}
	return s.repo.SearchByName(ctx, name, MaxSearchResults)
}

// Update replaces the writable fields of obituary id. Creator and creation
// time are kept.
func (s *obituaryService) Update(ctx context.Context, caller *domain.Principal, id uint, o *domain.Obituary) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthorized
	}
	normalize(o)
	if err := s.validate(o); err != nil {
		return err
	}

	// The ownership check and the write see the same row.
	err := s.repo.Transaction(ctx, func(repo domain.ObituaryRepository) error {
		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, caller, existing, "update"); err != nil {
			return err
		}

		existing.FullName = o.FullName
		existing.DateOfBirth = o.DateOfBirth
		existing.DateOfDeath = o.DateOfDeath
		existing.Biography = o.Biography
		existing.PrimaryPhotoBase64 = o.PrimaryPhotoBase64
		return repo.Update(ctx, existing)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(id)
	s.logger.InfoContext(ctx, "obituary updated",
		slog.Uint64("obituary_id", uint64(id)),
		slog.String("user_id", caller.UserID),
	)
	return nil
}

func (s *obituaryService) Delete(ctx context.Context, caller *domain.Principal, id uint) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthorized
	}
	err := s.repo.Transaction(ctx, func(repo domain.ObituaryRepository) error {
		if s.enforceOwnership {
			existing, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := s.authorize(ctx, caller, existing, "delete"); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.cache.Delete(id)
	s.logger.InfoContext(ctx, "obituary deleted",
		slog.Uint64("obituary_id", uint64(id)),
		slog.String("user_id", caller.UserID),
	)
	return nil
}

func (s *obituaryService) authorize(ctx context.Context, caller *domain.Principal, o *domain.Obituary, action string) error {
	if !s.enforceOwnership || o.CreatedByUserID == caller.UserID {
		return nil
	}
	s.logger.WarnContext(ctx, "obituary ownership check failed",
		slog.String("action", action),
		slog.Uint64("obituary_id", uint64(o.ID)),
		slog.String("user_id", caller.UserID),
	)
	return domain.NewAppError(domain.CodeForbidden, "only the creator can "+action+" this obituary", nil)
}

func normalize(o *domain.Obituary) {
	o.FullName = strings.TrimSpace(o.FullName)
	o.Biography = strings.TrimSpace(o.Biography)
	o.PrimaryPhotoBase64 = strings.TrimSpace(o.PrimaryPhotoBase64)
}

func (s *obituaryService) validate(o *domain.Obituary) error {
	if err := validateFacts(o.FullName, o.DateOfBirth, o.DateOfDeath, o.Biography); err != nil {
		return err
	}

	today := domain.NewDate(s.now().UTC().Date())
	if today.Before(o.DateOfDeath) {
		return domain.NewFieldError("dateOfDeath", "date of death cannot be in the future")
	}

	if o.PrimaryPhotoBase64 == "" {
		return nil
	}
	photo, err := pkg.ParseDataURL(o.PrimaryPhotoBase64)
	if err != nil {
		return domain.NewFieldError("primaryPhotoBase64", "photo must be a base64 data URL")
	}
	if !photo.IsImage() {
		return domain.NewFieldError("primaryPhotoBase64", "photo must be an image")
	}
	if s.maxPhotoBytes > 0 && len(photo.Data) > s.maxPhotoBytes {
		return domain.NewFieldError("primaryPhotoBase64", fmt.Sprintf("photo cannot exceed %d bytes", s.maxPhotoBytes))
	}
	return nil
}

// validateFacts checks the fields shared by obituaries and biography
// generation requests and reports the first failure against its JSON field.
func validateFacts(fullName string, born, died domain.Date, biography string) error {
	switch {
	case fullName == "":
		return domain.NewFieldError("fullName", "full name is required")
	case utf8.RuneCountInString(fullName) > domain.MaxFullNameLength:
		return domain.NewFieldError("fullName", fmt.Sprintf("full name cannot exceed %d characters", domain.MaxFullNameLength))
	case born.IsZero():
		return domain.NewFieldError("dateOfBirth", "date of birth is required")
	case died.IsZero():
		return domain.NewFieldError("dateOfDeath", "date of death is required")
	case died.Before(born):
		return domain.NewFieldError("dateOfDeath", "date of death cannot be before date of birth")
	case biography == "":
		return domain.NewFieldError("biography", "biography is required")
	case utf8.RuneCountInString(biography) > domain.MaxBiographyLength:
		return domain.NewFieldError("biography", fmt.Sprintf("biography cannot exceed %d characters", domain.MaxBiographyLength))
	}
	return nil
}
