package domain

import (
	"context"
	"time"
)

// Field limits for obituaries, counted in runes.
const (
	MaxFullNameLength  = 200
	MaxBiographyLength = 5000
)

// Obituary is a memorial record.
type Obituary struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	FullName           string    `gorm:"size:200;not null;index" json:"fullName"`
	DateOfBirth        Date      `gorm:"not null" json:"dateOfBirth"`
	DateOfDeath        Date      `gorm:"not null" json:"dateOfDeath"`
	Biography          string    `gorm:"type:text;not null" json:"biography"`
	PrimaryPhotoBase64 string    `gorm:"type:text" json:"primaryPhotoBase64,omitempty"`
	CreatedByUserID    string    `gorm:"size:64;index" json:"createdByUserId"`
	CreatedAtUTC       time.Time `gorm:"column:created_at_utc;not null" json:"createdAtUtc"`
}

// ObituaryRepository defines the data access interface for obituaries.
type ObituaryRepository interface {
	Create(ctx context.Context, o *Obituary) error
	GetByID(ctx context.Context, id uint) (*Obituary, error)
	List(ctx context.Context, req PageRequest) (*PageResult[Obituary], error)
	SearchByName(ctx context.Context, name string, limit int) ([]Obituary, error)
	Update(ctx context.Context, o *Obituary) error
	Delete(ctx context.Context, id uint) error
	// Transaction runs fn with a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(repo ObituaryRepository) error) error
}

// ObituaryService defines the business logic interface for obituaries.
type ObituaryService interface {
	Create(ctx context.Context, caller *Principal, o *Obituary) (*Obituary, error)
	Get(ctx context.Context, id uint) (*Obituary, error)
	List(ctx context.Context, req PageRequest) (*PageResult[Obituary], error)
	Search(ctx context.Context, name string) ([]Obituary, error)
	Update(ctx context.Context, caller *Principal, id uint, o *Obituary) error
	Delete(ctx context.Context, caller *Principal, id uint) error
}

// GenerateBiographyRequest carries the key facts a biography is expanded from.
type GenerateBiographyRequest struct {
	FullName    string `json:"fullName"`
	DateOfBirth Date   `json:"dateOfBirth"`
	DateOfDeath Date   `json:"dateOfDeath"`
	Biography   string `json:"biography"`
}

// GenerateBiographyResponse is the outcome of a biography generation.
type GenerateBiographyResponse struct {
	Success            bool   `json:"success"`
	GeneratedBiography string `json:"generatedBiography,omitempty"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
}

// BiographyService generates obituary biographies from key points.
type BiographyService interface {
	Generate(ctx context.Context, req GenerateBiographyRequest) (string, error)
}
