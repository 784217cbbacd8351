package obituary

import (
	"github.com/simp-lee/memorial/internal/domain"
)

// ObituaryRequest is the writable part of an obituary. Server-owned fields
// (id, createdByUserId, createdAtUtc) in the body are ignored.
type ObituaryRequest struct {
	FullName           string      `json:"fullName" binding:"required,max=200"`
	DateOfBirth        domain.Date `json:"dateOfBirth"`
	DateOfDeath        domain.Date `json:"dateOfDeath"`
	Biography          string      `json:"biography" binding:"required,max=5000"`
	PrimaryPhotoBase64 string      `json:"primaryPhotoBase64"`
}

func (r *ObituaryRequest) toDomain() *domain.Obituary {
	return &domain.Obituary{
		FullName:           r.FullName,
		DateOfBirth:        r.DateOfBirth,
		DateOfDeath:        r.DateOfDeath,
		Biography:          r.Biography,
		PrimaryPhotoBase64: r.PrimaryPhotoBase64,
	}
}
