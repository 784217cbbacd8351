package obituary

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/simp-lee/memorial/internal/ai"
	"github.com/simp-lee/memorial/internal/domain"
)

type biographyService struct {
	gen     ai.Generator
	prompts *ai.PromptBuilder
	logger  *slog.Logger
}

// NewBiographyService creates a domain.BiographyService. A nil generator
// yields a service that reports generation as unavailable.
func NewBiographyService(gen ai.Generator, prompts *ai.PromptBuilder, logger *slog.Logger) domain.BiographyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &biographyService{gen: gen, prompts: prompts, logger: logger}
}

// Generate expands the key points in req into a biography.
func (s *biographyService) Generate(ctx context.Context, req domain.GenerateBiographyRequest) (string, error) {
	if s.gen == nil || s.prompts == nil {
		return "", domain.NewAppError(domain.CodeUnavailable, "biography generation is not configured", nil)
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Biography = strings.TrimSpace(req.Biography)
	if err := validateFacts(req.FullName, req.DateOfBirth, req.DateOfDeath, req.Biography); err != nil {
		return "", err
	}

	prompt, err := s.prompts.Build(req)
	if err != nil {
		return "", domain.NewAppError(domain.CodeInternal, "failed to build prompt", err)
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "biography generation failed",
			slog.String("provider", s.gen.Provider()),
			slog.String("error", err.Error()),
		)
		var ue *ai.UpstreamError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", domain.NewAppError(domain.CodeUpstream, "biography generation timed out", err)
		case errors.As(err, &ue):
			return "", domain.NewAppError(domain.CodeUpstream, ue.Error(), err)
		default:
			return "", domain.NewAppError(domain.CodeUpstream, "biography generation failed", err)
		}
	}

	return strings.TrimSpace(text), nil
}
