package ai

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/simp-lee/memorial/internal/domain"
)

// DefaultPromptTemplate asks for a ~200 word obituary from the key points.
// Templates see a domain.GenerateBiographyRequest and the longDate func.
const DefaultPromptTemplate = `Help me create a full, detailed obituary biography based on this information:

Full Name: {{.FullName}}
Date of Birth: {{longDate .DateOfBirth}}
Date of Death: {{longDate .DateOfDeath}}
Key Points: {{.Biography}}

Please expand these points into a respectful ~200 word obituary biography.`

const longDateLayout = "January 2, 2006"

// PromptBuilder renders biography requests into prompts.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses text, or DefaultPromptTemplate when text is blank.
func NewPromptBuilder(text string) (*PromptBuilder, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}
	tmpl, err := template.New("biography").
		Funcs(template.FuncMap{"longDate": longDate}).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

// Build renders req.
func (b *PromptBuilder) Build(req domain.GenerateBiographyRequest) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, req); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

func longDate(d domain.Date) string {
	if d.IsZero() {
		return "unknown"
	}
	return d.Format(longDateLayout)
}
