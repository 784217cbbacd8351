package pkg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrInvalidDataURL is returned when a string is not a base64 data URL.
var ErrInvalidDataURL = errors.New("invalid data URL")

// DataURL is a decoded "data:<mime>;base64,<payload>" value.
type DataURL struct {
	// DeclaredType is the media type written in the URL header.
	DeclaredType string
	// DetectedType is the media type sniffed from the decoded bytes.
	DetectedType string
	Data         []byte
}

// EncodeDataURL returns data as a base64 data URL whose media type is
// detected from the content.
func EncodeDataURL(data []byte) string {
	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL decodes a base64 data URL and sniffs its content type.
func ParseDataURL(s string) (*DataURL, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	declared, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	detected := mimetype.Detect(data)
	return &DataURL{
		DeclaredType: strings.ToLower(declared),
		DetectedType: detected.String(),
		Data:         data,
	}, nil
}

// IsImage reports whether both the declared and the sniffed type are images.
func (d *DataURL) IsImage() bool {
	return strings.HasPrefix(d.DeclaredType, "image/") && strings.HasPrefix(d.DetectedType, "image/")
}
