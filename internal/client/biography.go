package client

import (
	"context"
	"net/http"
)

const biographyPath = "/api/obituary/generate-biography"

// GenerateBiography asks the server to expand key facts into a biography.
// On failure the server's errorMessage becomes the Error message.
func (c *Client) GenerateBiography(ctx context.Context, req GenerateBiographyRequest) (*GenerateBiographyResponse, error) {
	var resp GenerateBiographyResponse
	if err := c.do(ctx, http.MethodPost, biographyPath, nil, nil, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "biography generation failed"
		}
		return nil, &Error{Kind: KindServer, Method: http.MethodPost, Path: biographyPath, StatusCode: http.StatusOK, Message: msg}
	}
	return &resp, nil
}
