package client

import (
	"cmp"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/simp-lee/memorial/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// Obituary and the biography types share their wire shape with the server.
type (
	Obituary                  = domain.Obituary
	GenerateBiographyRequest  = domain.GenerateBiographyRequest
	GenerateBiographyResponse = domain.GenerateBiographyResponse
)

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// PaginatedResponse is one page of items.
type PaginatedResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListObituaries fetches one page of obituaries, newest first. A page below
// 1 is treated as 1 and a page size below 1 as 10. Failures are returned as
// errors, never as an empty page.
func (c *Client) ListObituaries(ctx context.Context, page, pageSize int) (*PaginatedResponse[Obituary], error) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	var body pageEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/obituary/all", q, nil, nil, &body); err != nil {
		return nil, err
	}
	return normalizePage(body, page, pageSize), nil
}

// pageEnvelope is the list payload as sent. Both spellings of the navigation
// flags are accepted.
type pageEnvelope struct {
	Data       []Obituary `json:"data"`
	Pagination struct {
		CurrentPage     int   `json:"currentPage"`
		PageSize        int   `json:"pageSize"`
		TotalCount      int64 `json:"totalCount"`
		TotalPages      int   `json:"totalPages"`
		HasNextPage     bool  `json:"hasNextPage"`
		HasNext         bool  `json:"hasNext"`
		HasPreviousPage bool  `json:"hasPreviousPage"`
		HasPrevious     bool  `json:"hasPrevious"`
	} `json:"pagination"`
}

// normalizePage converts the server envelope. Missing page numbers fall back
// to the requested ones. With a known page size TotalPages and both flags are
// recomputed from the counts and the wire flags are ignored; only without
// one are the server's values used.
func normalizePage(body pageEnvelope, page, pageSize int) *PaginatedResponse[Obituary] {
	p := body.Pagination
	data := body.Data
	if data == nil {
		data = []Obituary{}
	}

	out := Pagination{
		CurrentPage: cmp.Or(p.CurrentPage, page),
		PageSize:    cmp.Or(p.PageSize, pageSize),
		TotalCount:  max(p.TotalCount, 0),
	}
	if out.PageSize > 0 {
		size := int64(out.PageSize)
		out.TotalPages = int((out.TotalCount + size - 1) / size)
		out.HasNext = out.CurrentPage < out.TotalPages
		out.HasPrevious = out.CurrentPage > 1
	} else {
		out.TotalPages = p.TotalPages
		out.HasNext = p.HasNextPage || p.HasNext
		out.HasPrevious = p.HasPreviousPage || p.HasPrevious
	}
	return &PaginatedResponse[Obituary]{Data: data, Pagination: out}
}

// GetObituary fetches one obituary. A missing id yields an error for which
// IsNotFound reports true.
func (c *Client) GetObituary(ctx context.Context, id uint) (*Obituary, error) {
	var o Obituary
	if err := c.do(ctx, http.MethodGet, "/api/obituary/details/"+formatID(id), nil, nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateObituary stores o and returns the record as saved by the server.
func (c *Client) CreateObituary(ctx context.Context, cred *Credential, o *Obituary) (*Obituary, error) {
	var created Obituary
	if err := c.do(ctx, http.MethodPost, "/api/obituary", nil, cred, o, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateObituary replaces the editable fields of obituary id.
func (c *Client) UpdateObituary(ctx context.Context, cred *Credential, id uint, o *Obituary) error {
	return c.do(ctx, http.MethodPut, "/api/obituary/"+formatID(id), nil, cred, o, nil)
}

// DeleteObituary removes obituary id.
func (c *Client) DeleteObituary(ctx context.Context, cred *Credential, id uint) error {
	return c.do(ctx, http.MethodDelete, "/api/obituary/"+formatID(id), nil, cred, nil, nil)
}

// SearchObituaries returns obituaries whose name contains name. A blank
// name returns an empty result without a request.
func (c *Client) SearchObituaries(ctx context.Context, name string) ([]Obituary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []Obituary{}, nil
	}
	q := url.Values{}
	q.Set("name", name)

	var found []Obituary
	if err := c.do(ctx, http.MethodGet, "/api/obituary/search", q, nil, nil, &found); err != nil {
		return nil, err
	}
	if found == nil {
		found = []Obituary{}
	}
	return found, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
