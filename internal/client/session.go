package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotSignedIn is returned by Session.Credential when no token is held.
var ErrNotSignedIn = errors.New("not signed in")

// Session pairs a Client with a TokenStore and caches the signed-in
// credential. It is safe for concurrent use.
type Session struct {
	client *Client
	store  TokenStore
	logger *slog.Logger

	initOnce sync.Once
	mu       sync.RWMutex
	cred     *Credential
}

// NewSession returns a Session. The stored credential is loaded on first use.
func NewSession(c *Client, store TokenStore) *Session {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	return &Session{client: c, store: store, logger: c.logger}
}

// Client returns the underlying API client.
func (s *Session) Client() *Client {
	return s.client
}

// Init loads the stored credential once. Later calls do nothing. A store
// read failure leaves the session signed out.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		token, email, err := s.store.Get()
		if err != nil {
			s.logger.WarnContext(ctx, "load stored credential", "error", err)
			return
		}
		if token == "" {
			return
		}
		s.mu.Lock()
		s.cred = &Credential{Token: token, Email: email}
		s.mu.Unlock()
	})
}

// Login signs in and persists the token. On any failure nothing is stored
// and the current credential is left unchanged.
func (s *Session) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	s.Init(ctx)

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	userEmail := resp.Email
	if userEmail == "" {
		userEmail = email
	}
	if err := s.store.Set(resp.Token, userEmail); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	s.mu.Lock()
	s.cred = &Credential{Token: resp.Token, Email: userEmail}
	s.mu.Unlock()
	return resp, nil
}

// Register creates an account without signing in.
func (s *Session) Register(ctx context.Context, req RegisterRequest) error {
	s.Init(ctx)
	return s.client.Register(ctx, req)
}

// Logout forgets the credential, both cached and stored.
func (s *Session) Logout(ctx context.Context) error {
	s.Init(ctx)

	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// Credential returns a copy of the signed-in credential, or ErrNotSignedIn.
func (s *Session) Credential(ctx context.Context) (*Credential, error) {
	s.Init(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.cred.Valid() {
		return nil, ErrNotSignedIn
	}
	cp := *s.cred
	return &cp, nil
}
