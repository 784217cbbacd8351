package client

// Identity is the optimistic view of who is signed in, derived from the
// token store alone. The token is not verified here; the server checks it
// on every authenticated call.
type Identity struct {
	Name          string
	ID            string
	Authenticated bool
}

// StateProvider reports the current Identity from a TokenStore.
type StateProvider struct {
	store TokenStore
}

// NewStateProvider returns a StateProvider reading from store.
func NewStateProvider(store TokenStore) *StateProvider {
	return &StateProvider{store: store}
}

// CurrentUser returns the signed-in identity, or an anonymous one when the
// token or email is missing or the store cannot be read.
func (p *StateProvider) CurrentUser() Identity {
	if p == nil || p.store == nil {
		return Identity{}
	}
	token, email, err := p.store.Get()
	if err != nil || token == "" || email == "" {
		return Identity{}
	}
	return Identity{Name: email, ID: email, Authenticated: true}
}
