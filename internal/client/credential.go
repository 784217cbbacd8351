package client

// Credential is the bearer token of a signed-in user, threaded explicitly
// into the calls that mutate data.
type Credential struct {
	Token string
	Email string
}

// Valid reports whether c carries a token.
func (c *Credential) Valid() bool {
	return c != nil && c.Token != ""
}
