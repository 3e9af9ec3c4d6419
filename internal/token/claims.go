package token

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of every token we sign. Session tokens carry the
// identity fields and Scopes (the user's role). Storage tokens carry only
// the subject and Scope, e.g. "avatars:upload".
type Claims struct {
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Scopes   []string `json:"scopes,omitempty"`
	Scope    string   `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasAudience reports whether aud is one of the token's audiences.
func (c *Claims) HasAudience(aud string) bool {
	return slices.Contains(c.Audience, aud)
}

// UserID returns the subject claim.
func (c *Claims) UserID() string { return c.Subject }
