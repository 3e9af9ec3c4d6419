package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken wraps every decode failure: bad signature, wrong
// algorithm, expiry, malformed input.
var ErrInvalidToken = errors.New("invalid token")

type Verifier struct {
	secret   []byte
	policies Policies
	now      func() time.Time
}

// NewVerifier builds a Verifier for tokens signed with secret.
func NewVerifier(secret string, policies Policies, opts ...Option) *Verifier {
	if secret == "" {
		panic("token: empty signing secret")
	}
	o := buildOptions(opts)
	return &Verifier{secret: []byte(secret), policies: policies.clone(), now: o.now}
}

// Decode checks signature and expiry and returns the claims. Audience and
// issuer are left to the caller, which knows which purpose it expects.
func (v *Verifier) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// Audience returns the audience tokens of the given purpose are minted for.
func (v *Verifier) Audience(purpose Purpose) string {
	return v.policies.Lookup(purpose).Audience
}
