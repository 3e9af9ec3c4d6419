package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signed is a freshly minted token.
type Signed struct {
	Token           string
	ExpiresInMillis int64
	ExpiresAt       time.Time
}

// Issuer signs HS256 tokens.
type Issuer struct {
	secret   []byte
	issuer   string
	policies Policies
	now      func() time.Time
}

// NewIssuer returns an Issuer that signs HS256 tokens with secret and
// stamps issuer into every token. Each token kind takes its lifetime and
// audience from policies; the map is copied so later changes by the caller
// have no effect. It panics on an empty secret, which is a startup
// misconfiguration rather than a runtime condition.
func NewIssuer(secret, issuer string, policies Policies, opts ...Option) *Issuer {
	if secret == "" {
		panic("token: empty signing secret")
	}
	o := buildOptions(opts)
	return &Issuer{secret: []byte(secret), issuer: issuer, policies: policies.clone(), now: o.now}
}

// Create signs payload for purpose. The registered claims iss, aud, iat and
// exp are always overwritten from the purpose's policy.
func (i *Issuer) Create(payload Claims, purpose Purpose) (Signed, error) {
	pol := i.policies.Lookup(purpose)
	now := i.now()
	exp := now.Add(pol.TTL)

	claims := payload
	claims.Issuer = i.issuer
	claims.Audience = jwt.ClaimStrings{pol.Audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(exp)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Signed{}, fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return Signed{Token: raw, ExpiresInMillis: pol.TTL.Milliseconds(), ExpiresAt: exp}, nil
}
