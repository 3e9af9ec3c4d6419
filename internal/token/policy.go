// Package token issues and verifies the signed JWTs used for sessions and
// for the object-storage service. Every token is minted for a Purpose, and
// the purpose's Policy fixes its lifetime and audience.
package token

import (
	"fmt"
	"time"
)

// Purpose names what a token is for.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeStorage Purpose = "storage"
	// PurposeExpired mints tokens that are stale almost immediately. Tests only.
	PurposeExpired Purpose = "expired"
)

const (
	AudienceClient  = "client"
	AudienceStorage = "storage"
)

// Policy is the lifetime and audience of one purpose.
type Policy struct {
	TTL      time.Duration
	Audience string
}

// Policies maps every purpose to its policy. Treat it as read-only once built.
type Policies map[Purpose]Policy

// DefaultPolicies returns the standard policy table.
func DefaultPolicies() Policies {
	return Policies{
		PurposeSession: {TTL: 2 * time.Hour, Audience: AudienceClient},
		PurposeStorage: {TTL: 2 * time.Minute, Audience: AudienceStorage},
		PurposeExpired: {TTL: 100 * time.Millisecond, Audience: AudienceClient},
	}
}

// Lookup panics for an unknown purpose: callers only pass the constants above.
func (p Policies) Lookup(purpose Purpose) Policy {
	pol, ok := p[purpose]
	if !ok {
		panic(fmt.Sprintf("token: no policy for purpose %q", purpose))
	}
	return pol
}

func (p Policies) clone() Policies {
	out := make(Policies, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
