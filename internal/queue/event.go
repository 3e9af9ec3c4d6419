// Package queue defines the account events exchanged over RabbitMQ, the
// publisher used by the API and the consumer behind cmd/eventlog.
package queue

import "time"

// Event patterns. The envelope's "pattern" field carries one of these.
const (
	PatternUserRegistered      = "user.registered"
	PatternUserUpdated         = "user.updated"
	PatternUserPasswordUpdated = "user.password-updated"
	PatternUserPasswordReset   = "user.password-reset"
	PatternAccountRecovery     = "user.account-recovery"
	PatternDeletionRequest     = "user.deletion-request"
	PatternUserDeleted         = "user.deleted"
)

// Envelope is the message body on the wire.
type Envelope struct {
	Pattern string `json:"pattern"`
	Data    any    `json:"data"`
}

// UserRef identifies the user an event is about.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserEvent is published on registration and deletion.
type UserEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

type UserUpdatedEvent struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PasswordChangedEvent covers both a password change and a reset.
type PasswordChangedEvent struct {
	User      UserRef   `json:"user"`
	ChangedAt time.Time `json:"changed_at"`
}

// AccountRecoveryEvent delivers the recovery token. It is the only place
// the token value ever leaves the service.
type AccountRecoveryEvent struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserRef   `json:"user"`
}

// DeletionRequestEvent delivers the account deletion code.
type DeletionRequestEvent struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserRef   `json:"user"`
}
