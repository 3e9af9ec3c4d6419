// Package service implements the account and session use cases. It talks
// to storage, hashing, token signing and the event broker only through the
// interfaces declared here.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/token"
)

// UserStore persists users. Lookups return repository.ErrNotFound when
// nothing matches; Create and Update report unique-key collisions as
// repository.ErrEmailExists or repository.ErrUsernameExists.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByLogin(ctx context.Context, username, email string) (model.User, error)
	CountBy(ctx context.Context, field, value string) (int, error)
	Update(ctx context.Context, id string, p model.UserPatch) (model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// ExpiredStore is the part of a token table the sweeper needs.
type ExpiredStore interface {
	ExpiredIDs(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// RecoveryTokenStore persists password recovery tokens. Create returns
// repository.ErrTokenExists when the user already holds one.
type RecoveryTokenStore interface {
	Create(ctx context.Context, t *model.AccountRecoveryToken) error
	GetByUserID(ctx context.Context, userID string) (model.AccountRecoveryToken, error)
	GetByToken(ctx context.Context, token string) (model.AccountRecoveryToken, error)
	Delete(ctx context.Context, id string) error
	// Redeem stores the new hash and deletes the token atomically.
	Redeem(ctx context.Context, t model.AccountRecoveryToken, passwordHash string) error
	ExpiredStore
}

type DeletionCodeStore interface {
	Create(ctx context.Context, c *model.AccountDeletionCode) error
	GetByUserID(ctx context.Context, userID string) (model.AccountDeletionCode, error)
	Delete(ctx context.Context, id string) error
	ExpiredStore
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

type TokenIssuer interface {
	Create(payload token.Claims, purpose token.Purpose) (token.Signed, error)
}

// Publisher delivers an event. Failures are logged by the caller and never
// fail the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, pattern string, data any) error
}
