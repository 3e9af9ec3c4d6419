package service

import (
	"context"

	"github.com/iliyamo/account-auth/internal/model"
)

// UserDirectory serves public profile lookups.
type UserDirectory struct {
	users UserStore
}

// NewUserDirectory serves public profiles from users.
func NewUserDirectory(users UserStore) *UserDirectory {
	if users == nil {
		panic("service: UserDirectory requires a user store")
	}
	return &UserDirectory{users: users}
}

// FindByUsername returns the public projection of the user.
func (d *UserDirectory) FindByUsername(ctx context.Context, username string) (model.PublicUser, error) {
	u, err := d.users.GetByUsername(ctx, username)
	if err != nil {
		return model.PublicUser{}, lookupError("user not found", err)
	}
	return u.Public(), nil
}
