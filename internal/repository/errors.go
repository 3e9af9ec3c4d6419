// Package repository holds the MySQL-backed stores. Lookups that find
// nothing return ErrNotFound; unique-key violations are translated into
// the sentinels below so the service layer never parses driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/iliyamo/account-auth/internal/database"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

// ErrEmailExists and ErrUsernameExists report a collision on the users table.
var (
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

// ErrTokenExists is returned when a user already holds a recovery token or
// deletion code. Each table allows one row per user.
var ErrTokenExists = errors.New("token already exists for user")

// userDuplicate maps a duplicate-key error on users to the column's sentinel.
func userDuplicate(err error) error {
	if !database.IsDuplicateKey(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "uq_users_username"):
		return ErrUsernameExists
	case strings.Contains(msg, "uq_users_email"):
		return ErrEmailExists
	}
	return err
}
