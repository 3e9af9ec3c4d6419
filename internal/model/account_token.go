package model

import "time"

// AccountRecoveryToken mirrors 'account_recovery_tokens'. Token is the
// secret value mailed to the user; it is unrelated to ID.
type AccountRecoveryToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	User      *User // set by lookups that join the owner
}

// Valid reports whether the token can still be redeemed at now.
func (t AccountRecoveryToken) Valid(now time.Time) bool { return now.Before(t.ExpiresAt) }

// AccountDeletionCode mirrors 'account_deletion_codes'.
type AccountDeletionCode struct {
	ID        string
	Code      string // five digits
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (c AccountDeletionCode) Valid(now time.Time) bool { return now.Before(c.ExpiresAt) }
