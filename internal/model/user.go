package model

import "time"

// Roles carried in the session token's scopes claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User mirrors the 'users' table.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // bcrypt hash
	Role           string    `json:"role"`
	AvatarURL      *string   `json:"avatar_url"`
	AvatarFallback string    `json:"avatar_fallback"`
	Bio            *string   `json:"bio"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PublicUser is the profile anyone may look up by username.
type PublicUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	AvatarURL      *string   `json:"avatar_url"`
	AvatarFallback string    `json:"avatar_fallback"`
	Bio            *string   `json:"bio"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Public drops the password hash and the role.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		AvatarURL:      u.AvatarURL,
		AvatarFallback: u.AvatarFallback,
		Bio:            u.Bio,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// UserPatch lists the profile fields to change. Nil means unchanged.
type UserPatch struct {
	Name           *string
	Username       *string
	Email          *string
	AvatarURL      *string
	AvatarFallback *string
	Bio            *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil &&
		p.AvatarURL == nil && p.AvatarFallback == nil && p.Bio == nil
}
