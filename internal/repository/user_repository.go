package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/account-auth/internal/database"
	"github.com/iliyamo/account-auth/internal/model"
)

const userColumns = "id,name,username,email,password,role,avatar_url,avatar_fallback,bio,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

// NewUserRepo constructs a UserRepo with the given DB handle.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u      model.User
		avatar sql.NullString
		bio    sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.Password, &u.Role,
		&avatar, &u.AvatarFallback, &bio, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	if bio.Valid {
		u.Bio = &bio.String
	}
	return u, nil
}

// Create inserts u, assigning a UUID when u.ID is empty. A unique-key
// collision comes back as ErrEmailExists or ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,name,username,email,password,role,avatar_url,avatar_fallback,bio) VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Username, u.Email, u.Password, u.Role, u.AvatarURL, u.AvatarFallback, u.Bio)
	if err != nil {
		return userDuplicate(err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByEmail expects email already lower-cased.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByLogin matches either the username or the email. Empty values never match.
func (r *UserRepo) GetByLogin(ctx context.Context, username, email string) (model.User, error) {
	if username == "" && email == "" {
		return model.User{}, ErrNotFound
	}
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE (username<>'' AND username=?) OR (email<>'' AND email=?) LIMIT 1",
		username, email))
}

// CountBy counts users whose field equals value. field is "username" or "email".
func (r *UserRepo) CountBy(ctx context.Context, field, value string) (int, error) {
	switch field {
	case "username", "email":
	default:
		return 0, fmt.Errorf("count users: unsupported field %q", field)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+field+"=?", value).Scan(&n)
	return n, err
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id string, p model.UserPatch) (model.User, error) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", p.Name)
	add("username", p.Username)
	add("email", p.Email)
	add("avatar_url", p.AvatarURL)
	add("avatar_fallback", p.AvatarFallback)
	add("bio", p.Bio)

	if len(sets) > 0 {
		args = append(args, id)
		_, err := r.DB.ExecContext(ctx,
			"UPDATE users SET "+strings.Join(sets, ",")+" WHERE id=?", args...)
		if err != nil {
			return model.User{}, userDuplicate(err)
		}
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword stores a new password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return updatePasswordTx(ctx, r.DB, id, hash)
}

func updatePasswordTx(ctx context.Context, tx database.DBTX, id, hash string) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET password=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user. Recovery tokens and deletion codes go with it
// through ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
