package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/account-auth/internal/database"
	"github.com/iliyamo/account-auth/internal/model"
)

const recoveryTable = "account_recovery_tokens"

// RecoveryTokenRepo persists password recovery tokens, one per user.
type RecoveryTokenRepo struct{ DB *sql.DB }

// NewRecoveryTokenRepo returns a RecoveryTokenRepo bound to db.
func NewRecoveryTokenRepo(db *sql.DB) *RecoveryTokenRepo { return &RecoveryTokenRepo{DB: db} }

// Create inserts t, assigning an id when empty. ErrTokenExists when the
// user already has a row.
func (r *RecoveryTokenRepo) Create(ctx context.Context, t *model.AccountRecoveryToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO account_recovery_tokens (id, token, user_id, expires_at) VALUES (?,?,?,?)",
		t.ID, t.Token, t.UserID, t.ExpiresAt.UTC())
	if database.IsDuplicateKey(err) {
		return ErrTokenExists
	}
	return err
}

// GetByUserID returns the user's token, expired or not.
func (r *RecoveryTokenRepo) GetByUserID(ctx context.Context, userID string) (model.AccountRecoveryToken, error) {
	var t model.AccountRecoveryToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token, user_id, expires_at, created_at FROM account_recovery_tokens WHERE user_id=? LIMIT 1",
		userID).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// GetByToken looks a token up by its secret value and joins the owner.
func (r *RecoveryTokenRepo) GetByToken(ctx context.Context, token string) (model.AccountRecoveryToken, error) {
	var (
		t      model.AccountRecoveryToken
		u      model.User
		avatar sql.NullString
		bio    sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT t.id, t.token, t.user_id, t.expires_at, t.created_at,
		        u.id, u.name, u.username, u.email, u.password, u.role, u.avatar_url, u.avatar_fallback, u.bio, u.created_at, u.updated_at
		   FROM account_recovery_tokens t
		   JOIN users u ON u.id = t.user_id
		  WHERE t.token=? LIMIT 1`,
		token).Scan(&t.ID, &t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt,
		&u.ID, &u.Name, &u.Username, &u.Email, &u.Password, &u.Role, &avatar, &u.AvatarFallback, &bio, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	if bio.Valid {
		u.Bio = &bio.String
	}
	t.User = &u
	return t, nil
}

// Delete removes a token by id. Deleting a missing row is not an error.
func (r *RecoveryTokenRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM account_recovery_tokens WHERE id=?", id)
	return err
}

// Redeem sets the owner's password hash and deletes the token in one
// transaction. ErrNotFound if the token was consumed concurrently.
func (r *RecoveryTokenRepo) Redeem(ctx context.Context, t model.AccountRecoveryToken, passwordHash string) error {
	return database.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx database.DBTX) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM account_recovery_tokens WHERE id=?", t.ID)
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
		return updatePasswordTx(ctx, tx, t.UserID, passwordHash)
	})
}

// ExpiredIDs lists tokens with expires_at at or before cutoff.
func (r *RecoveryTokenRepo) ExpiredIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	return expiredIDs(ctx, r.DB, recoveryTable, cutoff)
}

// DeleteByIDs removes the given tokens in one statement.
func (r *RecoveryTokenRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	return deleteByIDs(ctx, r.DB, recoveryTable, ids)
}
