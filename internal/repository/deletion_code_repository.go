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

const deletionTable = "account_deletion_codes"

// DeletionCodeRepo persists account deletion codes, one per user.
type DeletionCodeRepo struct{ DB *sql.DB }

// NewDeletionCodeRepo returns a DeletionCodeRepo bound to db.
func NewDeletionCodeRepo(db *sql.DB) *DeletionCodeRepo { return &DeletionCodeRepo{DB: db} }

// Create inserts c, assigning an id when it has none. A second code for
// the same user yields ErrTokenExists.
func (r *DeletionCodeRepo) Create(ctx context.Context, c *model.AccountDeletionCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO account_deletion_codes (id, code, user_id, expires_at) VALUES (?,?,?,?)",
		c.ID, c.Code, c.UserID, c.ExpiresAt.UTC())
	if database.IsDuplicateKey(err) {
		return ErrTokenExists
	}
	return err
}

func (r *DeletionCodeRepo) GetByUserID(ctx context.Context, userID string) (model.AccountDeletionCode, error) {
	var c model.AccountDeletionCode
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, code, user_id, expires_at, created_at FROM account_deletion_codes WHERE user_id=? LIMIT 1",
		userID).Scan(&c.ID, &c.Code, &c.UserID, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

func (r *DeletionCodeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM account_deletion_codes WHERE id=?", id)
	return err
}

// ExpiredIDs lists codes whose expiry is before cutoff.
func (r *DeletionCodeRepo) ExpiredIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	return expiredIDs(ctx, r.DB, deletionTable, cutoff)
}

func (r *DeletionCodeRepo) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	return deleteByIDs(ctx, r.DB, deletionTable, ids)
}
