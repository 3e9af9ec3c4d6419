package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
)

// RequestAccountDeletion issues a five-digit deletion code and returns its
// expiry. The code is delivered through the user.deletion-request event.
func (s *AuthService) RequestAccountDeletion(ctx context.Context, userID string) (time.Time, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return time.Time{}, lookupError("user not found", err)
	}

	// At most one live code per user; an expired one is replaced.
	now := s.now()
	existing, err := s.deletion.GetByUserID(ctx, u.ID)
	switch {
	case err == nil && existing.Valid(now):
		return time.Time{}, apperror.BadRequest("a valid deletion code already exists")
	case err == nil:
		if err := s.deletion.Delete(ctx, existing.ID); err != nil {
			return time.Time{}, apperror.Internal(fmt.Errorf("delete expired deletion code: %w", err))
		}
	case !errors.Is(err, repository.ErrNotFound):
		return time.Time{}, apperror.Internal(fmt.Errorf("load deletion code: %w", err))
	}

	code, err := s.deletionCode()
	if err != nil {
		return time.Time{}, apperror.Internal(fmt.Errorf("generate deletion code: %w", err))
	}
	c := model.AccountDeletionCode{
		Code:      code,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.deletionTTL).UTC(),
	}
	if err := s.deletion.Create(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrTokenExists) {
			return time.Time{}, apperror.BadRequest("a valid deletion code already exists")
		}
		return time.Time{}, apperror.Internal(fmt.Errorf("create deletion code: %w", err))
	}

	s.publish(ctx, queue.PatternDeletionRequest, queue.DeletionRequestEvent{
		Code: c.Code, ExpiresAt: c.ExpiresAt, User: userRef(u),
	})
	return c.ExpiresAt, nil
}

// DeleteAccount removes the user when code matches their pending deletion
// code. A wrong code leaves the stored code in place.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, code string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return lookupError("user not found", err)
	}

	c, err := s.deletion.GetByUserID(ctx, u.ID)
	if err != nil {
		return lookupError("no deletion code was requested", err)
	}
	// Expiry is checked first, so a stale row is dropped whatever code was sent.
	if !c.Valid(s.now()) {
		if err := s.deletion.Delete(ctx, c.ID); err != nil {
			s.log.Warn(ctx, "delete expired deletion code failed", "code_id", c.ID, "error", err)
		}
		return apperror.Forbidden("deletion code has expired")
	}
	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1 {
		return apperror.Forbidden("invalid deletion code")
	}

	// Recovery tokens and the deletion code go with the user (ON DELETE CASCADE).
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return lookupError("user not found", err)
	}
	s.publish(ctx, queue.PatternUserDeleted, queue.UserEvent{
		ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email,
	})
	s.log.Info(ctx, "account deleted", "user_id", u.ID)
	return nil
}
