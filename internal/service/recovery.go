package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
)

// RequestPasswordRecovery issues a recovery token for the account behind
// email and returns its expiry. The token itself travels only in the
// user.account-recovery event.
func (s *AuthService) RequestPasswordRecovery(ctx context.Context, email string) (time.Time, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return time.Time{}, lookupError("user not found", err)
	}

	now := s.now()
	existing, err := s.recovery.GetByUserID(ctx, u.ID)
	switch {
	case err == nil && existing.Valid(now):
		return time.Time{}, apperror.BadRequest("a valid recovery token already exists")
	case err == nil:
		if err := s.recovery.Delete(ctx, existing.ID); err != nil {
			return time.Time{}, apperror.Internal(fmt.Errorf("delete expired recovery token: %w", err))
		}
	case !errors.Is(err, repository.ErrNotFound):
		return time.Time{}, apperror.Internal(fmt.Errorf("load recovery token: %w", err))
	}

	value, err := s.recoveryCode()
	if err != nil {
		return time.Time{}, apperror.Internal(fmt.Errorf("generate recovery token: %w", err))
	}
	t := model.AccountRecoveryToken{
		Token:     value,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.recoveryTTL).UTC(),
	}
	if err := s.recovery.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrTokenExists) {
			return time.Time{}, apperror.BadRequest("a valid recovery token already exists")
		}
		return time.Time{}, apperror.Internal(fmt.Errorf("create recovery token: %w", err))
	}

	s.publish(ctx, queue.PatternAccountRecovery, queue.AccountRecoveryEvent{
		Token: t.Token, ExpiresAt: t.ExpiresAt, User: userRef(u),
	})
	return t.ExpiresAt, nil
}

// ResetPassword redeems a recovery token. The password update and the
// token deletion commit together or not at all.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue, password string) error {
	t, err := s.recovery.GetByToken(ctx, tokenValue)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.BadRequest("token is not valid")
	}
	if err != nil {
		return apperror.Internal(fmt.Errorf("load recovery token: %w", err))
	}
	if !t.Valid(s.now()) {
		if err := s.recovery.Delete(ctx, t.ID); err != nil {
			s.log.Warn(ctx, "delete expired recovery token failed", "token_id", t.ID, "error", err)
		}
		return apperror.BadRequest("token has expired")
	}

	owner := t.User
	if owner == nil {
		u, err := s.users.GetByID(ctx, t.UserID)
		if err != nil {
			return lookupError("token is not valid", err)
		}
		owner = &u
	}
	if s.hasher.Compare(owner.Password, password) {
		return apperror.BadRequest("new password must be different from the current one")
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.recovery.Redeem(ctx, t, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.BadRequest("token is not valid")
		}
		return apperror.Internal(fmt.Errorf("redeem recovery token: %w", err))
	}

	s.publish(ctx, queue.PatternUserPasswordReset, queue.PasswordChangedEvent{
		User: userRef(*owner), ChangedAt: s.now().UTC(),
	})
	return nil
}
