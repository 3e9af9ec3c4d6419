package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-auth/internal/apperror"
	"github.com/iliyamo/account-auth/internal/token"
)

func TestStorageService_CreateToken(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	clock := token.WithClock(func() time.Time { return now })
	svc := NewStorageService(token.NewIssuer(testSecret, testIssuer, token.DefaultPolicies(), clock))
	ver := token.NewVerifier(testSecret, token.DefaultPolicies(), clock)

	signed, err := svc.CreateToken(context.Background(), "u-1", "avatars", "upload")
	require.NoError(t, err)
	assert.Equal(t, int64(120000), signed.ExpiresInMillis)

	claims, err := ver.Decode(signed.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "avatars:upload", claims.Scope)
	assert.True(t, claims.HasAudience(token.AudienceStorage))
	assert.False(t, claims.HasAudience(token.AudienceClient))
}

func TestStorageService_RejectsUnknownScope(t *testing.T) {
	svc := NewStorageService(token.NewIssuer(testSecret, testIssuer, token.DefaultPolicies()))

	_, err := svc.CreateToken(context.Background(), "u-1", "documents", "upload")
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	_, err = svc.CreateToken(context.Background(), "u-1", "avatars", "download")
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))
}

func TestUserDirectory_FindByUsername(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, john)
	dir := NewUserDirectory(f.db.Users())

	got, err := dir.FindByUsername(context.Background(), "john.doe")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "JD", got.AvatarFallback)

	_, err = dir.FindByUsername(context.Background(), "ghost")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
