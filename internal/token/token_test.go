package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "accounts.test"
)

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestIssuer_CreateAndDecode_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, testIssuer, DefaultPolicies(), fixedClock(now))
	ver := NewVerifier(testSecret, DefaultPolicies(), fixedClock(now.Add(time.Minute)))

	payload := Claims{Email: "jane@example.com", Username: "jane", Scopes: []string{"user"}}
	payload.Subject = "user-1"

	signed, err := iss.Create(payload, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, int64(2*time.Hour/time.Millisecond), signed.ExpiresInMillis)
	assert.Equal(t, now.Add(2*time.Hour), signed.ExpiresAt)

	got, err := ver.Decode(signed.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID())
	assert.Equal(t, "jane@example.com", got.Email)
	assert.Equal(t, "jane", got.Username)
	assert.Equal(t, []string{"user"}, got.Scopes)
	assert.Equal(t, testIssuer, got.Issuer)
	assert.True(t, got.HasAudience(AudienceClient))
	assert.False(t, got.HasAudience(AudienceStorage))
	assert.Equal(t, now.Unix(), got.IssuedAt.Unix())
	assert.Equal(t, now.Add(2*time.Hour).Unix(), got.ExpiresAt.Unix())
}

func TestIssuer_StoragePurpose(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, testIssuer, DefaultPolicies(), fixedClock(now))
	ver := NewVerifier(testSecret, DefaultPolicies(), fixedClock(now))

	payload := Claims{Scope: "avatars:upload"}
	payload.Subject = "user-1"
	signed, err := iss.Create(payload, PurposeStorage)
	require.NoError(t, err)
	assert.Equal(t, int64(120000), signed.ExpiresInMillis)

	got, err := ver.Decode(signed.Token)
	require.NoError(t, err)
	assert.Equal(t, "avatars:upload", got.Scope)
	assert.True(t, got.HasAudience(ver.Audience(PurposeStorage)))
	assert.Empty(t, got.Email)
}

func TestVerifier_RejectsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, testIssuer, DefaultPolicies(), fixedClock(now))

	signed, err := iss.Create(Claims{}, PurposeExpired)
	require.NoError(t, err)

	ver := NewVerifier(testSecret, DefaultPolicies(), fixedClock(now.Add(time.Second)))
	_, err = ver.Decode(signed.Token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifier_RejectsSessionTokenAfterTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, testIssuer, DefaultPolicies(), fixedClock(now))
	signed, err := iss.Create(Claims{}, PurposeSession)
	require.NoError(t, err)

	_, err = NewVerifier(testSecret, DefaultPolicies(), fixedClock(now.Add(2*time.Hour-time.Second))).Decode(signed.Token)
	assert.NoError(t, err)

	_, err = NewVerifier(testSecret, DefaultPolicies(), fixedClock(now.Add(2*time.Hour+time.Second))).Decode(signed.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_RejectsForeignSignatures(t *testing.T) {
	now := time.Now()
	ver := NewVerifier(testSecret, DefaultPolicies())

	other := NewIssuer("another-secret", testIssuer, DefaultPolicies(), fixedClock(now))
	signed, err := other.Create(Claims{}, PurposeSession)
	require.NoError(t, err)

	claims := Claims{}
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(time.Hour))
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": signed.Token,
		"alg none":     unsigned,
		"alg HS512":    hs512,
		"garbage":      "not.a.jwt",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ver.Decode(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifier_RequiresExpiry(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewVerifier(testSecret, DefaultPolicies()).Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuer_UnknownPurposePanics(t *testing.T) {
	iss := NewIssuer(testSecret, testIssuer, DefaultPolicies())
	assert.Panics(t, func() { _, _ = iss.Create(Claims{}, Purpose("refresh")) })
}

func TestPolicies_CopiedOnConstruction(t *testing.T) {
	pol := DefaultPolicies()
	ver := NewVerifier(testSecret, pol)

	pol[PurposeSession] = Policy{TTL: time.Second, Audience: "mutated"}

	assert.Equal(t, AudienceClient, ver.Audience(PurposeSession))
}
