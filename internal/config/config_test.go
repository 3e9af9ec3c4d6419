package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                               "development",
		"APP_PORT":                              "8080",
		"DB_USER":                               "app",
		"DB_HOST":                               "localhost",
		"DB_PORT":                               "3306",
		"DB_NAME":                               "accounts",
		"JWT_SECRET":                            "secret",
		"JWT_ISSUER":                            "accounts.local",
		"AUTH_TOKEN_COOKIE_NAME":                "auth_token",
		"STORAGE_AUTH_TOKEN_COOKIE_NAME":        "storage_token",
		"ACCOUNT_RECOVERY_TOKEN_TTL_IN_MINUTES": "15",
		"ACCOUNT_DELETION_CODE_TTL_IN_MINUTES":  "10",
	} {
		t.Setenv(k, v)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/v1", cfg.Prefix)
	assert.Equal(t, 15*time.Minute, cfg.RecoveryTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.DeletionCodeTTL)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "account-events", cfg.QueueName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("SWEEP_INTERVAL", "30s")
	t.Setenv("BCRYPT_COST", "12")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 12, cfg.BcryptCost)
}

func TestFromEnv_ReportsEveryProblem(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ACCOUNT_DELETION_CODE_TTL_IN_MINUTES", "ten")
	t.Setenv("ACCOUNT_RECOVERY_TOKEN_TTL_IN_MINUTES", "0")

	_, err := FromEnv()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, `invalid int for ACCOUNT_DELETION_CODE_TTL_IN_MINUTES: "ten"`)
	assert.Contains(t, msg, "ACCOUNT_RECOVERY_TOKEN_TTL_IN_MINUTES must be positive")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")

	cc := LoadCacheConfig()

	assert.True(t, cc.Enabled)
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.False(t, cc.Methods["POST"])
	assert.Equal(t, time.Minute, cc.TTL)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	opts, ok := RedisOptions()
	require.True(t, ok)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	t.Setenv("REDIS_DISABLED", "1")
	_, ok = RedisOptions()
	assert.False(t, ok)
}
