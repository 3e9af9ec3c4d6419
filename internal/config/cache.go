package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig controls the Redis cache in front of GET /users/:username.
// Public profiles change only through PATCH and DELETE /auth/user, so a
// short TTL is enough; the middleware stays off when Enabled is false or Redis is down.
//
// KeyStrategy selects the cache key parts: route, method_route,
// method_route_query or route_query (the default, one entry per username).
// Responses larger than MaxBodyBytes are served but not stored.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_ENABLED, CACHE_METHODS, CACHE_TTL,
// CACHE_KEY_STRATEGY, CACHE_PREFIX and CACHE_MAX_BODY_BYTES. Profiles are
// cached for 30s under accounts:cache by default.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		Methods:      parseMethods(getenv("CACHE_METHODS", "GET")),
		TTL:          parseDur(getenv("CACHE_TTL", "30s")),
		KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       getenv("CACHE_PREFIX", "accounts:cache"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "65536")),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
