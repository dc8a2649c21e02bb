package config

import (
	"strings"
	"time"
)

// CacheConfig drives the response cache middleware sitting in front of
// the dashboard and consultation routes.  When Enabled is false or no
// Redis client is available, caching is a no-op.  Only the methods in
// Methods are cached, entries live for TTL, and KeyStrategy chooses
// which parts of the request (and the authenticated user) form the
// cache key — dashboards are per-scope, so the default keys on the
// user as well.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig builds a CacheConfig from the environment with
// conservative defaults: GET only, 30 second TTL, 1 MiB body cap.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query_user"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
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
