package config

import (
	"strings"
	"time"
)

// LimiterConfig describes one named fixed-window limiter: at most Limit
// requests per tracker within Window.
type LimiterConfig struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimitConfig bundles the named limiters. The global limiter applies to
// every route; auth and upload only to routes that opt in. FailOpen decides
// what happens when the counter store is unreachable: pass the request
// through (true) or reject it (false).
type RateLimitConfig struct {
	Enabled     bool
	Prefix      string
	FailOpen    bool
	ExemptPaths map[string]bool
	Global      LimiterConfig
	Auth        LimiterConfig
	Upload      LimiterConfig
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables and
// applies the documented defaults: global 120/min, auth 5/min, upload 10/min.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
		FailOpen:    envBool("RATE_LIMIT_FAIL_OPEN", true),
		ExemptPaths: parseExempt(envStr("RATE_LIMIT_EXEMPT", "/healthz")),
		Global: LimiterConfig{
			Name:   "global",
			Limit:  envInt("RATE_LIMIT_GLOBAL_LIMIT", 120),
			Window: envDur("RATE_LIMIT_GLOBAL_WINDOW", time.Minute),
		},
		Auth: LimiterConfig{
			Name:   "auth",
			Limit:  envInt("RATE_LIMIT_AUTH_LIMIT", 5),
			Window: envDur("RATE_LIMIT_AUTH_WINDOW", time.Minute),
		},
		Upload: LimiterConfig{
			Name:   "upload",
			Limit:  envInt("RATE_LIMIT_UPLOAD_LIMIT", 10),
			Window: envDur("RATE_LIMIT_UPLOAD_WINDOW", time.Minute),
		},
	}
	for _, lc := range []*LimiterConfig{&cfg.Global, &cfg.Auth, &cfg.Upload} {
		if lc.Limit < 1 {
			lc.Limit = 1
		}
		if lc.Window <= 0 {
			lc.Window = time.Minute
		}
	}
	return cfg
}

func parseExempt(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			m[p] = true
		}
	}
	return m
}
