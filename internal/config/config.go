package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required variables are enforced by must(); the
// token/auth knobs fall back to documented defaults so a minimal .env is
// enough for development.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign access tokens
	AccessTTLSec   int           // access token time-to-live in seconds
	RefreshTTLDays int           // refresh token time-to-live in days
	ClockSkewSec   int           // leeway when validating token expiry
	BcryptCost     int           // bcrypt cost for password hashing
	TrustProxy     bool          // honor X-Forwarded-For from the upstream proxy
	AvatarDir      string        // directory for uploaded avatar files
	SweepInterval  time.Duration // how often expired sessions are deleted
}

// Load reads configuration values from environment variables and returns a
// Config. Missing required values cause the program to exit with a fatal
// log message; everything else takes a default.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLSec:   envInt("ACCESS_TOKEN_TTL_SEC", 900),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		ClockSkewSec:   envInt("CLOCK_SKEW_SEC", 5),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		TrustProxy:     envBool("TRUST_PROXY", false),
		AvatarDir:      envStr("AVATAR_DIR", "./uploads"),
		SweepInterval:  envDur("SESSION_SWEEP_INTERVAL", time.Hour),
	}
	// bcrypt below 10 rounds is too cheap for password storage
	if cfg.BcryptCost < 10 {
		cfg.BcryptCost = 10
	}
	if cfg.AccessTTLSec < 1 {
		cfg.AccessTTLSec = 900
	}
	if cfg.RefreshTTLDays < 1 {
		cfg.RefreshTTLDays = 7
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
