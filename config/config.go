// Package config loads the service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the service needs at startup.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// RedisURL is the connection URL for the shared Redis instance.
	RedisURL string

	// IdentityURL is the identity service's auth endpoint.
	IdentityURL string

	// CookieSecret signs the device-trust cookie.
	CookieSecret string

	// DefaultDomain is used when the login form omits a domain.
	DefaultDomain string

	// DefaultRedirect is the post-login destination and the open-redirect
	// fallback.
	DefaultRedirect string

	// SafeHosts may be redirected to besides the request host.
	SafeHosts []string

	// Regions maps identity endpoints to display names shown on the login
	// form.
	Regions map[string]string

	// CredentialTTL bounds the pending two-factor credential lifetime.
	CredentialTTL time.Duration

	// SessionTTL caps the server-side session lifetime.
	SessionTTL time.Duration

	// SecureCookies marks cookies Secure; leave off only for local
	// development over plain HTTP.
	SecureCookies bool
}

// FromEnv builds the configuration from environment variables, applying
// defaults for everything but the cookie secret.
func FromEnv() Config {
	return Config{
		ListenAddr:      envOr("GATEHOUSE_LISTEN", ":9000"),
		RedisURL:        envOr("REDIS_URL", "redis://localhost:6379/0"),
		IdentityURL:     envOr("IDENTITY_URL", "http://localhost:5000"),
		CookieSecret:    os.Getenv("GATEHOUSE_COOKIE_SECRET"),
		DefaultDomain:   envOr("GATEHOUSE_DEFAULT_DOMAIN", "Default"),
		DefaultRedirect: envOr("GATEHOUSE_DEFAULT_REDIRECT", "/dashboard"),
		SafeHosts:       envList("GATEHOUSE_SAFE_HOSTS"),
		Regions:         envMap("GATEHOUSE_REGIONS"),
		CredentialTTL:   envDuration("GATEHOUSE_CREDENTIAL_TTL", 120*time.Second),
		SessionTTL:      envDuration("GATEHOUSE_SESSION_TTL", 12*time.Hour),
		SecureCookies:   envBool("GATEHOUSE_SECURE_COOKIES", true),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

// envMap parses "endpoint=Name,endpoint=Name" pairs.
func envMap(key string) map[string]string {
	values := make(map[string]string)
	for _, part := range envList(key) {
		if k, v, ok := strings.Cut(part, "="); ok {
			values[k] = v
		}
	}
	return values
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
