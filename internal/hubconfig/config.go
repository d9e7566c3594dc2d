// Package hubconfig loads the hub's process configuration from the
// environment, following the fail-fast validation shape the toolbridge
// server uses for its own JWT/issuer pairing.
package hubconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every environment-sourced setting named in the external
// interfaces contract, plus the storage/auth settings needed to run.
type Config struct {
	Env string // "dev" enables console-pretty logging and the X-Debug-Sub auth bypass

	NeuralMCPPort   string // default 6174
	MessageHubPort  string // default 3004

	DatabaseURL          string
	RedisURL             string // optional; "" disables the Cache component
	VectorStoreURL       string // optional; "" disables semantic search

	APIKey               string // shared bootstrap key, optional
	EnableAdvancedMemory bool

	SlackWebhookURL string // optional

	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	JWTIssuer     string
	JWTJWKSURL    string
	JWTAudience   string
	JWTHS256Secret string

	TenantMembershipSecret string // validated at boot only; the X-Tenant-Id override is gated by the tenant_membership table, not by this secret
	HandoffRetention       time.Duration
	AgentTTL               time.Duration // no touchAgent activity for this long marks an agent offline
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads Config from the environment and fails fast on any setting
// whose absence would otherwise surface as a confusing runtime error later,
// the same posture as the teacher's main.go.
func Load() (*Config, error) {
	cfg := &Config{
		Env:                  env("ENV", "production"),
		NeuralMCPPort:        env("NEURAL_MCP_PORT", "6174"),
		MessageHubPort:       env("MESSAGE_HUB_PORT", "3004"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		VectorStoreURL:       os.Getenv("VECTOR_STORE_URL"),
		APIKey:               os.Getenv("API_KEY"),
		EnableAdvancedMemory: envBool("ENABLE_ADVANCED_MEMORY", true),
		SlackWebhookURL:      os.Getenv("SLACK_WEBHOOK_URL"),
		RequestTimeout:       time.Duration(envInt("REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond,
		RateLimitRPS:         envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       envInt("RATE_LIMIT_BURST", 20),
		JWTIssuer:            os.Getenv("JWT_ISSUER"),
		JWTJWKSURL:           os.Getenv("JWT_JWKS_URL"),
		JWTAudience:          os.Getenv("JWT_AUDIENCE"),
		JWTHS256Secret:       env("JWT_HS256_SECRET", "dev-only-insecure-secret"),
		TenantMembershipSecret: os.Getenv("TENANT_MEMBERSHIP_SECRET"),
		HandoffRetention:     time.Duration(envInt("HANDOFF_RETENTION_DAYS", 90)) * 24 * time.Hour,
		AgentTTL:             envDuration("AGENT_TTL", 10*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Issuer and JWKS URL are a pair: either both are set (RS256 via a real
	// identity provider) or neither is (HS256-only, dev/backend tokens).
	if (cfg.JWTIssuer == "") != (cfg.JWTJWKSURL == "") {
		return nil, fmt.Errorf("JWT_ISSUER and JWT_JWKS_URL must both be set or both be empty")
	}

	if cfg.Env != "dev" && cfg.JWTHS256Secret == "dev-only-insecure-secret" {
		return nil, fmt.Errorf("JWT_HS256_SECRET must be set explicitly outside dev")
	}

	if cfg.Env != "dev" && cfg.TenantMembershipSecret == "" {
		return nil, fmt.Errorf("TENANT_MEMBERSHIP_SECRET must be set explicitly outside dev")
	}

	return cfg, nil
}
