// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration for the mediation engine.
type Server struct {
	Addr           string
	PolicyFile     string
	PostgresURL    string
	RedisURL       string
	KafkaBrokers   []string
	KafkaTopic     string
	DecryptJWTKey  string
	BudgetWindow   time.Duration
	AuditRetention time.Duration
	KeyRotation    time.Duration
}

// FromEnv builds a Server config from environment variables. Missing values
// fall back to development defaults; production deployments must override
// the JWT signing key.
func FromEnv() Server {
	cfg := Server{
		Addr:           getenv("PRIVACYGATE_ADDR", ":8080"),
		PolicyFile:     getenv("PRIVACYGATE_POLICY_FILE", "policies.yaml"),
		PostgresURL:    os.Getenv("PRIVACYGATE_POSTGRES_URL"),
		RedisURL:       os.Getenv("PRIVACYGATE_REDIS_URL"),
		KafkaTopic:     getenv("PRIVACYGATE_KAFKA_TOPIC", "privacy.events"),
		DecryptJWTKey:  getenv("PRIVACYGATE_JWT_KEY", "dev-secret-key-change-in-production"),
		BudgetWindow:   24 * time.Hour,
		AuditRetention: 365 * 24 * time.Hour,
		KeyRotation:    30 * 24 * time.Hour,
	}
	if brokers := os.Getenv("PRIVACYGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if w := os.Getenv("PRIVACYGATE_BUDGET_WINDOW"); w != "" {
		if d, err := time.ParseDuration(w); err == nil && d > 0 {
			cfg.BudgetWindow = d
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
