// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Addr          string
	JWTSigningKey string
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Sweep         SweepConfig
}

// PostgresConfig configures the primary store. Empty URL selects the
// in-memory stores (development and unit tests).
type PostgresConfig struct {
	URL string
}

// RedisConfig configures the eligibility cache. Empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the ledger event stream. Empty brokers disable the
// outbox publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SweepConfig configures the background jobs.
type SweepConfig struct {
	ExpirationInterval time.Duration
	ArchivalInterval   time.Duration
	// EvidenceRetention is how long evidence nodes stay unarchived. Archived
	// nodes remain queryable; nothing is ever deleted.
	EvidenceRetention time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("RAILLEDGER_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_LEDGER_TOPIC", "railledger.ledger"),
		},
		Sweep: SweepConfig{
			ExpirationInterval: envDuration("SWEEP_EXPIRATION_INTERVAL", time.Hour),
			ArchivalInterval:   envDuration("SWEEP_ARCHIVAL_INTERVAL", 24*time.Hour),
			EvidenceRetention:  envDuration("EVIDENCE_RETENTION", 7*365*24*time.Hour),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitCSV(brokers)
	}
	if cfg.JWTSigningKey == "" {
		// Development default, must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
