// Package config reads the storefront settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	Postgres Postgres

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	KafkaBrokers       []string
	OrderEventsTopic   string
	CartConsumerGroup  string
	OutboxPollInterval time.Duration

	LockBackend    string
	LockTTL        time.Duration
	LockWait       time.Duration
	IdempotencyTTL time.Duration

	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// Load returns the configuration, failing on values that do not parse.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     p.duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(p.int("MAX_REQUEST_BODY_SIZE", 1<<20)),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		Postgres: Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     p.int("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnv("POSTGRES_DB", "easyshop"),
		},

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "easyshop"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:  p.duration("CART_CACHE_TTL", 15*time.Minute),

		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		CartConsumerGroup:  getEnv("CART_CONSUMER_GROUP", "cart-cleanup"),
		OutboxPollInterval: p.duration("OUTBOX_POLL_INTERVAL", time.Second),

		LockBackend:    getEnv("LOCK_BACKEND", "redis"),
		LockTTL:        p.duration("CHECKOUT_LOCK_TTL", 30*time.Second),
		LockWait:       p.duration("CHECKOUT_LOCK_WAIT", 5*time.Second),
		IdempotencyTTL: p.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		BreakerMaxFailures: uint32(p.int("BREAKER_MAX_FAILURES", 5)),
		BreakerTimeout:     p.duration("BREAKER_TIMEOUT", 10*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS: at least one broker is required")
	}
	if cfg.LockBackend != "redis" && cfg.LockBackend != "memory" {
		return nil, fmt.Errorf("LOCK_BACKEND=%q: must be redis or memory", cfg.LockBackend)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) fail(key, raw string, err error) {
	if p.err != nil {
		return
	}
	if err == nil {
		err = fmt.Errorf("must not be negative")
	}
	p.err = fmt.Errorf("%s=%q: %w", key, raw, err)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
