// Package config builds runtime configuration from the environment so main
// stays lean. A .env file in the working directory is loaded first when
// present; real environment variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformstrings "custodia/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	ShutdownTimeout time.Duration
}

// Postgres captures database connection settings.
type Postgres struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// Redis captures confirmation token store settings.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TokenTTL     time.Duration
}

// Kafka captures audit event publishing settings.
type Kafka struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// Outbox captures relay sweep settings.
type Outbox struct {
	Interval  time.Duration
	BatchSize int
}

// Config is the full application configuration.
type Config struct {
	LogLevel string
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Outbox   Outbox
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel: getEnv("CUSTODIA_LOG_LEVEL", "info"),
		Server: Server{
			Addr:            getEnv("CUSTODIA_ADDR", ":8080"),
			JWTSigningKey:   os.Getenv("CUSTODIA_JWT_SIGNING_KEY"),
			ShutdownTimeout: getDuration("CUSTODIA_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:          os.Getenv("CUSTODIA_POSTGRES_DSN"),
			MaxOpenConns: getInt("CUSTODIA_POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("CUSTODIA_POSTGRES_MAX_IDLE_CONNS", 5),
			ConnLifetime: getDuration("CUSTODIA_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("CUSTODIA_REDIS_URL"),
			PoolSize:     getInt("CUSTODIA_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("CUSTODIA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("CUSTODIA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("CUSTODIA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("CUSTODIA_REDIS_WRITE_TIMEOUT", 3*time.Second),
			TokenTTL:     getDuration("CUSTODIA_CONFIRM_TOKEN_TTL", 24*time.Hour),
		},
		Kafka: Kafka{
			Brokers:  splitList(getEnv("CUSTODIA_KAFKA_BROKERS", "")),
			ClientID: getEnv("CUSTODIA_KAFKA_CLIENT_ID", "custodia"),
			Topic:    getEnv("CUSTODIA_KAFKA_TOPIC", "custodia.user-account.audit"),
		},
		Outbox: Outbox{
			Interval:  getDuration("CUSTODIA_OUTBOX_INTERVAL", time.Second),
			BatchSize: getInt("CUSTODIA_OUTBOX_BATCH_SIZE", 100),
		},
	}

	if cfg.Server.JWTSigningKey == "" {
		return Config{}, fmt.Errorf("CUSTODIA_JWT_SIGNING_KEY is required")
	}
	if cfg.Postgres.DSN == "" {
		return Config{}, fmt.Errorf("CUSTODIA_POSTGRES_DSN is required")
	}
	if cfg.Redis.URL == "" {
		return Config{}, fmt.Errorf("CUSTODIA_REDIS_URL is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return Config{}, fmt.Errorf("CUSTODIA_KAFKA_BROKERS is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return platformstrings.DedupeAndTrim(strings.Split(v, ","))
}
