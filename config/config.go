// Package config loads the gateway's environment-driven configuration,
// adapted from the teacher's services/payment-service/config package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/novapay/gateway/models"
)

// Config holds every environment-recognized option from spec.md §6.
type Config struct {
	Port string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PaymentSuccessRate  float64
	TestMode            bool
	TestPaymentSuccess  bool
	TestProcessingDelay time.Duration

	WebhookMaxRetries         int
	WebhookTimeout            time.Duration
	WebhookRetryIntervalsTest bool

	IdempotencyTTL time.Duration

	PollInterval time.Duration
	PollBatch    int

	PaymentWorkers int
	WebhookWorkers int

	CloudWatchEnabled   bool
	CloudWatchNamespace string

	AllowedOrigins string
	Environment    string
}

// Load reads configuration from the environment (and an optional .env file,
// loaded the way the teacher's database.Connect does), filling in the spec's
// documented defaults for anything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Matches the teacher's tolerant fallback to system env vars.
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PaymentSuccessRate:  getEnvFloat("PAYMENT_SUCCESS_RATE", 0.9),
		TestMode:            getEnvBool("TEST_MODE", false),
		TestPaymentSuccess:  getEnvBool("TEST_PAYMENT_SUCCESS", true),
		TestProcessingDelay: time.Duration(getEnvInt("TEST_PROCESSING_DELAY_MS", 0)) * time.Millisecond,

		WebhookMaxRetries:         getEnvInt("WEBHOOK_MAX_RETRIES", models.DefaultMaxRetries),
		WebhookTimeout:            time.Duration(getEnvInt("WEBHOOK_TIMEOUT_MS", 5000)) * time.Millisecond,
		WebhookRetryIntervalsTest: getEnvBool("WEBHOOK_RETRY_INTERVALS_TEST", false),

		IdempotencyTTL: time.Duration(getEnvInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,

		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_MS", 30000)) * time.Millisecond,
		PollBatch:    getEnvInt("POLL_BATCH", 100),

		PaymentWorkers: getEnvInt("PAYMENT_WORKERS", 4),
		WebhookWorkers: getEnvInt("WEBHOOK_WORKERS", 8),

		CloudWatchEnabled:   getEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),

		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		Environment:    getEnv("ENVIRONMENT", "development"),
	}

	if cfg.PostgresUser == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("config: POSTGRES_USER and POSTGRES_DB are required")
	}

	return cfg, nil
}

// ProcessingDelay returns the simulated processing delay for a payment: the
// configured test override when TEST_MODE is set, otherwise a fixed small
// delay representative of a real processor round-trip.
func (c *Config) ProcessingDelay() time.Duration {
	if c.TestMode {
		return c.TestProcessingDelay
	}
	return 2 * time.Second
}

// BackoffBase returns the base used by the webhook retry backoff schedule:
// 60s per spec.md §4.E.2, or 1s under the short test schedule.
func (c *Config) BackoffBase() time.Duration {
	if c.WebhookRetryIntervalsTest {
		return time.Second
	}
	return time.Minute
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
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

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
