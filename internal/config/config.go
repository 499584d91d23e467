// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo = "mongo"
	StoreRedis = "redis"

	// DefaultService labels the AI-insights counter family in the shared store.
	DefaultService = "ai_analysis"
)

type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	AI        AIConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

// RateLimitConfig is handed to the limiter at construction; nothing in the
// limiter reads the environment at call time.
type RateLimitConfig struct {
	DailyLimit       int
	GlobalDailyLimit int
	Service          string
	Store            string
	FailOpen         bool
	CleanupSchedule  string
	RecordTTL        time.Duration
}

type AIConfig struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Enabled reports whether the generative collaborator has credentials.
func (c AIConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	config := &Config{
		Env: getEnvOrDefault("ENV", "development"),
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
			Host: getEnvOrDefault("HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: getEnvOrDefault("MONGODB_DATABASE", "seoinsights"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			DailyLimit:       getEnvAsInt("DAILY_LIMIT", 10),
			GlobalDailyLimit: getEnvAsInt("GLOBAL_DAILY_LIMIT", 100),
			Service:          getEnvOrDefault("RATE_LIMIT_SERVICE", DefaultService),
			Store:            strings.ToLower(getEnvOrDefault("RATE_LIMIT_STORE", StoreMongo)),
			FailOpen:         getEnvAsBool("RATE_LIMIT_FAIL_OPEN", false),
			CleanupSchedule:  getEnvOrDefault("RATE_LIMIT_CLEANUP_SCHEDULE", "@hourly"),
			RecordTTL:        getEnvAsDuration("RATE_LIMIT_RECORD_TTL", 25*time.Hour),
		},
		AI: AIConfig{
			APIKey:     os.Getenv("GEMINI_API_KEY"),
			Model:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxRetries: getEnvAsInt("GEMINI_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("GEMINI_RETRY_DELAY", time.Second),
			Timeout:    getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	switch c.RateLimit.Store {
	case StoreMongo:
		if c.Database.URI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_STORE %q", c.RateLimit.Store)
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("GEMINI_MAX_RETRIES must not be negative")
	}
	return nil
}

// Validate checks the limiter settings on their own so tests and callers
// building a RateLimitConfig by hand get the same guarantees as Load.
func (c RateLimitConfig) Validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("DAILY_LIMIT must be positive")
	}
	if c.GlobalDailyLimit <= 0 {
		return fmt.Errorf("GLOBAL_DAILY_LIMIT must be positive")
	}
	if c.GlobalDailyLimit < c.DailyLimit {
		return fmt.Errorf("GLOBAL_DAILY_LIMIT (%d) must be >= DAILY_LIMIT (%d)", c.GlobalDailyLimit, c.DailyLimit)
	}
	if strings.TrimSpace(c.Service) == "" {
		return fmt.Errorf("RATE_LIMIT_SERVICE must not be empty")
	}
	if c.RecordTTL < 24*time.Hour {
		return fmt.Errorf("RATE_LIMIT_RECORD_TTL must cover at least one day")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
