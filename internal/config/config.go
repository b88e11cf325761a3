package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port         string
	Env          string
	DatabaseURL  string // Postgres profile store; empty falls back to SQLite
	SQLitePath   string
	RedisURL     string // conversation log + rate limiting; empty falls back to memory
	TokenSecret  string // HMAC secret for access tokens
	TranslateURL string // translation service base URL; empty disables enrichment
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/chitchat.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		TokenSecret:  os.Getenv("TOKEN_SECRET"),
		TranslateURL: os.Getenv("TRANSLATE_URL"),
	}

	// In production, require an explicit token secret and backing stores
	if cfg.Env == "production" {
		if cfg.TokenSecret == "" {
			panic("TOKEN_SECRET is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	if cfg.TokenSecret == "" {
		cfg.TokenSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
