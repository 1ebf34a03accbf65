/**
 * @description
 * Configuration loader for the PriceScout Backend.
 * Responsible for reading environment variables, setting defaults, and performing strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - standard "os": For reading env vars
 * - standard "fmt": For error reporting
 *
 * @notes
 * - Fails fast if critical variables (Database URL, Keepa API key) are missing.
 *   A missing credential must abort the process before any network activity.
 * - Uses a Singleton-like pattern where Load() returns a Config struct.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Keepa  KeepaConfig
	Sync   SyncConfig
	Admin  AdminConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// KeepaConfig holds the product-data provider endpoint, credentials and token economics
type KeepaConfig struct {
	APIURL string
	APIKey string
	// DailyTokenBudget is the hard allowance of billable API tokens per calendar day.
	DailyTokenBudget int
	// RefillRatePerMinute is how many tokens the provider restores per minute,
	// used to compute how long to sleep when the budget runs dry.
	RefillRatePerMinute int
}

// SyncConfig holds tunables for the refresh/discovery engine
type SyncConfig struct {
	Country string // default storefront country ("de", "us", ...)
	// BatchSize caps how many stale products one refresh cycle pulls from the DB.
	BatchSize int
	// RestInterval is the pause between cycles in continuous mode.
	RestInterval time.Duration
	// DiscoveryTarget is how many new candidates a discovery pass aims for per category.
	DiscoveryTarget int
}

// AdminConfig holds credentials for the protected admin endpoints
type AdminConfig struct {
	JWTSecret string
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (prod might inject env vars directly)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Keepa: KeepaConfig{
			APIURL:              getEnv("KEEPA_API_URL", "https://api.keepa.com"),
			APIKey:              sanitizeCredential(getEnv("KEEPA_API_KEY", "")),
			DailyTokenBudget:    getEnvAsInt("KEEPA_DAILY_TOKEN_BUDGET", 4320),
			RefillRatePerMinute: getEnvAsInt("KEEPA_REFILL_RATE", 3),
		},
		Sync: SyncConfig{
			Country:         getEnv("SYNC_COUNTRY", "de"),
			BatchSize:       getEnvAsInt("SYNC_BATCH_SIZE", 500),
			RestInterval:    time.Duration(getEnvAsInt("SYNC_REST_MINUTES", 15)) * time.Minute,
			DiscoveryTarget: getEnvAsInt("SYNC_DISCOVERY_TARGET", 50),
		},
		Admin: AdminConfig{
			JWTSecret: sanitizeCredential(getEnv("ADMIN_JWT_SECRET", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Keepa.APIKey == "" {
		return fmt.Errorf("KEEPA_API_KEY is required")
	}
	if cfg.Admin.JWTSecret == "" && cfg.Server.Env != "test" {
		// Warning: strictly required for the protected trigger endpoints
		fmt.Println("Warning: ADMIN_JWT_SECRET is missing. Admin endpoints will reject all requests.")
	}
	return nil
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func sanitizeCredential(value string) string {
	trimmed := strings.TrimSpace(value)
	return strings.Trim(trimmed, "\"")
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
