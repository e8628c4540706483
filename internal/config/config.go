package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port              string
	AllowedOrigins    []string
	LogLevel          string
	Environment       string
	SupabaseURL       string
	SupabaseAnonKey   string
	DatabaseURL       string // Direct Postgres URL for self-hosted mode
	RedisURL          string
	MaxVotesPerUser   int           // Standing-vote budget within the current contest
	ReconcileDelay    time.Duration // Delay before the authoritative gallery refetch after a vote toggle
	LocalStatePath    string        // File backing viewed markers and cookie consent
	ResetRedirectPath string        // Path of the password-reset page
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Environment:       getEnv("ENVIRONMENT", "production"),
		SupabaseURL:       getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		MaxVotesPerUser:   getIntEnv("MAX_VOTES_PER_CONTEST", 3),
		ReconcileDelay:    time.Duration(getIntEnv("RECONCILE_DELAY_MS", 200)) * time.Millisecond,
		LocalStatePath:    getEnv("LOCAL_STATE_PATH", ".storyhub-state.json"),
		ResetRedirectPath: getEnv("RESET_REDIRECT_PATH", "/reset-password"),
		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthRedirectURL:  getEnv("OAUTH_REDIRECT_URL", ""),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
