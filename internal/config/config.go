package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string
	DBDSN        string
	BotToken     string
	JWTSecret    string
	JWTTokenTTL  time.Duration
	PollTimeout  int
	AllowedUsers []int64
	AdminUsers   map[int64]string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address for the operator API (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// Bot token is required to reach the chat transport
	cfg.BotToken = os.Getenv("BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	// JWT secret is required to validate operator tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Operator token TTL, parse as time.Duration (e.g. "15m", "1h").
	ttlStr := getEnv("JWT_TOKEN_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TOKEN_TTL: %w", err)
	}
	cfg.JWTTokenTTL = ttl

	// Long-poll timeout for the chat transport, in seconds (default: 30)
	cfg.PollTimeout, err = getEnvAsInt("POLL_TIMEOUT", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_TIMEOUT: %w", err)
	}

	// Allowlist of chat user ids, JSON array (e.g. [123,456])
	cfg.AllowedUsers, err = getEnvAsInt64Slice("ALLOWED_USERS")
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOWED_USERS: %w", err)
	}

	// Administrator directory, JSON object of id to display name
	// (e.g. {"123":"Alice"})
	cfg.AdminUsers, err = getEnvAsInt64Map("ADMIN_USERS")
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_USERS: %w", err)
	}
	if len(cfg.AdminUsers) == 0 {
		return nil, fmt.Errorf("ADMIN_USERS must name at least one administrator")
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsInt64Slice parses a JSON array of integers from the environment.
// An unset variable yields an empty slice.
func getEnvAsInt64Slice(key string) ([]int64, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return nil, nil
	}

	var out []int64
	if err := json.Unmarshal([]byte(valStr), &out); err != nil {
		return nil, fmt.Errorf("env %s is not a JSON array of integers: %w", key, err)
	}
	return out, nil
}

// getEnvAsInt64Map parses a JSON object of id to name from the environment.
// JSON object keys are strings, so ids are converted after decoding.
func getEnvAsInt64Map(key string) (map[int64]string, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return nil, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(valStr), &raw); err != nil {
		return nil, fmt.Errorf("env %s is not a JSON object: %w", key, err)
	}

	out := make(map[int64]string, len(raw))
	for idStr, name := range raw {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("env %s key %q is not a valid id: %w", key, idStr, err)
		}
		out[id] = name
	}
	return out, nil
}
