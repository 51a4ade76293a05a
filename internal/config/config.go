package config

import (
	"fmt"
	"os"
	"strconv"
)

// Port is fixed; clients and reverse proxies depend on it.
const Port = "3000"

type Config struct {
	Port          string `env:"PORT"`
	LogLevel      string `env:"LOG_LEVEL"`
	DatabaseURL   string `env:"DATABASE_URL,secret"`
	RedisURL      string `env:"REDIS_URL,secret"`
	JWTSecret     string `env:"JWT_SECRET,secret"`
	AccessExpiry  int64  `env:"ACCESS_TOKEN_EXPIRY"`  // seconds
	RefreshExpiry int64  `env:"REFRESH_TOKEN_EXPIRY"` // seconds
}

// Load loads configuration from environment variables.
// DATABASE_URL, JWT_SECRET and the two token expiries are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        Port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   os.Getenv("JWT_SECRET"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	var err error
	cfg.AccessExpiry, err = getEnvInt64("ACCESS_TOKEN_EXPIRY")
	if err != nil {
		return nil, err
	}
	cfg.RefreshExpiry, err = getEnvInt64("REFRESH_TOKEN_EXPIRY")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string) (int64, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return 0, fmt.Errorf("%s must be set", key)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
