package config

import (
	"fmt"
	"os"
	"strconv"
)

const defaultJWTExpirationHours = 24

// JWTConfig holds the signing secret and token lifetime for tenant tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS
// (optional, default 24) from the environment.
func NewJWTConfig() (*JWTConfig, error) {
	cfg := &JWTConfig{
		Secret:          os.Getenv("JWT_SECRET"),
		ExpirationHours: defaultJWTExpirationHours,
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	if raw := os.Getenv("JWT_EXPIRATION_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
		}
		if hours < 1 {
			return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1, got %d", hours)
		}
		cfg.ExpirationHours = hours
	}

	return cfg, nil
}
