package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Supabase
	SupabaseURL           string `env:"SUPABASE_URL"`
	SupabaseServiceKey    string `env:"SUPABASE_SERVICE_KEY"`
	SupabaseJWTSecret     string `env:"SUPABASE_JWT_SECRET"`
	SupabaseStorageBucket string `env:"SUPABASE_STORAGE_BUCKET" envDefault:"design-deliveries"`
	SignedURLTTLSeconds   int    `env:"SIGNED_URL_TTL_SECONDS" envDefault:"3600"`

	// Edge function that fans admin notifications out
	NotifyFunctionName string        `env:"NOTIFY_FUNCTION_NAME" envDefault:"notify-admins"`
	NotifyTimeout      time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Server
	Port               string   `env:"PORT" envDefault:"8080"`
	Environment        string   `env:"ENVIRONMENT" envDefault:"development"`
	BaseURL            string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	// Admin delivery uploads, whole request body
	MaxDeliveryUploadBytes int64 `env:"MAX_DELIVERY_UPLOAD_BYTES" envDefault:"67108864"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SignedURLTTLSeconds <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL_SECONDS must be positive")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}
	if c.MaxDeliveryUploadBytes <= 0 {
		return fmt.Errorf("MAX_DELIVERY_UPLOAD_BYTES must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
