package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting of the server, read from the environment.
type Config struct {
	ServerPort int `env:"SERVER_PORT" envDefault:"8080"`

	SessionSecretKey     string        `env:"SESSION_SECRET_KEY"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SessionTokenTTL      time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`

	BracketPolicy brackets.Policy `env:"BRACKET_POLICY" envDefault:"prelim"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel           string   `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present; variables already set win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if strings.TrimSpace(c.SessionSecretKey) == "" {
		return fmt.Errorf("SESSION_SECRET_KEY environment variable is not set")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL)
	}
	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be positive, got %s", c.SessionTokenTTL)
	}
	if c.SessionSweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive, got %s", c.SessionSweepInterval)
	}
	if _, err := brackets.NewGenerator(c.BracketPolicy); err != nil {
		return fmt.Errorf("BRACKET_POLICY: %w", err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
