// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"NEWSDESK_DB_PATH" envDefault:"./data/newsdesk.db"`
	ServerHost string `env:"NEWSDESK_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"NEWSDESK_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"NEWSDESK_ENV" envDefault:"development"`
	LogLevel   string `env:"NEWSDESK_LOG_LEVEL" envDefault:"info"`

	// Media storage
	MediaDir      string `env:"NEWSDESK_MEDIA_DIR" envDefault:"./media"`
	MaxUploadSize int64  `env:"NEWSDESK_MAX_UPLOAD_SIZE" envDefault:"10485760"` // bytes

	// Site identity used in preview metadata and canonical URLs
	BaseURL  string `env:"NEWSDESK_BASE_URL" envDefault:"http://localhost:8080"`
	SiteName string `env:"NEWSDESK_SITE_NAME" envDefault:"NewsDesk"`

	// Vulnerability-report contact served at /.well-known/security.txt
	// when set, e.g. "mailto:security@example.com".
	SecurityContact string `env:"NEWSDESK_SECURITY_CONTACT" envDefault:""`

	// Rate limiting (requests per second)
	APIRateLimit    float64 `env:"NEWSDESK_API_RATE_LIMIT" envDefault:"20"`    // per API key
	PublicRateLimit float64 `env:"NEWSDESK_PUBLIC_RATE_LIMIT" envDefault:"10"` // per client IP

	// Seeding configuration
	DoSeed bool `env:"NEWSDESK_DO_SEED" envDefault:"false"` // Insert default author/category when empty
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// SlogLevel maps the configured log level to its slog value.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.ServerPort < 1 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("NEWSDESK_SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}

	switch cfg.Env {
	case "development", "production", "test":
	default:
		return nil, fmt.Errorf("NEWSDESK_ENV must be development, production or test, got %q", cfg.Env)
	}

	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("NEWSDESK_MAX_UPLOAD_SIZE must be positive, got %d", cfg.MaxUploadSize)
	}
	if cfg.APIRateLimit <= 0 || cfg.PublicRateLimit <= 0 {
		return nil, fmt.Errorf("rate limits must be positive")
	}

	// A trailing slash on the base URL breaks naive concatenation.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}
