package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the service.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL" envDefault:"pollbooth.db"`
	UserHeader      string        `env:"AUTH_USER_HEADER" envDefault:"X-Forwarded-User"`
	AdminUsers      []string      `env:"ADMIN_USERS" envSeparator:","`
	TelegramToken   string        `env:"TELEGRAM_TOKEN"`
	VoteTimeout     time.Duration `env:"VOTE_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// Counter reconcile: daily at ReconcileAt (HH:MM) when set, otherwise
	// every ReconcileInterval. Zero interval disables it.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1h"`
	ReconcileAt       string        `env:"RECONCILE_AT"`
	ReconcileRepair   bool          `env:"RECONCILE_REPAIR" envDefault:"false"`
}

// Load reads an optional .env file (or the given files) and then the
// environment. Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.AdminUsers = normalizeNames(cfg.AdminUsers)

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.UserHeader) == "" {
		return cfg, fmt.Errorf("AUTH_USER_HEADER must not be empty")
	}
	if cfg.VoteTimeout < 0 {
		return cfg, fmt.Errorf("VOTE_TIMEOUT must not be negative")
	}
	if cfg.ReconcileInterval < 0 {
		return cfg, fmt.Errorf("RECONCILE_INTERVAL must not be negative")
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsAdmin reports whether name is listed in ADMIN_USERS, ignoring case and a
// leading @.
func (c Config) IsAdmin(name string) bool {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "@")
	if name == "" {
		return false
	}
	for _, admin := range c.AdminUsers {
		if admin == name {
			return true
		}
	}
	return false
}

// Level parses LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func normalizeNames(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimPrefix(name, "@")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
