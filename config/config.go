// Package config loads runtime settings from the environment.
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

	"github.com/vainnor/pomobot/db"
)

// Config holds everything the bot needs to run.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	GuildID  string `env:"POMO_GUILD_ID"`
	ModRole  string `env:"POMO_MOD_ROLE" envDefault:"mods"`

	DBDriver string `env:"POMO_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"POMO_DB_DSN"`

	// Postgres connection parts, used when POMO_DB_DSN is empty.
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`

	AccrualInterval time.Duration `env:"POMO_ACCRUAL_INTERVAL" envDefault:"1m"`
	RetryDelay      time.Duration `env:"POMO_RETRY_DELAY" envDefault:"30s"`
	HTTPAddr        string        `env:"POMO_HTTP_ADDR" envDefault:":8080"`
	MasterKey       string        `env:"MASTER_API_KEY"`
	LogLevel        string        `env:"POMO_LOG_LEVEL" envDefault:"info"`
}

const defaultSQLitePath = "user_times.db"

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.AccrualInterval <= 0 || c.AccrualInterval%time.Minute != 0 {
		return fmt.Errorf("accrual interval must be a positive whole number of minutes, got %s", c.AccrualInterval)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %s", c.RetryDelay)
	}
	if c.DBDriver == db.DriverPostgres && c.DBDSN == "" && c.DBName == "" {
		return errors.New("postgres requires POMO_DB_DSN or DB_NAME")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == db.DriverPostgres {
		return db.DSNFromParts(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	return defaultSQLitePath
}

// Level maps LogLevel onto a slog level. Unknown values yield info.
func (c Config) Level() slog.Level {
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
