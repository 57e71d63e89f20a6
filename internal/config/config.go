// Package config loads server settings from the environment.
//
// Values come from real environment variables first. Any .env files passed
// to Load fill in variables that are not already set, which keeps local
// development simple without letting a stray file override production.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port int    `env:"PORT" envDefault:"8000"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	// DBDriver is "sqlite" or "postgres".
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"data/vidtube.db"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`
	CookieSecure       bool          `env:"COOKIE_SECURE" envDefault:"true"`

	// CORSOrigins are sent back with credentials allowed, so wildcards are
	// rejected by Validate.
	CORSOrigins []string `env:"CORS_ORIGIN" envSeparator:"," envDefault:"http://localhost:5173"`

	// StorageDriver is "local" or "cloudinary".
	StorageDriver  string `env:"STORAGE_DRIVER" envDefault:"local"`
	CloudinaryURL  string `env:"CLOUDINARY_URL"`
	MediaDir       string `env:"MEDIA_DIR" envDefault:"data/media"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
	StagingDir     string `env:"STAGING_DIR" envDefault:"data/staging"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"536870912"`

	ProbeEnabled  bool   `env:"PROBE_ENABLED" envDefault:"false"`
	ProbeImage    string `env:"PROBE_IMAGE" envDefault:"jrottenberg/ffmpeg:6.1-alpine"`
	ProbePoolSize int    `env:"PROBE_POOL_SIZE" envDefault:"2"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	HistoryLimit int `env:"HISTORY_LIMIT" envDefault:"100"`
}

// Load reads the given .env files (missing ones are skipped) and parses the
// environment into a Config.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}

	switch c.StorageDriver {
	case "local":
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return errors.New("config: CLOUDINARY_URL is required when STORAGE_DRIVER=cloudinary")
		}
	default:
		return fmt.Errorf("config: STORAGE_DRIVER must be local or cloudinary, got %q", c.StorageDriver)
	}

	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	for _, origin := range c.CORSOrigins {
		if strings.Contains(origin, "*") {
			return fmt.Errorf("config: CORS_ORIGIN must list explicit origins, got %q", origin)
		}
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("config: HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

// GitHubEnabled reports whether OAuth login should be mounted.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
