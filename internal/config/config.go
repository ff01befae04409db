// Package config loads server settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. It is only fit for
// local development.
const DevJWTSecret = "resource-hub-dev-secret-change-me"

const minSecretLen = 16

// Blob backends.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

type Config struct {
	Addr           string        `env:"ADDR" envDefault:":8000"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/resources.db"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	MasterPass     string        `env:"MASTER_PASSPHRASE"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"`

	BlobBackend string `env:"BLOB_BACKEND" envDefault:"fs"`
	UploadDir   string `env:"UPLOAD_DIR" envDefault:"resource_storage"`
	S3          S3

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepGrace    time.Duration `env:"SWEEP_GRACE" envDefault:"24h"`

	GitHub      GitHub
	FrontendURL string `env:"FRONTEND_URL" envDefault:"/"`

	// UsingDevSecret is set when JWTSecret fell back to DevJWTSecret.
	UsingDevSecret bool `env:"-"`
}

type S3 struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
}

type GitHub struct {
	ClientID     string `env:"GITHUB_CLIENT_ID"`
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads .env (if present), then the environment, then args. args
// excludes the program name, as in os.Args[1:].
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("resource-hub", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database file")
	fs.StringVar(&cfg.BlobBackend, "blob-backend", cfg.BlobBackend, "blob storage backend: fs, s3 or memory")
	fs.StringVar(&cfg.UploadDir, "upload-dir", cfg.UploadDir, "directory for the fs blob backend")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "orphan sweep interval, 0 disables")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
		cfg.UsingDevSecret = true
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = "http://localhost" + cfg.Addr + "/auth/github/callback"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.BlobBackend {
	case BackendFS:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("UPLOAD_DIR is required for the fs backend"))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}

	if len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.SweepInterval < 0 || c.SweepGrace < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL and SWEEP_GRACE must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
