package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultSecret = "your-secret-key-change-in-production"

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	JWTSecret   string        `envconfig:"JWT_SECRET" default:"your-secret-key-change-in-production"`
	JWTIssuer   string        `envconfig:"JWT_ISS" default:"warehouse-inventory-api"`
	JWTAudience string        `envconfig:"JWT_AUD" default:"warehouse-inventory-api"`
	JWTExpiry   time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	// StoreDriver is postgres or memory
	StoreDriver string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DBDSN       string        `envconfig:"DB_DSN"`
	SnapshotTTL time.Duration `envconfig:"SNAPSHOT_TTL" default:"2s"`

	EnableMetrics bool   `envconfig:"ENABLE_METRICS" default:"true"`
	EnableSwagger bool   `envconfig:"ENABLE_SWAGGER" default:"false"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`

	// Without REDIS_URL audit sessions live in process memory
	RedisURL        string        `envconfig:"REDIS_URL"`
	AuditSessionTTL time.Duration `envconfig:"AUDIT_SESSION_TTL" default:"12h"`

	SupabaseURL       string `envconfig:"SUPABASE_URL"`
	SupabaseKey       string `envconfig:"SUPABASE_KEY"`
	SupabaseBucket    string `envconfig:"SUPABASE_BUCKET" default:"inventory-images"`
	PhotoLocalDir     string `envconfig:"PHOTO_LOCAL_DIR" default:"images"`
	PhotoMaxDimension int    `envconfig:"PHOTO_MAX_DIMENSION" default:"1024"`

	GotenbergURL  string `envconfig:"GOTENBERG_URL"`
	ImportMapping string `envconfig:"IMPORT_MAPPING"`

	BootstrapAdminUser     string `envconfig:"BOOTSTRAP_ADMIN_USER"`
	BootstrapAdminPassword string `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the environment, after merging a local .env file when present.
// Variables already set win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}

// LoadAndValidate loads the configuration and rejects unusable settings
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the token and storage settings
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.IsProduction() && c.JWTSecret == defaultSecret {
		return errors.New("JWT_SECRET must be changed in production")
	}
	if c.JWTIssuer == "" {
		return errors.New("JWT_ISS is required")
	}
	if c.JWTAudience == "" {
		return errors.New("JWT_AUD is required")
	}
	if c.JWTExpiry < time.Minute {
		return fmt.Errorf("JWT_EXPIRY must be at least 1m, got %v", c.JWTExpiry)
	}
	if c.JWTExpiry > 30*24*time.Hour {
		return fmt.Errorf("JWT_EXPIRY must be at most 720h, got %v", c.JWTExpiry)
	}

	switch c.StoreDriver {
	case "postgres":
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required when STORE_DRIVER=postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}

	if c.PhotoMaxDimension < 16 {
		return fmt.Errorf("PHOTO_MAX_DIMENSION must be at least 16, got %d", c.PhotoMaxDimension)
	}
	if c.AuditSessionTTL < 0 {
		return errors.New("AUDIT_SESSION_TTL cannot be negative")
	}
	if (c.BootstrapAdminUser == "") != (c.BootstrapAdminPassword == "") {
		return errors.New("BOOTSTRAP_ADMIN_USER and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return lvl, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
