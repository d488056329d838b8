package shire

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a shire site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "The Shire")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD
	Email       string `yaml:"email"`       // Shown on the contact page

	Addr           string `yaml:"addr"`            // Listen address (default ":3000")
	DatabaseDriver string `yaml:"database_driver"` // "sqlite" (default) or "pgx"
	DatabaseURL    string `yaml:"database_url"`    // SQLite path or Postgres DSN (default "data/shire.db")

	AdminPassword  string `yaml:"admin_password"`  // Required: admin login password
	AdminUserID    string `yaml:"admin_user_id"`   // User id the password login maps to (default "admin")
	AdminEmail     string `yaml:"admin_email"`
	SessionSecret  string `yaml:"session_secret"`  // Required: session encryption secret
	IdentitySecret string `yaml:"identity_secret"` // HS256 key for bearer tokens; empty disables them
	LoginURL       string `yaml:"login_url"`       // Where /api/login sends visitors (default "/admin/")
	CookieSecure   bool   `yaml:"cookie_secure"`   // Set true for HTTPS

	PostCacheTTL time.Duration `yaml:"post_cache_ttl"` // Post cache TTL (default 5min)
	PostsPerPage int           `yaml:"posts_per_page"` // Blog page size (default 6)

	LogLevel  string `yaml:"log_level"`  // zerolog level name (default "info")
	LogFormat string `yaml:"log_format"` // "console" or "json" (default "console")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "The Shire"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = DriverSQLite
	}
	if c.DatabaseURL == "" && c.DatabaseDriver == DriverSQLite {
		c.DatabaseURL = "data/shire.db"
	}
	if c.AdminUserID == "" {
		c.AdminUserID = "admin"
	}
	if c.LoginURL == "" {
		c.LoginURL = "/admin/"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 6
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Validate checks the settings the server cannot start without.
func (c SiteConfig) Validate() error {
	return validationError(validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required, is.URL),
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DatabaseDriver, validation.Required, validation.In(DriverSQLite, DriverPgx)),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.AdminPassword, validation.Required),
		validation.Field(&c.SessionSecret, validation.Required),
		validation.Field(&c.AdminEmail, is.EmailFormat),
		validation.Field(&c.PostsPerPage, validation.Min(1)),
		validation.Field(&c.LogFormat, validation.In("console", "json")),
	))
}

// LoadConfig reads an optional YAML file and applies SHIRE_* environment
// overrides on top. A .env file in the working directory is loaded first.
// A missing path is not an error.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("shire: read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("shire: parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup("SHIRE_" + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("NAME", &c.Name)
	str("URL", &c.URL)
	str("DESCRIPTION", &c.Description)
	str("AUTHOR", &c.Author)
	str("EMAIL", &c.Email)
	str("ADDR", &c.Addr)
	str("DATABASE_DRIVER", &c.DatabaseDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	str("ADMIN_PASSWORD", &c.AdminPassword)
	str("ADMIN_USER_ID", &c.AdminUserID)
	str("ADMIN_EMAIL", &c.AdminEmail)
	str("SESSION_SECRET", &c.SessionSecret)
	str("IDENTITY_SECRET", &c.IdentitySecret)
	str("LOGIN_URL", &c.LoginURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup("SHIRE_COOKIE_SECURE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("shire: SHIRE_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v, ok := lookup("SHIRE_POST_CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("shire: SHIRE_POST_CACHE_TTL: %w", err)
		}
		c.PostCacheTTL = d
	}
	if v, ok := lookup("SHIRE_POSTS_PER_PAGE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("shire: SHIRE_POSTS_PER_PAGE: %w", err)
		}
		c.PostsPerPage = n
	}
	return nil
}

// NewLogger builds the application logger described by cfg.
func NewLogger(cfg SiteConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStore uses an already opened store instead of opening one from the config.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Logger = l
		a.loggerSet = true
	}
}
