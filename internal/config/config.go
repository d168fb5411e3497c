// Package config loads runtime settings from .env.local, an optional YAML
// file and PETMATCH_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the full client configuration.
type Config struct {
	Addr       string        `yaml:"addr"`
	WebDir     string        `yaml:"web_dir"`
	BackendURL string        `yaml:"backend_url"`
	Timeout    time.Duration `yaml:"backend_timeout"`
	LogLevel   string        `yaml:"log_level"`

	// DiscardExpired drops a restored session whose token has expired.
	DiscardExpired bool `yaml:"discard_expired"`
	// LoginRate is the sustained login submissions per minute; LoginBurst the burst.
	LoginRate  float64 `yaml:"login_rate"`
	LoginBurst int     `yaml:"login_burst"`

	Storage StorageConfig `yaml:"storage"`
	OIDC    OIDCConfig    `yaml:"oidc"`
}

// StorageConfig selects and configures the durable session storage.
type StorageConfig struct {
	Driver    string        `yaml:"driver"`
	Path      string        `yaml:"path"`
	DSN       string        `yaml:"dsn"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	Namespace string        `yaml:"namespace"`
	Timeout   time.Duration `yaml:"timeout"`
}

// OIDCConfig enables single sign-on when Issuer is set.
type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	RoleClaim    string `yaml:"role_claim"`
	UserIDClaim  string `yaml:"user_id_claim"`
}

// Enabled reports whether single sign-on is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != ""
}

// Default returns the built-in configuration.
func Default() Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return Config{
		Addr:       "127.0.0.1:3000",
		WebDir:     "web",
		BackendURL: "http://127.0.0.1:5000/api",
		Timeout:    30 * time.Second,
		LogLevel:   "info",
		LoginRate:  10,
		LoginBurst: 5,
		Storage: StorageConfig{
			Driver:    DriverSQLite,
			Path:      filepath.Join(dir, "petmatch", "session.db"),
			Namespace: "default",
			Timeout:   5 * time.Second,
		},
		OIDC: OIDCConfig{
			RoleClaim:   "role",
			UserIDClaim: "user_id",
		},
	}
}

// Load builds the configuration. A missing .env.local or YAML file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")

	cfg := Default()
	if path := os.Getenv("PETMATCH_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PETMATCH_ADDR", &c.Addr)
	str("PETMATCH_WEB_DIR", &c.WebDir)
	str("PETMATCH_BACKEND_URL", &c.BackendURL)
	str("PETMATCH_LOG_LEVEL", &c.LogLevel)
	str("PETMATCH_STORAGE_DRIVER", &c.Storage.Driver)
	str("PETMATCH_STORAGE_PATH", &c.Storage.Path)
	str("PETMATCH_STORAGE_DSN", &c.Storage.DSN)
	str("PETMATCH_STORAGE_ADDR", &c.Storage.Addr)
	str("PETMATCH_STORAGE_PASSWORD", &c.Storage.Password)
	str("PETMATCH_STORAGE_NAMESPACE", &c.Storage.Namespace)
	str("PETMATCH_OIDC_ISSUER", &c.OIDC.Issuer)
	str("PETMATCH_OIDC_CLIENT_ID", &c.OIDC.ClientID)
	str("PETMATCH_OIDC_CLIENT_SECRET", &c.OIDC.ClientSecret)
	str("PETMATCH_OIDC_REDIRECT_URL", &c.OIDC.RedirectURL)

	if v := getenv("PETMATCH_DISCARD_EXPIRED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PETMATCH_DISCARD_EXPIRED: %w", err)
		}
		c.DiscardExpired = b
	}
	if v := getenv("PETMATCH_BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PETMATCH_BACKEND_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.BackendURL == "" {
		errs = append(errs, errors.New("backend_url is required"))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	case DriverRedis:
		if c.Storage.Addr == "" {
			errs = append(errs, errors.New("storage.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, errors.New("login_rate and login_burst must be positive"))
	}
	if c.OIDC.Enabled() {
		if c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "" {
			errs = append(errs, errors.New("oidc.client_id and oidc.redirect_url are required when oidc.issuer is set"))
		}
		if c.OIDC.RoleClaim == "" || c.OIDC.UserIDClaim == "" {
			errs = append(errs, errors.New("oidc.role_claim and oidc.user_id_claim must not be empty"))
		}
	}
	return errors.Join(errs...)
}
