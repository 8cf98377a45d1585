// ABOUTME: Configuration loading and parsing for manga-admin
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "MANGA_ADMIN_CONFIG"

// Session store backends
const (
	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"
)

// Config represents the complete manga-admin configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Tailscale   TailscaleConfig   `yaml:"tailscale" toml:"tailscale"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	Auth        AuthConfig        `yaml:"auth" toml:"auth"`
	Notify      NotifyConfig      `yaml:"notify" toml:"notify"`
	Idempotency IdempotencyConfig `yaml:"idempotency" toml:"idempotency"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// ServerConfig holds listener addresses and browser access rules
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// GRPCAddr serves the standard gRPC health service when set
	GRPCAddr    string   `yaml:"grpc_addr,omitempty" toml:"grpc_addr"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" toml:"cors_origins"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname,omitempty" toml:"hostname"`
	AuthKey   string `yaml:"auth_key,omitempty" toml:"auth_key"`
	StateDir  string `yaml:"state_dir,omitempty" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral,omitempty" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https,omitempty" toml:"https"`   // serve TLS on :443 with the tailnet cert
	Funnel    bool   `yaml:"funnel,omitempty" toml:"funnel"` // expose publicly (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" (pure Go) or "sqlite3" (cgo)
	Path   string `yaml:"path" toml:"path"`
	// Seed writes demo data into empty tables at startup. Defaults to true.
	Seed *bool `yaml:"seed,omitempty" toml:"seed"`
}

// SeedEnabled reports whether demo data should be seeded.
func (d DatabaseConfig) SeedEnabled() bool {
	return d.Seed == nil || *d.Seed
}

// AuthConfig holds dashboard login configuration
type AuthConfig struct {
	AdminUsername string `yaml:"admin_username" toml:"admin_username"`
	AdminPassword string `yaml:"admin_password,omitempty" toml:"admin_password"`

	SessionTTL    time.Duration `yaml:"-" toml:"-"`
	SessionTTLRaw string        `yaml:"session_ttl" toml:"session_ttl"`

	// Cookie keys are generated per process when empty, which logs everyone out on restart.
	CookieHashKey  string `yaml:"cookie_hash_key,omitempty" toml:"cookie_hash_key"`
	CookieBlockKey string `yaml:"cookie_block_key,omitempty" toml:"cookie_block_key"`

	// JWTSecret enables bearer tokens for the CLI and TUI clients.
	JWTSecret    string `yaml:"jwt_secret,omitempty" toml:"jwt_secret"`
	SessionStore string `yaml:"session_store" toml:"session_store"`

	// BaseURL is the external dashboard URL, used as the WebAuthn relying party origin.
	BaseURL string `yaml:"base_url,omitempty" toml:"base_url"`
}

// NotifyConfig holds notification delivery targets
type NotifyConfig struct {
	Matrix MatrixConfig `yaml:"matrix" toml:"matrix"`
}

// MatrixConfig holds Matrix delivery configuration
type MatrixConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Homeserver  string `yaml:"homeserver,omitempty" toml:"homeserver"`
	UserID      string `yaml:"user_id,omitempty" toml:"user_id"`
	AccessToken string `yaml:"access_token,omitempty" toml:"access_token"`
	RoomID      string `yaml:"room_id,omitempty" toml:"room_id"`
}

// IdempotencyConfig controls replay of mutating requests carrying an Idempotency-Key
type IdempotencyConfig struct {
	TTL        time.Duration `yaml:"-" toml:"-"`
	TTLRaw     string        `yaml:"ttl" toml:"ttl"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultAdminPassword is the static password used when none is configured.
// The server logs a warning while it is in effect.
const DefaultAdminPassword = "admin"

// Default returns the configuration written by `manga-admin init`.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
		Database: DatabaseConfig{
			Path: defaultDataPath("manga-admin.db"),
		},
	}
	applyDefaults(cfg)
	_ = parseDurations(cfg) // defaults always parse
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Write saves cfg to path as YAML, creating parent directories.
// The file is readable only by the owner since it may hold secrets.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Path returns the config file location: $MANGA_ADMIN_CONFIG, then
// $XDG_CONFIG_HOME/manga-admin/config.yaml, then ~/.config/manga-admin/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "manga-admin", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "manga-admin", "config.yaml")
}

// defaultDataPath places files under $XDG_DATA_HOME/manga-admin or ~/.local/share/manga-admin.
func defaultDataPath(name string) string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "manga-admin", name)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "share", "manga-admin", name)
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = "admin"
	}
	if cfg.Auth.AdminPassword == "" {
		cfg.Auth.AdminPassword = DefaultAdminPassword
	}
	if cfg.Auth.SessionTTLRaw == "" {
		cfg.Auth.SessionTTLRaw = "168h"
	}
	if cfg.Auth.SessionStore == "" {
		cfg.Auth.SessionStore = SessionStoreMemory
	}
	if cfg.Idempotency.TTLRaw == "" {
		cfg.Idempotency.TTLRaw = "10m"
	}
	if cfg.Idempotency.MaxEntries == 0 {
		cfg.Idempotency.MaxEntries = 1000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Tailscale.Funnel {
		cfg.Tailscale.HTTPS = true
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale provides the listener
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Auth.SessionStore {
	case SessionStoreMemory, SessionStoreDatabase:
	default:
		return fmt.Errorf("auth.session_store must be memory or database, got %q", c.Auth.SessionStore)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.CookieHashKey != "" && len(c.Auth.CookieHashKey) < 32 {
		return fmt.Errorf("auth.cookie_hash_key must be at least 32 bytes")
	}
	switch len(c.Auth.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("auth.cookie_block_key must be 16, 24 or 32 bytes")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.BaseURL != "" {
		if err := validateHTTPURL(c.Auth.BaseURL); err != nil {
			return fmt.Errorf("auth.base_url %w", err)
		}
	}

	if m := c.Notify.Matrix; m.Enabled {
		if m.Homeserver == "" {
			return fmt.Errorf("notify.matrix.homeserver is required when matrix is enabled")
		}
		if err := validateHTTPURL(m.Homeserver); err != nil {
			return fmt.Errorf("notify.matrix.homeserver %w", err)
		}
		if m.UserID == "" {
			return fmt.Errorf("notify.matrix.user_id is required when matrix is enabled")
		}
		if m.AccessToken == "" {
			return fmt.Errorf("notify.matrix.access_token is required when matrix is enabled")
		}
		if m.RoomID == "" {
			return fmt.Errorf("notify.matrix.room_id is required when matrix is enabled")
		}
	}

	if c.Idempotency.MaxEntries < 0 {
		return fmt.Errorf("idempotency.max_entries must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.SessionTTLRaw != "" {
		cfg.Auth.SessionTTL, err = time.ParseDuration(cfg.Auth.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Auth.SessionTTLRaw, err)
		}
	}

	if cfg.Idempotency.TTLRaw != "" {
		cfg.Idempotency.TTL, err = time.ParseDuration(cfg.Idempotency.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing idempotency ttl %q: %w", cfg.Idempotency.TTLRaw, err)
		}
	}

	return nil
}
