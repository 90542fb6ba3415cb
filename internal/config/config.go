// Package config handles loading and managing catalogview configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes environment overrides, e.g. CATALOGVIEW_URL.
const EnvPrefix = "CATALOGVIEW"

// Config represents the catalogview configuration.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	List    ListConfig    `toml:"list"`
	Data    DataConfig    `toml:"data"`
	Sync    SyncConfig    `toml:"sync"`
	Server  ServerConfig  `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// CatalogConfig holds the catalog API connection. Every field can be
// overridden from the environment.
type CatalogConfig struct {
	URL            string  `toml:"url" envconfig:"URL"`
	Token          string  `toml:"token" envconfig:"TOKEN"`
	AllowInsecure  bool    `toml:"allow_insecure" envconfig:"ALLOW_INSECURE"`
	TimeoutSeconds int     `toml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS" validate:"gte=0"`
	RateLimitQPS   float64 `toml:"rate_limit_qps" envconfig:"RATE_LIMIT_QPS" validate:"gte=0"`
	// Standalone deployments embed portfolio item data in orders.
	Standalone bool `toml:"standalone" envconfig:"STANDALONE"`
}

// ListConfig tunes list views.
type ListConfig struct {
	DebounceMS   int  `toml:"debounce_ms" validate:"gte=0,lte=60000"`
	PageSize     int  `toml:"page_size" validate:"gte=1,lte=1000"`
	DiscardStale bool `toml:"discard_stale"`
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// SyncConfig holds mirror sync configuration.
type SyncConfig struct {
	Schedule string `toml:"schedule"` // Cron expression (e.g., "*/15 * * * *")
	PageSize int    `toml:"page_size" validate:"gte=1,lte=1000"`
}

// ServerConfig holds the local API server configuration.
type ServerConfig struct {
	BindAddr string `toml:"bind_addr"`
	Port     int    `toml:"port" validate:"gte=1,lte=65535"`
	Token    string `toml:"token"`
	// RateLimitRPS is the per-client request rate; 0 disables limiting.
	RateLimitRPS float64 `toml:"rate_limit_rps" validate:"gte=0"`
}

// IsLoopback reports whether the server binds to a loopback address.
func (s ServerConfig) IsLoopback() bool {
	if s.BindAddr == "" || s.BindAddr == "localhost" {
		return true
	}
	ip := net.ParseIP(s.BindAddr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the server beyond loopback without
// a token.
func (s ServerConfig) ValidateSecure() error {
	if s.Token == "" && !s.IsLoopback() {
		return fmt.Errorf("refusing to bind %s without [server] token", s.BindAddr)
	}
	return nil
}

// DefaultHome returns the default catalogview home directory.
// Respects CATALOGVIEW_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CATALOGVIEW_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".catalogview"
	}
	return filepath.Join(home, ".catalogview")
}

// NewDefaultConfig returns a configuration with default values.
func NewDefaultConfig() *Config {
	homeDir := DefaultHome()
	return &Config{
		HomeDir: homeDir,
		Catalog: CatalogConfig{
			TimeoutSeconds: 30,
		},
		List: ListConfig{
			DebounceMS:   1000,
			PageSize:     50,
			DiscardStale: true,
		},
		Data: DataConfig{
			DataDir: homeDir,
		},
		Sync: SyncConfig{
			PageSize: 100,
		},
		Server: ServerConfig{
			BindAddr:     "127.0.0.1",
			Port:         8181,
			RateLimitRPS: 10,
		},
	}
}

// Load reads the configuration from the specified file, then applies
// environment overrides. If path is empty, uses the default location
// (~/.catalogview/config.toml); a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.HomeDir, "config.toml")
	}
	path = expandPath(path)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, fmt.Errorf("config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg.Catalog); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	// Expand ~ in paths
	cfg.Data.DataDir = expandPath(cfg.Data.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s must satisfy %s=%s (got %v)",
				fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath returns the path to the SQLite mirror.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.DataDir, "catalog.db")
}

// LogsDir returns the directory interactive commands log to.
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// Timeout returns the catalog request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

// DebounceWait returns the filter debounce window.
func (c *Config) DebounceWait() time.Duration {
	return time.Duration(c.List.DebounceMS) * time.Millisecond
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
