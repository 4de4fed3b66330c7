package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// Nested keys are separated by a double underscore: HOSTDESK_SERVER__ADDR.
const EnvPrefix = "HOSTDESK_"

// Storage drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverEtcd   = "etcd"
)

// Config represents the application configuration
type Config struct {
	Server                ServerConfig    `koanf:"server"`
	Logging               LoggingConfig   `koanf:"logging"`
	Cache                 CacheConfig     `koanf:"cache"`
	Query                 QueryConfig     `koanf:"query"`
	Storage               StorageConfig   `koanf:"storage"`
	Seed                  SeedConfig      `koanf:"seed"`
	Sync                  SyncConfig      `koanf:"sync"`
	Clusters              []ClusterConfig `koanf:"clusters"`
	SkipUnhealthyClusters bool            `koanf:"skip_unhealthy_clusters"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BasePath        string        `koanf:"base_path"` // Optional base path for reverse proxy (e.g., "/hostdesk")
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// QueryConfig bounds list pagination
type QueryConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// StorageConfig selects and configures the store backend
type StorageConfig struct {
	Driver string       `koanf:"driver"`
	SQLite SQLiteConfig `koanf:"sqlite"`
	Etcd   EtcdConfig   `koanf:"etcd"`
}

// SQLiteConfig represents the SQLite database location
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// EtcdConfig represents etcd connection configuration
type EtcdConfig struct {
	Endpoints   []string      `koanf:"endpoints"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	Prefix      string        `koanf:"prefix"`
	TLS         *TLSConfig    `koanf:"tls"`
}

// SeedConfig controls the generated demo dataset loaded at startup
type SeedConfig struct {
	Enabled bool  `koanf:"enabled"`
	Hosts   int   `koanf:"hosts"`
	Seed    int64 `koanf:"seed"`
}

// SyncConfig controls the periodic Nomad inventory sync
type SyncConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ClusterConfig represents a single Nomad cluster configuration
type ClusterConfig struct {
	Name    string     `koanf:"name"`
	Region  string     `koanf:"region"`
	Address string     `koanf:"address"`
	TLS     *TLSConfig `koanf:"tls"`
}

// TLSConfig represents client TLS configuration for Nomad and etcd
type TLSConfig struct {
	CA   string `koanf:"ca"`
	Cert string `koanf:"cert"`
	Key  string `koanf:"key"`
}

// Default returns the configuration used for keys absent from every source
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			TTL: 30 * time.Second,
		},
		Query: QueryConfig{
			DefaultPageSize: 10,
			MaxPageSize:     500,
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			SQLite: SQLiteConfig{Path: "hostdesk.db"},
			Etcd: EtcdConfig{
				DialTimeout: 5 * time.Second,
				Prefix:      "hostdesk/",
			},
		},
		Seed: SeedConfig{
			Enabled: true,
			Hosts:   120,
			Seed:    1,
		},
		Sync: SyncConfig{
			Interval: 5 * time.Minute,
			Timeout:  time.Minute,
		},
	}
}

// Load loads configuration from the specified file and HOSTDESK_ environment
// variables. A missing file is not an error: defaults and environment apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps HOSTDESK_STORAGE__SQLITE__PATH to storage.sqlite.path
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must not be negative")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}

	if c.Query.DefaultPageSize <= 0 || c.Query.MaxPageSize <= 0 {
		return fmt.Errorf("query page sizes must be positive")
	}
	if c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("query.default_page_size must not exceed query.max_page_size")
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite driver")
		}
	case DriverEtcd:
		if len(c.Storage.Etcd.Endpoints) == 0 {
			return fmt.Errorf("storage.etcd.endpoints is required for the etcd driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Seed.Enabled && c.Seed.Hosts <= 0 {
		return fmt.Errorf("seed.hosts must be positive when seeding is enabled")
	}

	for i, cluster := range c.Clusters {
		if cluster.Address == "" {
			return fmt.Errorf("cluster[%d].address is required", i)
		}
		// Name and Region are optional - they will be auto-detected from Nomad API if not specified
	}

	// Validate sync configuration
	if c.Sync.Enabled {
		if len(c.Clusters) == 0 {
			return fmt.Errorf("sync requires at least one cluster")
		}
		if c.Sync.Interval <= 0 {
			return fmt.Errorf("sync.interval must be positive when sync is enabled")
		}
		if c.Sync.Timeout <= 0 {
			return fmt.Errorf("sync.timeout must be positive when sync is enabled")
		}
	}

	return nil
}
