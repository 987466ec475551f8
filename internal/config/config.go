// Package config loads the service configuration.
//
// Configuration comes from an optional YAML file plus a small set of
// JOBMETA_* environment overrides. Defaults are always applied first,
// so an empty file and a missing file behave the same.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meridian-hpc/jobmeta/internal/auth"
	"github.com/meridian-hpc/jobmeta/internal/kvs"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all jobmeta configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig for the HTTP listener.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the attribute store backend.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // memory | sqlite | redis
	Path    string      `yaml:"path"`    // sqlite database file
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig mirrors kvs.RedisConfig in YAML form.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	Database int           `yaml:"database"`
	Prefix   string        `yaml:"prefix"`
	Timeout  time.Duration `yaml:"timeout"`
	PoolSize int           `yaml:"pool_size"`
}

// AuthConfig controls request authorization.
type AuthConfig struct {
	// OwnerID is the instance owner's user id. The owner may read
	// any job's attributes.
	OwnerID uint64 `yaml:"owner_id"`

	// CacheCapacity bounds the guest authorization cache. Zero means
	// the built-in default.
	CacheCapacity int `yaml:"cache_capacity"`
}

// Default returns the default configuration.
func Default() *Config {
	rc := kvs.DefaultRedisConfig("localhost:6379")
	return &Config{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8720",
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    "jobmeta.db",
			Redis: RedisConfig{
				Address:  rc.Address,
				Prefix:   rc.Prefix,
				Timeout:  rc.Timeout,
				PoolSize: rc.PoolSize,
			},
		},
		Auth: AuthConfig{
			OwnerID:       0,
			CacheCapacity: auth.DefaultCacheCapacity,
		},
	}
}

// Load reads the configuration from path, applies environment
// overrides, and validates the result. An empty path skips the file
// and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnv applies JOBMETA_* environment overrides.
func loadEnv(cfg *Config) {
	if v := os.Getenv("JOBMETA_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("JOBMETA_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("JOBMETA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("JOBMETA_REDIS_ADDRESS"); v != "" {
		cfg.Store.Redis.Address = v
	}
	if v := os.Getenv("JOBMETA_OWNER_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Auth.OwnerID = id
		}
	}
}

// Validate reports configuration errors that would otherwise surface
// only at first use.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path required for sqlite backend")
		}
	case BackendRedis:
		if c.Store.Redis.Address == "" {
			return fmt.Errorf("store.redis.address required for redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Auth.CacheCapacity < 0 {
		return fmt.Errorf("auth.cache_capacity must not be negative")
	}
	return nil
}

// RedisOptions converts the YAML form into the kvs backend config.
func (c *Config) RedisOptions() kvs.RedisConfig {
	rc := kvs.DefaultRedisConfig(c.Store.Redis.Address)
	rc.Password = c.Store.Redis.Password
	rc.Database = c.Store.Redis.Database
	if c.Store.Redis.Prefix != "" {
		rc.Prefix = c.Store.Redis.Prefix
	}
	if c.Store.Redis.Timeout > 0 {
		rc.Timeout = c.Store.Redis.Timeout
	}
	if c.Store.Redis.PoolSize > 0 {
		rc.PoolSize = c.Store.Redis.PoolSize
	}
	return rc
}
