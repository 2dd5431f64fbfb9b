// Package config loads the landflux run configuration: a TOML base file, an
// optional environment overlay and LANDFLUX_* environment overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/landflux/pkg/database"
	"github.com/JaimeStill/landflux/pkg/storage"
)

const (
	BaseConfigFile       = "landflux.toml"
	OverlayConfigPattern = "landflux.%s.toml"

	EnvLandfluxEnv             = "LANDFLUX_ENV"
	EnvLandfluxShutdownTimeout = "LANDFLUX_SHUTDOWN_TIMEOUT"
	EnvLandfluxVersion         = "LANDFLUX_VERSION"
)

var databaseEnv = &database.Env{
	Enabled:         "LANDFLUX_DB_ENABLED",
	Driver:          "LANDFLUX_DB_DRIVER",
	Path:            "LANDFLUX_DB_PATH",
	Host:            "LANDFLUX_DB_HOST",
	Port:            "LANDFLUX_DB_PORT",
	Name:            "LANDFLUX_DB_NAME",
	User:            "LANDFLUX_DB_USER",
	Password:        "LANDFLUX_DB_PASSWORD",
	SSLMode:         "LANDFLUX_DB_SSL_MODE",
	MaxOpenConns:    "LANDFLUX_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LANDFLUX_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LANDFLUX_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LANDFLUX_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "LANDFLUX_STORAGE_PROVIDER",
	Root:             "LANDFLUX_STORAGE_ROOT",
	ContainerName:    "LANDFLUX_STORAGE_CONTAINER_NAME",
	ConnectionString: "LANDFLUX_STORAGE_CONNECTION_STRING",
	AccountURL:       "LANDFLUX_STORAGE_ACCOUNT_URL",
}

// Config is the root configuration of a landflux run.
type Config struct {
	Analysis        AnalysisConfig    `toml:"analysis"`
	Layers          LayersConfig      `toml:"layers"`
	Zones           ZonesConfig       `toml:"zones"`
	Communities     CommunitiesConfig `toml:"communities"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Runs            RunsConfig        `toml:"runs"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the LANDFLUX_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLandfluxEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config at path (BaseConfigFile when empty, skipped if
// absent), applies the environment overlay found beside it, and finalizes
// all values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = BaseConfigFile
	}

	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(path); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Analysis.Merge(&overlay.Analysis)
	c.Layers.Merge(&overlay.Layers)
	c.Zones.Merge(&overlay.Zones)
	c.Communities.Merge(&overlay.Communities)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Runs.Merge(&overlay.Runs)
}

// Finalize applies defaults, environment overrides and validation to every
// section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Analysis.Finalize(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Layers.Finalize(); err != nil {
		return fmt.Errorf("layers: %w", err)
	}
	if err := c.Zones.Finalize("LANDFLUX_ZONES"); err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	if err := c.Communities.Finalize(); err != nil {
		return fmt.Errorf("communities: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Runs.Finalize(); err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	return nil
}

// Write encodes the finalized configuration as TOML. Runs publish it beside
// their outputs.
func (c *Config) Write(w io.Writer) error {
	snapshot := *c
	snapshot.Database.Password = ""
	snapshot.Storage.ConnectionString = ""

	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLandfluxShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLandfluxVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	if env := os.Getenv(EnvLandfluxEnv); env != "" {
		path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
