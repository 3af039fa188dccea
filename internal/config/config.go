package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/claude/mapty/internal/workout"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Map       MapConfig       `yaml:"map"`
	View      ViewConfig      `yaml:"view"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// WebDir, when set, is served as the browser front-end.
	WebDir string `yaml:"web_dir"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the SQLite file for the sqlite driver.
	Path string `yaml:"path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type MapConfig struct {
	Zoom       int `yaml:"zoom"`
	FitPadding int `yaml:"fit_padding"`
	// Home skips the browser position fix and centres the map here.
	Home *workout.Coordinates `yaml:"home"`
}

type ViewConfig struct {
	BulkThreshold int `yaml:"bulk_threshold"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file in the working directory is loaded into the environment first;
// variables already set win. Env vars use the prefix MAPTY_:
//
//	MAPTY_SERVER_HOST, MAPTY_SERVER_PORT, MAPTY_WEB_DIR,
//	MAPTY_STORE_DRIVER, MAPTY_STORE_PATH,
//	MAPTY_DB_HOST, MAPTY_DB_PORT, MAPTY_DB_NAME,
//	MAPTY_DB_USER, MAPTY_DB_PASSWORD, MAPTY_DB_SSLMODE,
//	MAPTY_TS_ENABLED, MAPTY_TS_HOSTNAME, MAPTY_TS_STATE_DIR,
//	MAPTY_MAP_ZOOM, MAPTY_MAP_FIT_PADDING, MAPTY_VIEW_BULK_THRESHOLD
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("MAPTY_SERVER_HOST", &cfg.Server.Host)
	setInt("MAPTY_SERVER_PORT", &cfg.Server.Port)
	setString("MAPTY_WEB_DIR", &cfg.Server.WebDir)
	setString("MAPTY_STORE_DRIVER", &cfg.Store.Driver)
	setString("MAPTY_STORE_PATH", &cfg.Store.Path)
	setString("MAPTY_DB_HOST", &cfg.Database.Host)
	setInt("MAPTY_DB_PORT", &cfg.Database.Port)
	setString("MAPTY_DB_NAME", &cfg.Database.Name)
	setString("MAPTY_DB_USER", &cfg.Database.User)
	setString("MAPTY_DB_PASSWORD", &cfg.Database.Password)
	setString("MAPTY_DB_SSLMODE", &cfg.Database.SSLMode)
	if v := os.Getenv("MAPTY_TS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("MAPTY_TS_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("MAPTY_TS_STATE_DIR", &cfg.Tailscale.StateDir)
	setInt("MAPTY_MAP_ZOOM", &cfg.Map.Zoom)
	setInt("MAPTY_MAP_FIT_PADDING", &cfg.Map.FitPadding)
	setInt("MAPTY_VIEW_BULK_THRESHOLD", &cfg.View.BulkThreshold)
}

// validate fills defaults and rejects incomplete configuration.
func (c *Config) validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = 13
	}
	if c.Map.FitPadding == 0 {
		c.Map.FitPadding = 50
	}
	if c.View.BulkThreshold == 0 {
		c.View.BulkThreshold = 3
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}

	if c.Map.Zoom < 0 || c.Map.Zoom > 20 {
		return fmt.Errorf("map.zoom must be between 0 and 20, got %d", c.Map.Zoom)
	}
	if c.Map.FitPadding < 0 {
		return fmt.Errorf("map.fit_padding must not be negative")
	}
	if c.View.BulkThreshold < 1 {
		return fmt.Errorf("view.bulk_threshold must be at least 1")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			c.Store.Path = "data/mapty.db"
		}
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, postgres, memory", c.Store.Driver)
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
