package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all goalmap configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Priority PriorityConfig `toml:"priority"`
	Ingest   IngestConfig   `toml:"ingest"`
}

type ServerConfig struct {
	Bind           string   `toml:"bind"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"` // CORS, for a UI dev server
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type PriorityConfig struct {
	DefaultPriority  float64 `toml:"default_priority"`
	DefaultDecayRate float64 `toml:"default_decay_rate"` // per minute
	RefreshMinutes   int     `toml:"refresh_minutes"`
}

type IngestConfig struct {
	ResearchParent string `toml:"research_parent"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:           "127.0.0.1",
			Port:           5050,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Priority: PriorityConfig{
			DefaultPriority:  1,
			DefaultDecayRate: 0.001,
			RefreshMinutes:   15,
		},
		Ingest: IngestConfig{
			ResearchParent: "1.9",
		},
	}
}

// DefaultPath returns the config file location: $GOALMAP_CONFIG, or
// ~/.goalmap/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv("GOALMAP_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".goalmap", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if p := os.Getenv("GOALMAP_DB"); p != "" {
		c.Database.Path = p
	}
	if p := os.Getenv("GOALMAP_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("GOALMAP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Priority.DefaultPriority < 0 {
		return fmt.Errorf("priority.default_priority %g is negative", c.Priority.DefaultPriority)
	}
	if c.Priority.DefaultDecayRate < 0 {
		return fmt.Errorf("priority.default_decay_rate %g is negative", c.Priority.DefaultDecayRate)
	}
	if c.Priority.RefreshMinutes <= 0 {
		return fmt.Errorf("priority.refresh_minutes must be positive")
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// RefreshInterval returns how often the effective priority cache is rewritten.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Priority.RefreshMinutes) * time.Minute
}
