package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Source   CatalogConfig  `toml:"source"`
	Target   CatalogConfig  `toml:"target"`
	Database DatabaseConfig `toml:"database"`
	Sync     SyncConfig     `toml:"sync"`
	Markers  MarkerConfig   `toml:"markers"`
}

// CatalogConfig describes one media server participating in a sync run.
type CatalogConfig struct {
	Name  string `toml:"name"`
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// DatabaseConfig contains run-history database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains engine options.
type SyncConfig struct {
	IncludeEpisodePosters bool `toml:"include_episode_posters"`
	TimeoutSeconds        int  `toml:"timeout_seconds"`
	RequestsPerSecond     int  `toml:"requests_per_second"`
}

// MarkerConfig locates the target server's local metadata store for the
// privileged intro-marker write path.
type MarkerConfig struct {
	DatabasePath string `toml:"database_path"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that both catalog sides carry an address and a credential.
func (c *Config) Validate() error {
	for _, side := range []struct {
		label string
		conf  CatalogConfig
	}{{"source", c.Source}, {"target", c.Target}} {
		if side.conf.URL == "" {
			return fmt.Errorf("%w: missing %s url", ErrInvalidConfig, side.label)
		}
		if side.conf.Token == "" {
			return fmt.Errorf("%w: missing %s token", ErrMissingCredentials, side.label)
		}
	}
	return nil
}
