package pgfleet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pgfleet/pgfleet/internal/registry"
)

// EnvConfigPath is the environment variable consulted when no explicit
// config path is given.
const EnvConfigPath = "PGFLEET_CONFIG"

// localConfigName is the config file looked up in the working directory.
const localConfigName = "pgfleet.yaml"

// Config is the root configuration for a Fleet and the CLI around it.
// Databases maps logical names to connection parameters; the logical name
// is what callers pass as the database argument of every tool.
type Config struct {
	Databases map[string]DatabaseConfig `yaml:"databases" json:"databases"`
	Logging   LoggingConfig             `yaml:"logging" json:"logging"`
	Server    ServerSettings            `yaml:"server" json:"server"`
}

// DatabaseConfig holds the connection parameters for one named database.
// Database is the physical database name on the server and defaults to the
// entry's key when empty.
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
}

// LoggingConfig holds logging settings. Environment variables override the
// file values.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"PGFLEET_LOG_LEVEL" env-default:"info"`    // debug, info, warn, error
	Format string `yaml:"format" json:"format" env:"PGFLEET_LOG_FORMAT" env-default:"json"` // json, text
	Output string `yaml:"output" json:"output" env:"PGFLEET_LOG_OUTPUT" env-default:"stderr"`
}

// ServerSettings holds transport settings for the serve command.
type ServerSettings struct {
	Transport          string `yaml:"transport" json:"transport" env:"PGFLEET_TRANSPORT" env-default:"stdio"` // stdio, http
	Port               int    `yaml:"port" json:"port" env:"PGFLEET_PORT" env-default:"8080"`
	HealthCheckEnabled bool   `yaml:"health_check_enabled" json:"health_check_enabled" env:"PGFLEET_HEALTH_CHECK_ENABLED" env-default:"false"`
	HealthCheckPath    string `yaml:"health_check_path" json:"health_check_path" env:"PGFLEET_HEALTH_CHECK_PATH" env-default:"/healthz"`
}

// ResolveConfigPath returns the configuration file to use: the explicit
// path if given, then $PGFLEET_CONFIG, then ./pgfleet.yaml, then
// ~/.config/pgfleet/config.yaml. Falls back to ./pgfleet.yaml when none
// exists, so the eventual load error names a sensible path.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if _, err := os.Stat(localConfigName); err == nil {
		return localConfigName
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "pgfleet", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return localConfigName
}

// LoadConfig reads, defaults, and validates the configuration file at
// path. Environment variables override the logging and server sections. A
// config with zero databases is valid: the server starts and every call
// reports an unknown database.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills the per-entry database name from the entry key.
func (c *Config) applyDefaults() {
	for name, db := range c.Databases {
		if db.Database == "" {
			db.Database = name
			c.Databases[name] = db
		}
	}
}

// Validate checks every database entry and the server section. Entries are
// checked in name order so the first error is deterministic.
func (c *Config) Validate() error {
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := c.Databases[name]
		if db.Host == "" {
			return fmt.Errorf("database %q: host must be set", name)
		}
		if db.Port <= 0 {
			return fmt.Errorf("database %q: port must be > 0", name)
		}
		if db.User == "" {
			return fmt.Errorf("database %q: user must be set", name)
		}
		if db.Password == "" {
			return fmt.Errorf("database %q: password must be set", name)
		}
	}

	switch c.Server.Transport {
	case "", "stdio":
	case "http":
		if c.Server.Port <= 0 {
			return fmt.Errorf("server.port must be > 0 for http transport")
		}
	default:
		return fmt.Errorf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}
	if c.Server.HealthCheckEnabled && c.Server.HealthCheckPath == "" {
		return fmt.Errorf("server.health_check_path must be set when health_check_enabled is true")
	}
	return nil
}

// profiles converts the database entries to registry profiles, applying
// the entry-key default for empty database names.
func (c *Config) profiles() map[string]registry.Profile {
	profiles := make(map[string]registry.Profile, len(c.Databases))
	for name, db := range c.Databases {
		dbName := db.Database
		if dbName == "" {
			dbName = name
		}
		profiles[name] = registry.Profile{
			Host:     db.Host,
			Port:     db.Port,
			Database: dbName,
			User:     db.User,
			Password: db.Password,
		}
	}
	return profiles
}
