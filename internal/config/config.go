// Package config defines the bot configuration on top of the core settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	coreconfig "github.com/m3rciful/partsbot/core/config"
	coredatabase "github.com/m3rciful/partsbot/core/database"
	"github.com/m3rciful/partsbot/core/telegram/state"
	"github.com/m3rciful/partsbot/internal/intake"
)

// Storage backends.
const (
	StorageFile     = "file"
	StoragePostgres = coredatabase.DriverPostgres
	StorageSQLite   = coredatabase.DriverSQLite
)

const (
	defaultOrdersFile = "orders.json"
	defaultSQLiteFile = "partsbot.db"
)

// StorageConfig selects where orders live.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// Path is the JSON document for "file" and the database file for "sqlite".
	Path string `yaml:"path" envconfig:"STORAGE_PATH"`
}

// IntakeConfig tunes the question flow.
type IntakeConfig struct {
	SkipKeywords []string `yaml:"skip_keywords" envconfig:"SKIP_KEYWORDS"`
}

// SessionsConfig controls eviction of abandoned conversations.
// A zero TTL keeps sessions until the customer finishes or resets.
type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	SweepSchedule string        `yaml:"sweep_schedule" envconfig:"SESSION_SWEEP_SCHEDULE"`
}

// OpsConfig configures the health and stats HTTP listener. Empty Listen disables it.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Intake   IntakeConfig        `yaml:"intake"`
	Sessions SessionsConfig      `yaml:"sessions"`
	Ops      OpsConfig           `yaml:"ops"`
}

// Default returns the configuration used for keys absent from file and env.
func Default() *Config {
	cfg := &Config{
		Storage:  StorageConfig{Driver: StorageFile},
		Intake:   IntakeConfig{SkipKeywords: append([]string(nil), intake.DefaultSkipKeywords...)},
		Sessions: SessionsConfig{SweepSchedule: state.DefaultSweepSchedule},
	}
	// Callbacks must always be answered, so they bypass the rate limit.
	cfg.RateLimit.ExcludeUpdates = []string{coreconfig.UpdateCallback}
	return cfg
}

// Load reads path over Default, overlays the environment and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := coreconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for offline tools: only storage settings are checked,
// so no bot token is needed.
func LoadStorage(path string) (*Config, error) {
	cfg := Default()
	if err := coreconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the configuration in place.
func (c *Config) Validate() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must be >= 0")
	}
	if strings.TrimSpace(c.Sessions.SweepSchedule) == "" {
		c.Sessions.SweepSchedule = state.DefaultSweepSchedule
	}
	if _, err := cron.ParseStandard(c.Sessions.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sessions.sweep_schedule %q: %w", c.Sessions.SweepSchedule, err)
	}
	return nil
}

// ValidateStorage normalizes the storage and database sections.
func (c *Config) ValidateStorage() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	switch c.Storage.Driver {
	case "", StorageFile:
		c.Storage.Driver = StorageFile
		if c.Storage.Path == "" {
			c.Storage.Path = defaultOrdersFile
		}
	case StorageSQLite:
		if c.Storage.Path == "" {
			c.Storage.Path = defaultSQLiteFile
		}
	case StoragePostgres:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres, sqlite", c.Storage.Driver)
	}
	return c.DatabaseConfig().Validate()
}

// CoreConfig implements the runner's ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// DatabaseConfig returns the SQL settings for the selected storage driver, or
// a disabled config for the file backend.
func (c *Config) DatabaseConfig() coredatabase.Config {
	if c.Storage.Driver == StorageFile || c.Storage.Driver == "" {
		return coredatabase.Config{}
	}
	db := c.Database
	db.Driver = c.Storage.Driver
	if db.Driver == StorageSQLite && db.Path == "" {
		db.Path = c.Storage.Path
	}
	return db
}
