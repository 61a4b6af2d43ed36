// Package config loads duoplan client configuration from a YAML file with
// environment-variable overrides. A .env file, when present, is loaded into
// the environment by the command entry point before this package runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/duoplan/duoplan/internal/plan"
)

// Backend selects the remote store implementation.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

// Default paths and timings.
const (
	DefaultPath       = "duoplan.yaml"
	DefaultSQLitePath = "duoplan.db"
	DefaultDebounce   = 250 * time.Millisecond
)

// Member identifies the local user within the pairing.
type Member struct {
	Slot int    `yaml:"slot"`
	Name string `yaml:"name"`
}

// Config is the full client configuration.
type Config struct {
	PairingID string `yaml:"pairing_id"`
	Member    Member `yaml:"member"`
	Partner   Member `yaml:"partner"`

	Backend   string `yaml:"backend"`
	SQLite    string `yaml:"sqlite_path"`
	Postgres  string `yaml:"postgres_dsn"`
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`

	// CachePath is the SQLite file holding the local fallback snapshot.
	// Empty disables offline bootstrap.
	CachePath string `yaml:"cache_path"`

	DebounceMS int `yaml:"debounce_ms"`
}

// Load reads the file at path, fills defaults, and applies DUOPLAN_*
// environment overrides. A missing file is not an error: the zero config
// plus overrides is returned, so env-only setups need no file at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// env-only setup
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.PairingID, "DUOPLAN_PAIRING_ID")
	setString(&c.Member.Name, "DUOPLAN_MEMBER_NAME")
	setInt(&c.Member.Slot, "DUOPLAN_MEMBER_SLOT")
	setString(&c.Partner.Name, "DUOPLAN_PARTNER_NAME")
	setString(&c.Backend, "DUOPLAN_BACKEND")
	setString(&c.SQLite, "DUOPLAN_SQLITE_PATH")
	setString(&c.Postgres, "DUOPLAN_POSTGRES_DSN")
	setString(&c.ServerURL, "DUOPLAN_SERVER_URL")
	setString(&c.Token, "DUOPLAN_TOKEN")
	setString(&c.CachePath, "DUOPLAN_CACHE_PATH")
	setInt(&c.DebounceMS, "DUOPLAN_DEBOUNCE_MS")
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.SQLite == "" {
		c.SQLite = DefaultSQLitePath
	}
	if c.Member.Slot == 0 {
		c.Member.Slot = 1
	}
	if c.Partner.Slot == 0 {
		c.Partner.Slot = 3 - c.Member.Slot
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.Postgres == "" {
			return fmt.Errorf("config: backend %q requires postgres_dsn", c.Backend)
		}
	case BackendHTTP:
		if c.ServerURL == "" {
			return fmt.Errorf("config: backend %q requires server_url", c.Backend)
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	if c.Member.Slot != 1 && c.Member.Slot != 2 {
		return fmt.Errorf("config: member slot must be 1 or 2, got %d", c.Member.Slot)
	}
	if c.Partner.Slot == c.Member.Slot {
		return fmt.Errorf("config: member and partner cannot share slot %d", c.Member.Slot)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("config: debounce_ms must not be negative, got %d", c.DebounceMS)
	}
	return nil
}

// Debounce returns the configured debounce window, or the engine default.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS == 0 {
		return DefaultDebounce
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// MemberSlot returns the local member's slot as a plan.Slot.
func (c *Config) MemberSlot() plan.Slot {
	return plan.Slot(c.Member.Slot)
}

// PartnerSlot returns the partner's slot as a plan.Slot.
func (c *Config) PartnerSlot() plan.Slot {
	return plan.Slot(c.Partner.Slot)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
