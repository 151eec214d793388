// Package config loads salesdash CLI configuration.
//
// Values are layered with koanf: built-in defaults, then salesdash.yaml,
// then SALESDASH_* environment variables, then flags that were set
// explicitly on the command line.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/internal/query"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// Default configuration values.
const (
	DefaultDatabase      = "sales.db"
	DefaultTargetType    = "sqlite"
	DefaultSeedsDir      = "seeds"
	DefaultOutput        = "auto" // TTY=text, otherwise markdown
	DefaultFailurePolicy = string(dashboard.FailAbort)
	DefaultDatePolicy    = string(dashboard.DatesDrop)
	DefaultUIPort        = 8765
)

// DefaultQueryTimeout bounds each catalog query.
const DefaultQueryTimeout = query.DefaultTimeout

// TargetConfig describes the store to connect to.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File path for sqlite and duckdb, database name for postgres.
	Database string `koanf:"database"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Options are extra connection parameters (postgres runtime params).
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific settings decoded by the adapter.
	Params map[string]any `koanf:"params"`
}

// Validate checks the target against the adapter registry.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// ApplyDefaults fills type-specific defaults.
func (t *TargetConfig) ApplyDefaults() {
	t.Type = strings.ToLower(t.Type)
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	case "duckdb":
		if t.Schema == "" {
			t.Schema = "main"
		}
	}
}

// IsFile reports whether the target's database is a local file.
func (t *TargetConfig) IsFile() bool {
	return t.Type == "sqlite" || t.Type == "duckdb"
}

// AdapterConfig converts the target into a store connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	cfg := core.AdapterConfig{
		Type:     t.Type,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	if t.IsFile() {
		cfg.Path = t.Database
		cfg.Database = ""
	}
	return cfg
}

// UIConfig holds configuration for the web dashboard.
type UIConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// Config holds all CLI configuration options.
type Config struct {
	DatabasePath  string               `koanf:"database"` // shorthand for target.database
	Target        *TargetConfig        `koanf:"target"`
	Catalog       string               `koanf:"catalog"` // empty means the embedded catalog
	SeedsDir      string               `koanf:"seeds_dir"`
	OutputFormat  string               `koanf:"output"`
	Verbose       bool                 `koanf:"verbose"`
	QueryTimeout  time.Duration        `koanf:"query_timeout"`
	FailurePolicy string               `koanf:"failure_policy"`
	DatePolicy    string               `koanf:"date_policy"`
	UI            *UIConfig            `koanf:"ui"`
	Environment   string               `koanf:"environment"`
	Environments  map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific overrides selected with --target.
type EnvConfig struct {
	DatabasePath string        `koanf:"database"`
	SeedsDir     string        `koanf:"seeds_dir"`
	Target       *TargetConfig `koanf:"target"`
}

// GetUIConfig returns the UI config with defaults applied.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return &UIConfig{Port: DefaultUIPort}
	}
	if c.UI.Port == 0 {
		c.UI.Port = DefaultUIPort
	}
	return c.UI
}

// Store returns the read-only connection config used by the dashboard.
func (c *Config) Store() core.AdapterConfig {
	return c.Target.AdapterConfig()
}

// LoadCatalog loads the configured catalog, or the embedded one.
func (c *Config) LoadCatalog() (*catalog.Catalog, error) {
	if c.Catalog == "" {
		return catalog.Default()
	}
	return catalog.Load(c.Catalog)
}

// Mode returns the configured output mode.
func (c *Config) Mode() output.Mode {
	m, err := output.ParseMode(c.OutputFormat)
	if err != nil {
		return output.ModeAuto
	}
	return m
}

// DashboardOptions returns run options for the dashboard driver.
func (c *Config) DashboardOptions() dashboard.Options {
	return dashboard.Options{
		Store:         c.Store(),
		QueryTimeout:  c.QueryTimeout,
		FailurePolicy: dashboard.FailurePolicy(c.FailurePolicy),
		DatePolicy:    dashboard.DatePolicy(c.DatePolicy),
	}
}
