// Package config reads and writes clinicbooks.yaml. Every key can be
// overridden from the environment as CLINICBOOKS_<SECTION>_<KEY>, for
// example CLINICBOOKS_STORE_DSN.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/clinicbooks/clinicbooks/internal/store"
)

// FileName is the configuration file created by init.
const FileName = "clinicbooks.yaml"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "CLINICBOOKS"

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config represents the top-level clinicbooks.yaml configuration.
type Config struct {
	Practice PracticeConfig `yaml:"practice" mapstructure:"practice"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Tax      TaxConfig      `yaml:"tax" mapstructure:"tax"`
	Admin    AdminConfig    `yaml:"admin" mapstructure:"admin"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	root string // directory of the loaded file
}

// PracticeConfig identifies the practice and the default clinic.
type PracticeConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	ClinicID string `yaml:"clinic_id" mapstructure:"clinic_id"`
	Actor    string `yaml:"actor" mapstructure:"actor"` // author recorded in the audit log
}

// StoreConfig selects and tunes the data store.
type StoreConfig struct {
	Driver         string        `yaml:"driver" mapstructure:"driver"` // "file" or "postgres"
	Dir            string        `yaml:"dir,omitempty" mapstructure:"dir"`
	DSN            string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

// TaxConfig points at the versioned regime parameters.
type TaxConfig struct {
	ParametersFile string `yaml:"parameters_file" mapstructure:"parameters_file"`
}

// AdminConfig tunes the consolidated views.
type AdminConfig struct {
	PageSize    int `yaml:"page_size" mapstructure:"page_size"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// Load reads a clinicbooks.yaml file from disk and applies environment
// overrides. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default(""))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.root = filepath.Dir(path)
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// the file omits.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("practice.name", d.Practice.Name)
	v.SetDefault("practice.clinic_id", d.Practice.ClinicID)
	v.SetDefault("practice.actor", d.Practice.Actor)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.timeout", d.Store.Timeout)
	v.SetDefault("store.max_attempts", d.Store.MaxAttempts)
	v.SetDefault("store.initial_backoff", d.Store.InitialBackoff)
	v.SetDefault("store.max_backoff", d.Store.MaxBackoff)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("tax.parameters_file", d.Tax.ParametersFile)
	v.SetDefault("admin.page_size", d.Admin.PageSize)
	v.SetDefault("admin.concurrency", d.Admin.Concurrency)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new practice.
func Default(practiceName string) *Config {
	return &Config{
		Practice: PracticeConfig{
			Name:     practiceName,
			ClinicID: "clinic-1",
			Actor:    "admin",
		},
		Store: StoreConfig{
			Driver:         DriverFile,
			Dir:            "data",
			Timeout:        5 * time.Second,
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Tax: TaxConfig{
			ParametersFile: "tax-parameters.yaml",
		},
		Admin: AdminConfig{
			PageSize:    10,
			Concurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file driver")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverFile, DriverPostgres, c.Store.Driver)
	}
	if c.Store.MaxAttempts < 1 {
		return fmt.Errorf("store.max_attempts must be at least 1")
	}
	if c.Admin.PageSize < 1 || c.Admin.PageSize > 100 {
		return fmt.Errorf("admin.page_size must be 1..100, got %d", c.Admin.PageSize)
	}
	if c.Admin.Concurrency < 1 {
		return fmt.Errorf("admin.concurrency must be at least 1")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Resolve interprets p relative to the directory of the loaded file.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.root == "" {
		return p
	}
	return filepath.Join(c.root, p)
}

// RetryPolicy returns the data-access retry policy.
func (c *Config) RetryPolicy() store.RetryPolicy {
	return store.RetryPolicy{
		Timeout:         c.Store.Timeout,
		MaxAttempts:     c.Store.MaxAttempts,
		InitialInterval: c.Store.InitialBackoff,
		MaxInterval:     c.Store.MaxBackoff,
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
