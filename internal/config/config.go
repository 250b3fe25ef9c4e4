// Package config loads the permahub YAML configuration and hot-reloads it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dpshade/permahub/internal/filter"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "PERMAHUB_CONFIG"

// Config is the whole configuration file.
type Config struct {
	Hub    HubConfig    `yaml:"hub"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Query  QueryConfig  `yaml:"query"`
	Fanout FanoutConfig `yaml:"fanout"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// HubConfig identifies the hub.
type HubConfig struct {
	KeyFile string `yaml:"key_file"`
	// Owner is the identity whose events count as self-authored. Empty
	// means only the hub key itself.
	Owner string `yaml:"owner"`
	// Peers maps identities to hub base URLs for fan-out.
	Peers map[string]string `yaml:"peers"`
}

// StoreConfig selects persistence.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr             string        `yaml:"addr"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	VerifySignatures bool          `yaml:"verify_signatures"`
}

// QueryConfig holds the hub's query limits. Reloadable.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	HardCap      int `yaml:"hard_cap"`
}

// Limits converts to filter.Limits.
func (q QueryConfig) Limits() filter.Limits {
	return filter.Limits{Default: q.DefaultLimit, HardCap: q.HardCap}
}

// FanoutConfig sizes the fan-out worker pool.
type FanoutConfig struct {
	Workers    int           `yaml:"workers"`
	QueueDepth int           `yaml:"queue_depth"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ClientConfig points CLI commands at a hub.
type ClientConfig struct {
	HubURL       string        `yaml:"hub_url"`
	HubID        string        `yaml:"hub_id"`
	KeyFile      string        `yaml:"key_file"`
	Timeout      time.Duration `yaml:"timeout"`
	DefaultLimit int           `yaml:"default_limit"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// SlogLevel parses Level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Hub.KeyFile == "" {
		cfg.Hub.KeyFile = "permahub-key.json"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "permahub.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = filter.DefaultLimit
	}
	if cfg.Query.HardCap == 0 {
		cfg.Query.HardCap = filter.HardCap
	}
	if cfg.Fanout.Workers == 0 {
		cfg.Fanout.Workers = 4
	}
	if cfg.Fanout.QueueDepth == 0 {
		cfg.Fanout.QueueDepth = 256
	}
	if cfg.Fanout.Timeout == 0 {
		cfg.Fanout.Timeout = 5 * time.Second
	}
	if cfg.Client.HubURL == "" {
		cfg.Client.HubURL = "http://localhost:8080"
	}
	if cfg.Client.KeyFile == "" {
		cfg.Client.KeyFile = cfg.Hub.KeyFile
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 10 * time.Second
	}
	if cfg.Client.DefaultLimit == 0 {
		cfg.Client.DefaultLimit = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate checks a loaded configuration and reports every problem.
func Validate(cfg *Config) error {
	var errs []error
	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q: want sqlite or postgres", cfg.Store.Driver))
	}
	if cfg.Query.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("query.default_limit must be positive, got %d", cfg.Query.DefaultLimit))
	}
	if cfg.Query.HardCap < cfg.Query.DefaultLimit {
		errs = append(errs, fmt.Errorf("query.hard_cap %d is below query.default_limit %d", cfg.Query.HardCap, cfg.Query.DefaultLimit))
	}
	if cfg.Client.DefaultLimit < 1 || cfg.Client.DefaultLimit > filter.MaxLimit {
		errs = append(errs, fmt.Errorf("client.default_limit must be between 1 and %d", filter.MaxLimit))
	}
	if cfg.Fanout.Workers < 1 || cfg.Fanout.QueueDepth < 1 {
		errs = append(errs, errors.New("fanout.workers and fanout.queue_depth must be positive"))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", cfg.Log.Format))
	}
	return errors.Join(errs...)
}
