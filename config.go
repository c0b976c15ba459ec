package setdata

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
)

// Config holds the scheduler wide options. The flags mirror the
// options recognized by the host adapter; the Log flags only affect
// diagnostics.
type Config struct {
	UseSyncData      bool `yaml:"useSyncData" json:"useSyncData"`
	UseOldVal        bool `yaml:"useOldVal" json:"useOldVal"`
	LogNative        bool `yaml:"logNative" json:"logNative"`
	LogUpdatedData   bool `yaml:"logUpdatedData" json:"logUpdatedData"`
	LogDuplicateData bool `yaml:"logDuplicateData" json:"logDuplicateData"`
	LogTimeConsuming bool `yaml:"logTimeConsuming" json:"logTimeConsuming"`

	Watcher  Watcher      `yaml:"-" json:"-"`
	Observer Observer     `yaml:"-" json:"-"`
	Logger   *slog.Logger `yaml:"-" json:"-"`
}

type Opt func(*Config)

// WithConfig copies the option flags of c.
func WithConfig(c *Config) Opt {
	return func(cfg *Config) {
		cfg.UseSyncData = c.UseSyncData
		cfg.UseOldVal = c.UseOldVal
		cfg.LogNative = c.LogNative
		cfg.LogUpdatedData = c.LogUpdatedData
		cfg.LogDuplicateData = c.LogDuplicateData
		cfg.LogTimeConsuming = c.LogTimeConsuming
	}
}

// WithSyncData writes every staged value through to the state at once.
func WithSyncData(v bool) Opt {
	return func(c *Config) { c.UseSyncData = v }
}

func WithOldVal(v bool) Opt {
	return func(c *Config) { c.UseOldVal = v }
}

// WithLogNative bypasses diffing and batching for every request and
// logs commit counts and durations.
func WithLogNative(v bool) Opt {
	return func(c *Config) { c.LogNative = v }
}

func WithLogUpdatedData(v bool) Opt {
	return func(c *Config) { c.LogUpdatedData = v }
}

func WithLogDuplicateData(v bool) Opt {
	return func(c *Config) { c.LogDuplicateData = v }
}

func WithLogTimeConsuming(v bool) Opt {
	return func(c *Config) { c.LogTimeConsuming = v }
}

func WithWatcher(w Watcher) Opt {
	return func(c *Config) { c.Watcher = w }
}

func WithObserver(o Observer) Opt {
	return func(c *Config) { c.Observer = o }
}

func WithLogger(l *slog.Logger) Opt {
	return func(c *Config) { c.Logger = l }
}

// Opts converts the option flags of c.
func (c *Config) Opts() []Opt {
	return []Opt{WithConfig(c)}
}

// LoadConfig reads a YAML or JSON config file.
func LoadConfig(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(d, cfg); err != nil {
		return nil, fmt.Errorf("error decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// CallConfig holds the options of a single update request.
type CallConfig struct {
	Native   bool
	OldVal   bool
	SyncData bool
}

type CallOpt func(*CallConfig)

// UseNative sends the request straight to the host, without diffing or
// batching.
func UseNative() CallOpt {
	return func(c *CallConfig) { c.Native = true }
}

func UseOldVal() CallOpt {
	return func(c *CallConfig) { c.OldVal = true }
}

func UseSyncData() CallOpt {
	return func(c *CallConfig) { c.SyncData = true }
}
