package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const (
	SupportedSchema = "v1"
	EnvPrefix       = "METRICSGATE_"
)

type LogCfg struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

// CollectorsCfg toggles client_golang's stock collectors on the default registry.
type CollectorsCfg struct {
	Go      bool `koanf:"go" yaml:"go"`
	Process bool `koanf:"process" yaml:"process"`
}

type HealthCfg struct {
	Listen string `koanf:"listen" yaml:"listen"` // empty disables the gRPC health server
}

type DemoCfg struct {
	Enabled  bool          `koanf:"enabled" yaml:"enabled"`
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

// MarshalYAML writes Interval the way Load parses it ("1s", not nanoseconds).
func (d DemoCfg) MarshalYAML() (any, error) {
	return struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
	}{d.Enabled, d.Interval.String()}, nil
}

type Config struct {
	SchemaVersion string        `koanf:"schema_version" yaml:"schema_version"`
	Listen        string        `koanf:"listen" yaml:"listen"`
	Log           LogCfg        `koanf:"log" yaml:"log"`
	Collectors    CollectorsCfg `koanf:"collectors" yaml:"collectors"`
	Health        HealthCfg     `koanf:"health" yaml:"health"`
	Demo          DemoCfg       `koanf:"demo" yaml:"demo"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// Load merges YAML (if present) with env-vars. Env keys drop the
// METRICSGATE_ prefix and use `__` for nesting: METRICSGATE_LOG__LEVEL=debug.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config: schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Dump renders the effective configuration as YAML.
func Dump(cfg Config) ([]byte, error) {
	return yamlv3.Marshal(cfg)
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:9091"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Demo.Interval <= 0 {
		c.Demo.Interval = time.Second
	}
}
