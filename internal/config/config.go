package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envConfigPath = "TCPING_CONFIG"
	appDirName    = "tcping"
	fileName      = "config.yaml"
)

const (
	DefaultCount      = 4
	DefaultIntervalMs = 1000
	DefaultTimeoutSec = 4
)

// Upper bounds keep the derived durations within time.Duration.
const (
	MaxIntervalMs = math.MaxInt64 / int64(time.Millisecond)
	MaxTimeoutSec = math.MaxInt64 / int64(time.Second)
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Probe   ProbeConfig   `yaml:"probe"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	GeoIP   GeoIPConfig   `yaml:"geoip"`
}

type ProbeConfig struct {
	Continuous   bool     `yaml:"continuous"`
	Count        int      `yaml:"count"`
	IntervalMs   int      `yaml:"interval_ms"`
	TimeoutSec   int      `yaml:"timeout_secs"`
	DNSResolvers []string `yaml:"dns_resolvers,omitempty"`
}

type OutputConfig struct {
	JSON    bool `yaml:"json"`
	NoColor bool `yaml:"no_color"`
}

type LogConfig struct {
	Verbose    bool   `yaml:"verbose"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

type GeoIPConfig struct {
	Database string `yaml:"database,omitempty"`
}

// Default returns the built-in settings used when neither a file nor a flag sets a value.
func Default() Config {
	return Config{
		Probe: ProbeConfig{
			Count:      DefaultCount,
			IntervalMs: DefaultIntervalMs,
			TimeoutSec: DefaultTimeoutSec,
		},
	}
}

func (c Config) Validate() error {
	if c.Probe.Count < 0 {
		return fmt.Errorf("%w: probe.count must not be negative", ErrInvalid)
	}
	if c.Probe.IntervalMs < 0 {
		return fmt.Errorf("%w: probe.interval_ms must not be negative", ErrInvalid)
	}
	if int64(c.Probe.IntervalMs) > MaxIntervalMs {
		return fmt.Errorf("%w: probe.interval_ms must not exceed %d", ErrInvalid, MaxIntervalMs)
	}
	if c.Probe.TimeoutSec < 1 {
		return fmt.Errorf("%w: probe.timeout_secs must be at least 1", ErrInvalid)
	}
	if int64(c.Probe.TimeoutSec) > MaxTimeoutSec {
		return fmt.Errorf("%w: probe.timeout_secs must not exceed %d", ErrInvalid, MaxTimeoutSec)
	}
	return nil
}

// Load reads the YAML file at path on top of the built-in defaults.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}

	return cfg, nil
}

// DefaultPath returns the path named by TCPING_CONFIG, falling back to the user
// configuration directory. explicit reports whether the environment chose it.
func DefaultPath() (path string, explicit bool) {
	if env := os.Getenv(envConfigPath); env != "" {
		return env, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, appDirName, fileName), false
}

// LoadFromEnv loads the default config file. A missing file is only an error when
// TCPING_CONFIG names it explicitly.
func LoadFromEnv(ctx context.Context) (Config, string, error) {
	path, explicit := DefaultPath()
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(ctx, path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), "", nil
		}
		return cfg, path, err
	}
	return cfg, path, nil
}
