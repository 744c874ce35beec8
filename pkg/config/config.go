// Package config handles markovnet configuration from YAML files and
// environment variables.
//
// Settings are read from an optional YAML file and then overridden by
// MARKOVNET_* environment variables, so a deployment can ship a file and
// tweak single values per host.
//
// Example Usage:
//
//	cfg, err := config.LoadFromEnvOrFile("markovnet.yaml")
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	cfg.Runtime.ApplyRuntimeMemory()
//	pool.Configure(cfg.PoolConfig())
//	params := cfg.AlgebraParams()
//
// Environment Variables:
//   - MARKOVNET_WORKERS=8
//   - MARKOVNET_AVERAGE_ON_MARGINALIZE=false
//   - MARKOVNET_DATA_DIR="./data"
//   - MARKOVNET_IN_MEMORY=false
//   - MARKOVNET_SYNC_WRITES=false
//   - MARKOVNET_POOL_ENABLED=true
//   - MARKOVNET_POOL_MAX_SIZE=65536
//   - MARKOVNET_MEMORY_LIMIT="2GB"
//   - MARKOVNET_GC_PERCENT=100
//   - MARKOVNET_LOG_LEVEL="info"
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/markovnet/pkg/algebra"
	"github.com/orneryd/markovnet/pkg/pool"
)

// Config holds all markovnet settings.
//
// Configuration is organized into logical sections:
//   - Algebra: worker count and marginalization mode of the table algebra
//   - Storage: where network snapshots are kept
//   - Pool: scratch-slice pooling
//   - Runtime: Go runtime memory tuning
//   - Logging: verbosity
type Config struct {
	Algebra AlgebraConfig `yaml:"algebra"`
	Storage StorageConfig `yaml:"storage"`
	Pool    PoolSettings  `yaml:"pool"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Logging LoggingConfig `yaml:"logging"`
}

// AlgebraConfig configures potential multiplication and marginalization.
type AlgebraConfig struct {
	// Workers bounds the goroutines of one operation. Default: NumCPU.
	Workers int `yaml:"workers"`

	// AverageOnMarginalize yields means instead of sums when eliminating
	// variables.
	AverageOnMarginalize bool `yaml:"average_on_marginalize"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// PoolSettings configures slice pooling.
type PoolSettings struct {
	Enabled bool `yaml:"enabled"`
	MaxSize int  `yaml:"max_size"`
}

// RuntimeConfig tunes the Go runtime.
type RuntimeConfig struct {
	// MemoryLimit is a human-readable soft limit ("2GB", "512MB", "unlimited").
	MemoryLimit string `yaml:"memory_limit"`

	// GCPercent sets the garbage collector target. 100 is the Go default.
	GCPercent int `yaml:"gc_percent"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Algebra: AlgebraConfig{Workers: runtime.NumCPU()},
		Storage: StorageConfig{DataDir: "./data"},
		Pool:    PoolSettings{Enabled: true, MaxSize: 1 << 16},
		Runtime: RuntimeConfig{MemoryLimit: "unlimited", GCPercent: 100},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadFromEnv returns the defaults overridden by environment variables.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnvOrFile loads path if it exists, applies environment overrides and
// validates the result. An empty path skips the file.
func LoadFromEnvOrFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Algebra.Workers = getEnvInt("MARKOVNET_WORKERS", c.Algebra.Workers)
	c.Algebra.AverageOnMarginalize = getEnvBool("MARKOVNET_AVERAGE_ON_MARGINALIZE", c.Algebra.AverageOnMarginalize)

	c.Storage.DataDir = getEnv("MARKOVNET_DATA_DIR", c.Storage.DataDir)
	c.Storage.InMemory = getEnvBool("MARKOVNET_IN_MEMORY", c.Storage.InMemory)
	c.Storage.SyncWrites = getEnvBool("MARKOVNET_SYNC_WRITES", c.Storage.SyncWrites)

	c.Pool.Enabled = getEnvBool("MARKOVNET_POOL_ENABLED", c.Pool.Enabled)
	c.Pool.MaxSize = getEnvInt("MARKOVNET_POOL_MAX_SIZE", c.Pool.MaxSize)

	c.Runtime.MemoryLimit = getEnv("MARKOVNET_MEMORY_LIMIT", c.Runtime.MemoryLimit)
	c.Runtime.GCPercent = getEnvInt("MARKOVNET_GC_PERCENT", c.Runtime.GCPercent)

	c.Logging.Level = strings.ToLower(getEnv("MARKOVNET_LOG_LEVEL", c.Logging.Level))
}

// Validate checks the configuration for errors.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	if c.Algebra.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d", c.Algebra.Workers)
	}
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("data directory required unless storage is in memory")
	}
	if c.Pool.Enabled && c.Pool.MaxSize <= 0 {
		return fmt.Errorf("invalid pool max size: %d", c.Pool.MaxSize)
	}
	if parseMemorySize(c.Runtime.MemoryLimit) < 0 {
		return fmt.Errorf("invalid memory limit: %s", c.Runtime.MemoryLimit)
	}
	if !logLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, Average: %v, DataDir: %s, InMemory: %v, Pool: %v/%d, Memory: %s, Log: %s}",
		c.Algebra.Workers, c.Algebra.AverageOnMarginalize,
		c.Storage.DataDir, c.Storage.InMemory,
		c.Pool.Enabled, c.Pool.MaxSize,
		FormatMemorySize(parseMemorySize(c.Runtime.MemoryLimit)),
		c.Logging.Level,
	)
}

// AlgebraParams converts the algebra section.
func (c *Config) AlgebraParams() algebra.Params {
	return algebra.Params{
		Workers:              c.Algebra.Workers,
		AverageOnMarginalize: c.Algebra.AverageOnMarginalize,
	}
}

// PoolConfig converts the pool section.
func (c *Config) PoolConfig() pool.PoolConfig {
	return pool.PoolConfig{Enabled: c.Pool.Enabled, MaxSize: c.Pool.MaxSize}
}

// IsDebug reports whether debug logging is on.
func (c *Config) IsDebug() bool { return c.Logging.Level == "debug" }

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

// byteUnits lists size suffixes from largest to smallest.
var byteUnits = []struct {
	suffix string
	size   int64
}{
	{"T", 1 << 40},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
}

// parseMemorySize reads sizes such as "512MB", "2g" or "1048576". Empty,
// "0" and "unlimited" mean no limit; anything unparsable reads as 0 too.
func parseMemorySize(s string) int64 {
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")
	if s == "" || s == "UNLIMITED" {
		return 0
	}
	multiplier := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.size
			s = strings.TrimSuffix(s, u.suffix)
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}

// FormatMemorySize renders bytes with two decimals in the largest fitting
// unit. Zero reads as "unlimited".
func FormatMemorySize(bytes int64) string {
	if bytes == 0 {
		return "unlimited"
	}
	for _, u := range byteUnits {
		if bytes >= u.size {
			return fmt.Sprintf("%.2f %sB", float64(bytes)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

// MemoryLimitBytes returns the parsed memory limit, 0 meaning none.
func (c *RuntimeConfig) MemoryLimitBytes() int64 { return parseMemorySize(c.MemoryLimit) }

// ApplyRuntimeMemory applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations.
func (c *RuntimeConfig) ApplyRuntimeMemory() {
	if limit := c.MemoryLimitBytes(); limit > 0 {
		debug.SetMemoryLimit(limit)
	}
	if c.GCPercent != 100 && c.GCPercent != 0 {
		debug.SetGCPercent(c.GCPercent)
	}
}
