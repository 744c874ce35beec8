package config

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Memory size Tests
// =============================================================================

func TestMemorySize(t *testing.T) {
	tests := []struct {
		input string
		bytes int64
		shown string
	}{
		{"unlimited", 0, "unlimited"},
		{"", 0, "unlimited"},
		{"768", 768, "768 B"},
		{" 512mb ", 512 << 20, "512.00 MB"},
		{"1536K", 1536 << 10, "1.50 MB"},
		{"2G", 2 << 30, "2.00 GB"},
		{"1TB", 1 << 40, "1.00 TB"},
		{"lots", 0, "unlimited"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseMemorySize(tt.input)
			assert.Equal(t, tt.bytes, got)
			assert.Equal(t, tt.shown, FormatMemorySize(got))
		})
	}
}

// =============================================================================
// LoadFromEnv Tests
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MARKOVNET_WORKERS",
		"MARKOVNET_AVERAGE_ON_MARGINALIZE",
		"MARKOVNET_DATA_DIR",
		"MARKOVNET_IN_MEMORY",
		"MARKOVNET_SYNC_WRITES",
		"MARKOVNET_POOL_ENABLED",
		"MARKOVNET_POOL_MAX_SIZE",
		"MARKOVNET_MEMORY_LIMIT",
		"MARKOVNET_GC_PERCENT",
		"MARKOVNET_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg := LoadFromEnv()

		assert.Equal(t, runtime.NumCPU(), cfg.Algebra.Workers)
		assert.False(t, cfg.Algebra.AverageOnMarginalize)
		assert.Equal(t, "./data", cfg.Storage.DataDir)
		assert.True(t, cfg.Pool.Enabled)
		assert.Equal(t, 1<<16, cfg.Pool.MaxSize)
		assert.Equal(t, int64(0), cfg.Runtime.MemoryLimitBytes())
		assert.Equal(t, 100, cfg.Runtime.GCPercent)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARKOVNET_WORKERS", "3")
		t.Setenv("MARKOVNET_AVERAGE_ON_MARGINALIZE", "yes")
		t.Setenv("MARKOVNET_IN_MEMORY", "1")
		t.Setenv("MARKOVNET_POOL_ENABLED", "false")
		t.Setenv("MARKOVNET_MEMORY_LIMIT", "2GB")
		t.Setenv("MARKOVNET_LOG_LEVEL", "DEBUG")

		cfg := LoadFromEnv()
		assert.Equal(t, 3, cfg.Algebra.Workers)
		assert.True(t, cfg.Algebra.AverageOnMarginalize)
		assert.True(t, cfg.Storage.InMemory)
		assert.False(t, cfg.Pool.Enabled)
		assert.Equal(t, int64(2*1024*1024*1024), cfg.Runtime.MemoryLimitBytes())
		assert.True(t, cfg.IsDebug())

		params := cfg.AlgebraParams()
		assert.Equal(t, 3, params.Workers)
		assert.True(t, params.AverageOnMarginalize)
		assert.False(t, cfg.PoolConfig().Enabled)
	})

	t.Run("storage and runtime keys", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARKOVNET_DATA_DIR", "/srv/networks")
		t.Setenv("MARKOVNET_SYNC_WRITES", "on")
		t.Setenv("MARKOVNET_POOL_MAX_SIZE", "4096")
		t.Setenv("MARKOVNET_MEMORY_LIMIT", "768MB")
		t.Setenv("MARKOVNET_GC_PERCENT", "50")

		cfg := LoadFromEnv()
		assert.Equal(t, "/srv/networks", cfg.Storage.DataDir)
		assert.True(t, cfg.Storage.SyncWrites)
		assert.False(t, cfg.Storage.InMemory)
		assert.Equal(t, 4096, cfg.PoolConfig().MaxSize)
		assert.Equal(t, int64(768<<20), cfg.Runtime.MemoryLimitBytes())
		assert.Equal(t, 50, cfg.Runtime.GCPercent)
		assert.Contains(t, cfg.String(), "Memory: 768.00 MB")
		assert.NoError(t, cfg.Validate())
	})

	t.Run("malformed numbers keep defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARKOVNET_WORKERS", "many")
		cfg := LoadFromEnv()
		assert.Equal(t, runtime.NumCPU(), cfg.Algebra.Workers)
	})
}

// =============================================================================
// File Tests
// =============================================================================

func TestLoadFromEnvOrFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markovnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
algebra:
  workers: 2
  average_on_marginalize: true
storage:
  data_dir: /var/lib/markovnet
logging:
  level: warn
`), 0o644))

	t.Run("file values", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadFromEnvOrFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Algebra.Workers)
		assert.True(t, cfg.Algebra.AverageOnMarginalize)
		assert.Equal(t, "/var/lib/markovnet", cfg.Storage.DataDir)
		assert.Equal(t, "warn", cfg.Logging.Level)
		// untouched sections keep their defaults
		assert.True(t, cfg.Pool.Enabled)
	})

	t.Run("environment wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARKOVNET_WORKERS", "6")
		cfg, err := LoadFromEnvOrFile(path)
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Algebra.Workers)
	})

	t.Run("missing file uses defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := LoadFromEnvOrFile(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "./data", cfg.Storage.DataDir)
	})

	t.Run("broken file", func(t *testing.T) {
		clearEnv(t)
		broken := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(broken, []byte("algebra: [1, 2"), 0o644))
		_, err := LoadFromEnvOrFile(broken)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MARKOVNET_LOG_LEVEL", "loud")
		_, err := LoadFromEnvOrFile("")
		assert.ErrorContains(t, err, "log level")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero workers", func(c *Config) { c.Algebra.Workers = 0 }, "worker"},
		{"no data dir", func(c *Config) { c.Storage.DataDir = "" }, "data directory"},
		{"in memory without data dir", func(c *Config) { c.Storage.DataDir = ""; c.Storage.InMemory = true }, ""},
		{"pool size", func(c *Config) { c.Pool.MaxSize = 0 }, "pool"},
		{"negative memory", func(c *Config) { c.Runtime.MemoryLimit = "-1GB" }, "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runtime.MemoryLimit = "512MB"
	s := cfg.String()
	assert.Contains(t, s, "DataDir: ./data")
	assert.Contains(t, s, "Memory: 512.00 MB")
}

func TestRuntimeConfig_ApplyRuntimeMemory(t *testing.T) {
	defer debug.SetGCPercent(debug.SetGCPercent(100))
	defer debug.SetMemoryLimit(debug.SetMemoryLimit(-1))

	// defaults are a no-op
	cfg := &RuntimeConfig{MemoryLimit: "unlimited", GCPercent: 100}
	cfg.ApplyRuntimeMemory()

	tuned := &RuntimeConfig{MemoryLimit: "1GB", GCPercent: 50}
	tuned.ApplyRuntimeMemory()
	assert.Equal(t, int64(1<<30), debug.SetMemoryLimit(-1))
	assert.Equal(t, 50, debug.SetGCPercent(100))
}
