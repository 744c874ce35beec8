// Package pool provides scratch-slice pooling for the potential algebra.
//
// Every worker of a multiply or marginalize call needs a coordinate vector and
// one cursor per input table. Pooling those slices keeps the hot path free of
// allocations when the same network is evaluated repeatedly.
//
// Pooled objects:
// - Int slices (coordinates, per-input positions, accumulated offsets)
// - Float slices (partial sums)
//
// Usage:
//
//	coords := pool.GetIntSlice(len(vars))
//	defer pool.PutIntSlice(coords)
package pool

import (
	"sync"
)

// PoolConfig configures slice pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxSize limits the capacity of slices kept in each pool
	MaxSize int
}

var (
	configMu     sync.RWMutex
	globalConfig = PoolConfig{
		Enabled: true,
		MaxSize: 1 << 16,
	}
)

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(config PoolConfig) {
	configMu.Lock()
	globalConfig = config
	configMu.Unlock()

	// Reinitialize pools so slices sized under the old limit are dropped
	initPools()
}

// initPools reinitializes all pools with their New functions.
func initPools() {
	intSlicePool = sync.Pool{
		New: func() any {
			s := make([]int, 0, 16)
			return &s
		},
	}
	floatSlicePool = sync.Pool{
		New: func() any {
			s := make([]float64, 0, 64)
			return &s
		},
	}
}

func config() PoolConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return config().Enabled
}

// =============================================================================
// Int Slice Pool (coordinates and cursors)
// =============================================================================

var intSlicePool = sync.Pool{
	New: func() any {
		s := make([]int, 0, 16)
		return &s
	},
}

// GetIntSlice returns a zeroed slice of length n.
// Call PutIntSlice when done.
func GetIntSlice(n int) []int {
	if !IsEnabled() {
		return make([]int, n)
	}
	sp := intSlicePool.Get().(*[]int)
	s := *sp
	if cap(s) < n {
		return make([]int, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// PutIntSlice returns a slice to the pool.
func PutIntSlice(s []int) {
	cfg := config()
	if !cfg.Enabled || s == nil {
		return
	}
	// Don't pool very large slices (memory leak prevention)
	if cap(s) > cfg.MaxSize {
		return
	}
	s = s[:0]
	intSlicePool.Put(&s)
}

// =============================================================================
// Float Slice Pool (partial sums)
// =============================================================================

var floatSlicePool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 64)
		return &s
	},
}

// GetFloatSlice returns a zeroed slice of length n.
func GetFloatSlice(n int) []float64 {
	if !IsEnabled() {
		return make([]float64, n)
	}
	sp := floatSlicePool.Get().(*[]float64)
	s := *sp
	if cap(s) < n {
		return make([]float64, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// PutFloatSlice returns a slice to the pool.
func PutFloatSlice(s []float64) {
	cfg := config()
	if !cfg.Enabled || s == nil {
		return
	}
	if cap(s) > cfg.MaxSize {
		return
	}
	s = s[:0]
	floatSlicePool.Put(&s)
}
