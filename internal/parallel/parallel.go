// Package parallel provides data-parallel execution helpers for the
// rasterizer's per-splat and per-tile loops.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16, // One row of tiles is already worth a goroutine.
	}
}

// Workers returns the number of chunks that Chunks will split n items into.
// It is at least 1, so callers can size per-worker scratch up front.
func (cfg Config) Workers(n int) int {
	if n <= 0 {
		return 1
	}
	if !cfg.Enabled || n < cfg.MinChunkSize || cfg.NumWorkers <= 1 {
		return 1
	}
	chunk := chunkSize(n, cfg)
	return (n + chunk - 1) / chunk
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too
// small.
func For(n int, f func(i int), cfg Config) {
	Chunks(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}

// Chunks splits [0, n) into contiguous ranges and executes
// f(worker, start, end) for each, one goroutine per range. Worker indices are
// dense in [0, Workers(n)), so each invocation can own private scratch (for
// example a per-worker gradient accumulator) without synchronization.
func Chunks(n int, f func(worker, start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if cfg.Workers(n) == 1 {
		f(0, 0, n)
		return
	}

	var wg sync.WaitGroup
	chunk := chunkSize(n, cfg)
	worker := 0
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(w, s, e int) {
			defer wg.Done()
			f(w, s, e)
		}(worker, start, end)
		worker++
	}
	wg.Wait()
}

func chunkSize(n int, cfg Config) int {
	return max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
}
