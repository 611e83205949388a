package tilegraph

import "log/slog"

// GraphOption configures a Graph at construction time, following a
// standard functional-options shape.
type GraphOption func(*graphConfig)

type graphConfig struct {
	threadCount int
	seed        [2]uint64
	haveSeed    bool
	logger      *slog.Logger
}

func defaultGraphConfig() graphConfig {
	return graphConfig{threadCount: 0}
}

// WithThreadCount fixes the worker count used by Compute's thread pool. A
// value of 0 (the default) selects a runtime-appropriate count.
func WithThreadCount(n int) GraphOption {
	return func(c *graphConfig) { c.threadCount = n }
}

// WithSeed injects a deterministic seed for the memory-distribution
// annealer's PRNG as an explicit dependency rather than a process-wide
// singleton, so runs are reproducible.
func WithSeed(seed1, seed2 uint64) GraphOption {
	return func(c *graphConfig) { c.seed = [2]uint64{seed1, seed2}; c.haveSeed = true }
}

// WithLogger installs a logger scoped to this Graph instead of the package
// default.
func WithLogger(l *slog.Logger) GraphOption {
	return func(c *graphConfig) { c.logger = l }
}
