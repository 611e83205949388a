// Package anneal implements the memory-distribution optimizer: a
// feasibility phase that classifies a memory limit as ENOUGH_FOR_ALL,
// SUFFICIENT, or TOO_LITTLE and produces a starting per-node byte
// distribution, followed by a Metropolis simulated-annealing search over
// neighbouring distributions scored by replaying internal/proto's shadow
// simulator.
package anneal
