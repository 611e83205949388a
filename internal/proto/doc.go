// Package proto implements the proto-graph adaptor: a shadow of
// internal/sched that replays the same schedule symbolically, using
// key-only proto-caches and per-node duration estimates instead of real
// pixels, to estimate total runtime cost for a candidate memory
// distribution. Its callers are internal/anneal and the root package's
// Graph.ComputationDuration.
package proto
