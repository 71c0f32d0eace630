// Package rng implements ports.RNG with named, seeded streams so every
// stochastic operation in a run draws from its own deterministic source
// instead of mutating process-wide state.
package rng

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Adapter derives independent streams from a name and a base seed
type Adapter struct{}

// NewAdapter creates a stream adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// SeededStream creates a deterministic random number generator for a named
// operation. The same (name, seed) pair always yields the same stream.
func (a *Adapter) SeededStream(_ context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(name, seed))), nil
}

// Stream creates a deterministic RNG stream for a stage/target pair.
// Distinct targets get distinct streams; the name contains no per-run
// state, so the same (stage, target, seed) triple always replays.
func (a *Adapter) Stream(ctx context.Context, stageName, target string, baseSeed int64) (*rand.Rand, error) {
	return a.SeededStream(ctx, fmt.Sprintf("%s|%s", stageName, target), baseSeed)
}

// deriveSeed mixes the operation name into the base seed
func deriveSeed(name string, seed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return seed ^ int64(h.Sum64())
}
