package ports

import (
	"context"
	"math/rand"
)

// RNG provides seeded random number generation for deterministic operations.
// The permutation engine draws every shuffle from an injected stream; nothing
// in the core touches the global random source.
type RNG interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for a stage/target pair.
	// Stream names carry no per-run state, so repeated runs with the same
	// seed replay identical draws per stage and per target.
	Stream(ctx context.Context, stageName, target string, baseSeed int64) (*rand.Rand, error)
}
