package ports

import (
	"context"

	"permsig/domain/core"
	"permsig/domain/frame"
)

// FrameReader loads an external tabular source into a frame. The label
// column is named by the caller; every other column must be numeric.
type FrameReader interface {
	Read(ctx context.Context, path string, labelColumn core.FeatureKey) (*frame.Frame, error)
}
