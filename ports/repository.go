package ports

import (
	"context"

	"permsig/domain/sig"
)

// ResultRepository archives completed runs. Purely a reporting sink: core
// scoring logic never reads from it.
type ResultRepository interface {
	SaveRun(ctx context.Context, manifest *sig.RunManifest, records []sig.SignificanceRecord) error
	GetRun(ctx context.Context, runID string) (*sig.RunManifest, []sig.SignificanceRecord, error)
	Close() error
}
