// Package postgres archives completed runs. It is a reporting sink only:
// the permutation core never reads from it.
package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"permsig/domain/core"
	"permsig/domain/sig"
	"permsig/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS perm_runs (
	run_id       TEXT PRIMARY KEY,
	seed         BIGINT NOT NULL,
	trials       INTEGER NOT NULL,
	row_count    INTEGER NOT NULL,
	signal_count INTEGER NOT NULL,
	noise_count  INTEGER NOT NULL,
	alpha        DOUBLE PRECISION NOT NULL,
	statistic    TEXT NOT NULL,
	runtime_ms   BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS perm_significance (
	run_id         TEXT NOT NULL REFERENCES perm_runs(run_id) ON DELETE CASCADE,
	target         TEXT NOT NULL,
	statistic      TEXT NOT NULL,
	observed       DOUBLE PRECISION NOT NULL,
	empirical_tail DOUBLE PRECISION NOT NULL,
	chi_square_p   DOUBLE PRECISION NOT NULL,
	trials         INTEGER NOT NULL,
	selected       BOOLEAN NOT NULL,
	PRIMARY KEY (run_id, target, statistic)
);`

// ResultRepository persists run manifests and significance records
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository connects and ensures the schema exists
func NewResultRepository(databaseURL string) (*ResultRepository, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to experiment archive")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ensure archive schema")
	}
	return &ResultRepository{db: db}, nil
}

// SaveRun stores a manifest and its significance records atomically
func (r *ResultRepository) SaveRun(ctx context.Context, manifest *sig.RunManifest, records []sig.SignificanceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin archive transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO perm_runs (run_id, seed, trials, row_count, signal_count, noise_count, alpha, statistic, runtime_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		manifest.RunID.String(), manifest.Seed, manifest.Trials, manifest.RowCount,
		manifest.SignalCount, manifest.NoiseCount, manifest.Alpha, string(manifest.Statistic),
		manifest.RuntimeMs, manifest.CreatedAt.Time())
	if err != nil {
		return errors.Wrap(err, "failed to insert run manifest")
	}

	for _, rec := range records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO perm_significance (run_id, target, statistic, observed, empirical_tail, chi_square_p, trials, selected)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			manifest.RunID.String(), rec.Target.String(), string(rec.Statistic),
			rec.Observed, rec.EmpiricalTail, rec.ChiSquareP, rec.Trials, rec.Selected)
		if err != nil {
			return errors.Wrapf(err, "failed to insert significance record for %s", rec.Target)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit archive transaction")
	}
	return nil
}

// GetRun loads a manifest and its significance records
func (r *ResultRepository) GetRun(ctx context.Context, runID string) (*sig.RunManifest, []sig.SignificanceRecord, error) {
	var row struct {
		RunID       string    `db:"run_id"`
		Seed        int64     `db:"seed"`
		Trials      int       `db:"trials"`
		RowCount    int       `db:"row_count"`
		SignalCount int       `db:"signal_count"`
		NoiseCount  int       `db:"noise_count"`
		Alpha       float64   `db:"alpha"`
		Statistic   string    `db:"statistic"`
		RuntimeMs   int64     `db:"runtime_ms"`
		CreatedAt   time.Time `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM perm_runs WHERE run_id = $1`, runID); err != nil {
		return nil, nil, errors.Wrapf(err, "run %s not found in archive", runID)
	}
	manifest := &sig.RunManifest{
		RunID:       core.RunID(row.RunID),
		Seed:        row.Seed,
		Trials:      row.Trials,
		RowCount:    row.RowCount,
		SignalCount: row.SignalCount,
		NoiseCount:  row.NoiseCount,
		Alpha:       row.Alpha,
		Statistic:   sig.Statistic(row.Statistic),
		RuntimeMs:   row.RuntimeMs,
		CreatedAt:   core.NewTimestamp(row.CreatedAt),
	}

	var records []sig.SignificanceRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT target, statistic, observed, empirical_tail, chi_square_p, trials, selected
		FROM perm_significance WHERE run_id = $1 ORDER BY target`, runID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load significance records for run %s", runID)
	}
	return manifest, records, nil
}

// Close releases the connection pool
func (r *ResultRepository) Close() error {
	return r.db.Close()
}
