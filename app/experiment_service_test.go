package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permsig/adapters/glm"
	"permsig/adapters/rng"
	"permsig/domain/sig"
)

// memoryArchive records SaveRun calls in place of the Postgres adapter
type memoryArchive struct {
	manifests []*sig.RunManifest
	records   [][]sig.SignificanceRecord
}

func (m *memoryArchive) SaveRun(_ context.Context, manifest *sig.RunManifest, records []sig.SignificanceRecord) error {
	m.manifests = append(m.manifests, manifest)
	m.records = append(m.records, records)
	return nil
}

func (m *memoryArchive) GetRun(_ context.Context, _ string) (*sig.RunManifest, []sig.SignificanceRecord, error) {
	return nil, nil, nil
}

func (m *memoryArchive) Close() error { return nil }

func smallExperiment() ExperimentRequest {
	return ExperimentRequest{
		Title:       "integration",
		RowCount:    200,
		SignalCount: 3,
		NoiseCount:  1,
		Trials:      40,
		Alpha:       0.05,
		Statistic:   sig.StatDeviance,
		Seed:        25325,
	}
}

func TestExperimentService_Run(t *testing.T) {
	archive := &memoryArchive{}
	svc := NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), archive)

	result, err := svc.Run(context.Background(), smallExperiment())
	require.NoError(t, err)

	assert.Len(t, result.Null, 40, "null sample carries one value per trial")
	assert.Len(t, result.Coefficients, 3)
	assert.Equal(t, 40, result.Significance.Trials)
	assert.InDelta(t, 0.5, result.Significance.EmpiricalTail, 0.5, "tail is a probability")
	assert.GreaterOrEqual(t, result.Observed.Deviance, 0.0)
	assert.NotEmpty(t, result.Manifest.RunID)

	require.Len(t, archive.manifests, 1, "completed run must be archived")
	assert.Equal(t, result.Manifest.RunID, archive.manifests[0].RunID)
	require.Len(t, archive.records[0], 1)
	assert.Equal(t, result.Significance, archive.records[0][0])
}

func TestExperimentService_ReplaysFromSeed(t *testing.T) {
	svc := NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), nil)
	req := smallExperiment()

	first, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	// Fresh run IDs, identical results: nothing but the seed feeds the
	// random streams
	assert.NotEqual(t, first.Manifest.RunID, second.Manifest.RunID)
	assert.Equal(t, first.Observed, second.Observed)
	assert.Equal(t, first.Null, second.Null)
	assert.Equal(t, first.Significance.EmpiricalTail, second.Significance.EmpiricalTail)
	assert.Equal(t, first.Significance.ChiSquareP, second.Significance.ChiSquareP)
}

func TestExperimentService_ParallelWorkers(t *testing.T) {
	svc := NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), nil)

	req := smallExperiment()
	req.Workers = 4
	parallel, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, parallel.Null, req.Trials)
	assert.GreaterOrEqual(t, parallel.Significance.EmpiricalTail, 0.0)
	assert.LessOrEqual(t, parallel.Significance.EmpiricalTail, 1.0)
}

func TestExperimentService_SignalIsSignificant(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping refit-heavy scenario in short mode")
	}

	svc := NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), nil)
	req := ExperimentRequest{
		Title:       "strong signal",
		RowCount:    500,
		SignalCount: 5,
		NoiseCount:  2,
		Trials:      100,
		Alpha:       0.05,
		Statistic:   sig.StatDeviance,
		Seed:        777,
	}

	result, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Significance.Selected,
		"a frame built from genuine signal must clear the alpha threshold, tail=%f",
		result.Significance.EmpiricalTail)
	assert.Less(t, result.Significance.ChiSquareP, 0.05)
}

func TestExperimentService_PropagatesInvalidTrials(t *testing.T) {
	svc := NewExperimentService(glm.NewTrainer(), rng.NewAdapter(), nil)

	req := smallExperiment()
	req.Trials = 0
	_, err := svc.Run(context.Background(), req)
	assert.Error(t, err)
}
