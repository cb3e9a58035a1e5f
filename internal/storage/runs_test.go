package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/fraud-detection/internal/engine"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ engine.Recorder = (*SQLiteStorage)(nil)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRun(id string, started time.Time) *model.Run {
	return &model.Run{
		ID:              id,
		StartedAt:       started,
		TrainingFile:    "train.csv",
		AnalysisFile:    "analysis.csv",
		ModelFile:       "model.fdnn",
		MinimumAccuracy: 0.95,
		State:           model.StateIdle,
	}
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	require.NoError(t, store.Migrate(ctx), "migrating twice is a no-op")
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.FileExists(t, path)
	assert.Equal(t, path, store.Path())
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestRunLifecycle(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	run := testRun("run-1", started)
	require.NoError(t, store.StartRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, got.State)
	assert.True(t, got.FinishedAt.IsZero())
	assert.True(t, started.Equal(got.StartedAt))

	iterations := []*model.Iteration{
		{
			RunID:     "run-1",
			Number:    1,
			Source:    model.SourceTrained,
			Model:     "feedforward [37:25:2]",
			Accuracy:  0.3,
			Duration:  1500 * time.Millisecond,
			CreatedAt: started.Add(time.Minute),
			Summary: model.ConfusionSummary{
				TotalRows: 10, TotalLabeledFraud: 3, CorrectlyIdentifiedFraud: 3, FalsePositive: 7,
			},
		},
		{
			RunID:     "run-1",
			Number:    2,
			Source:    model.SourceTrained,
			Model:     "feedforward [37:25:2]",
			Accuracy:  0.97,
			Accepted:  true,
			Duration:  time.Second,
			CreatedAt: started.Add(2 * time.Minute),
		},
	}
	for _, it := range iterations {
		require.NoError(t, store.RecordIteration(ctx, it))
	}

	run.State = model.StateAccepted
	run.FinishedAt = started.Add(3 * time.Minute)
	run.FinalAccuracy = 0.97
	run.Iterations = 2
	run.Persisted = true
	require.NoError(t, store.FinishRun(ctx, run))

	got, err = store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.StateAccepted, got.State)
	assert.Equal(t, 0.97, got.FinalAccuracy)
	assert.Equal(t, 2, got.Iterations)
	assert.True(t, got.Persisted)
	assert.Empty(t, got.Error)
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))

	stored, err := store.ListIterations(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, iterations[0].Summary, stored[0].Summary)
	assert.Equal(t, 1500*time.Millisecond, stored[0].Duration)
	assert.Equal(t, model.SourceTrained, stored[0].Source)
	assert.False(t, stored[0].Accepted)
	assert.True(t, stored[1].Accepted)
}

func TestFinishRun_RecordsFailure(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	run := testRun("run-failed", time.Now())
	require.NoError(t, store.StartRun(ctx, run))

	run.State = model.StateFailed
	run.Error = "trainer failure: diverged"
	run.FinishedAt = time.Now()
	require.NoError(t, store.FinishRun(ctx, run))

	got, err := store.GetRun(ctx, "run-failed")
	require.NoError(t, err)
	assert.Equal(t, model.StateFailed, got.State)
	assert.Equal(t, "trainer failure: diverged", got.Error)
	assert.False(t, got.Persisted)
}

func TestListRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.StartRun(ctx, testRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	recent, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
}

func TestRunErrors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		err  error
		call func() error
		name string
	}{
		{
			name: "unknown run on finish",
			call: func() error { return store.FinishRun(ctx, testRun("ghost", time.Now())) },
			err:  ErrRunNotFound,
		},
		{
			name: "unknown run on get",
			call: func() error { _, err := store.GetRun(ctx, "ghost"); return err },
			err:  ErrRunNotFound,
		},
		{
			name: "nil run",
			call: func() error { return store.StartRun(ctx, nil) },
			err:  ErrNilParameter,
		},
		{
			name: "run without ID",
			call: func() error { return store.StartRun(ctx, testRun("", time.Now())) },
			err:  ErrInvalidRun,
		},
		{
			name: "iteration numbered zero",
			call: func() error {
				return store.RecordIteration(ctx, &model.Iteration{RunID: "x", Source: model.SourceLoaded})
			},
			err: ErrInvalidIteration,
		},
		{
			name: "iteration with unknown source",
			call: func() error {
				return store.RecordIteration(ctx, &model.Iteration{RunID: "x", Number: 1, Source: "GUESSED"})
			},
			err: ErrInvalidIteration,
		},
		{
			name: "nil context",
			//nolint:staticcheck // exercising the nil guard
			call: func() error { _, err := store.ListRuns(nil, 1); return err },
			err:  ErrNilContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.err)
		})
	}
}

func TestRecordIteration_RequiresRun(t *testing.T) {
	store := createTestStorage(t)

	err := store.RecordIteration(context.Background(), &model.Iteration{
		RunID:     "missing",
		Number:    1,
		Source:    model.SourceTrained,
		CreatedAt: time.Now(),
	})
	assert.Error(t, err, "foreign key on run_id")
}

func TestDuplicateRunRejected(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.StartRun(ctx, testRun("dup", time.Now())))
	assert.Error(t, store.StartRun(ctx, testRun("dup", time.Now())))
}
