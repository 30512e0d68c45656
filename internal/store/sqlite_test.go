package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSpec() RunSpec {
	return RunSpec{
		StartPeriod:  "01/2024",
		EndPeriod:    "03/2024",
		VehicleTypes: []string{"car", "bike"},
		Mode:         "parallel",
		OutputDir:    "./out",
	}
}

func TestSQLite_RunLifecycle_Complete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSpec())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	counts := RunCounts{Periods: 3, Brands: 90, Models: 1500, YearModels: 6000, Values: 5800, TasksTotal: 180, TasksFailed: 2}
	require.NoError(t, st.CompleteRun(ctx, run.ID, counts))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	assert.Equal(t, testSpec(), got.Spec)
	require.NotNil(t, got.Counts)
	assert.Equal(t, counts, *got.Counts)
	assert.Empty(t, got.Error)
}

func TestSQLite_RunLifecycle_Failed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testSpec())
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, errors.New("period listing failed")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "period listing failed", got.Error)
	assert.Nil(t, got.Counts)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "missing-id", RunCounts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_FailRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FailRun(context.Background(), "missing-id", errors.New("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing-id")
	require.Error(t, err)
}

func TestSQLite_ListRuns_FilterAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx, testSpec())
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, testSpec())
	require.NoError(t, err)
	third, err := st.CreateRun(ctx, testSpec())
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, first.ID, RunCounts{}))
	require.NoError(t, st.FailRun(ctx, third.ID, errors.New("boom")))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	running, err := st.ListRuns(ctx, RunFilter{Status: RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
