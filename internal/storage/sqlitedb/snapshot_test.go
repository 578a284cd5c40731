package sqlitedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezilient/restore-request-service/internal/models"
)

func TestSnapshotStoreSeedsEmptyStateAtVersionZero(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "rrs.db"))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewJobStateStore(db)
	require.NoError(t, err)

	v, err := store.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	state, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Jobs)
	assert.Empty(t, state.Lock.RunningJobs)
}

func TestSnapshotStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rrs.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	store, err := NewJobStateStore(db)
	require.NoError(t, err)

	_, err = store.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_1"] = &models.JobRecord{JobID: "job_1", Status: models.JobStatusRunning}
		state.Lock.RunningJobs = []models.RunningLockEntry{{JobID: "job_1", Tables: []string{"incident"}}}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	store, err = NewJobStateStore(db)
	require.NoError(t, err)

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	state, err := store.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Jobs["job_1"])
	assert.Equal(t, models.JobStatusRunning, state.Jobs["job_1"].Status)
	require.Len(t, state.Lock.RunningJobs, 1)
	assert.Equal(t, []string{"incident"}, state.Lock.RunningJobs[0].Tables)
}

func TestSnapshotStoreRollsBackOnMutatorError(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "rrs.db"))
	require.NoError(t, err)
	defer db.Close()

	store, err := NewJobStateStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	boom := errors.New("boom")
	_, err = store.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_x"] = &models.JobRecord{JobID: "job_x"}
		return boom
	})
	require.ErrorIs(t, err, boom)

	state, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Jobs)

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestJobAndPlanStoresAreIndependentRows(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "rrs.db"))
	require.NoError(t, err)
	defer db.Close()

	jobs, err := NewJobStateStore(db)
	require.NoError(t, err)
	plans, err := NewPlanStateStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = jobs.Mutate(ctx, func(state *models.JobState) error {
		state.Jobs["job_1"] = &models.JobRecord{JobID: "job_1"}
		return nil
	})
	require.NoError(t, err)

	pv, err := plans.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pv, "mutating the job store must not touch the plan row")

	jv, err := jobs.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), jv)
}
