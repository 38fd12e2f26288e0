package usecase

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTrackerInitialState(t *testing.T) {
	t.Parallel()

	snap := NewStatusTracker().Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, "Not run yet", snap.Message)
	assert.Nil(t, snap.LastRun)
	assert.Empty(t, snap.JobID)
}

func TestStatusTrackerGate(t *testing.T) {
	t.Parallel()

	tracker := NewStatusTracker()
	started, err := tracker.TryStart()
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, started.Status)
	require.NotNil(t, started.LastRun)

	id, err := uuid.Parse(started.JobID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	tracker.AddNewDocument()
	tracker.AddProcessed()
	tracker.AddFailed()
	before := tracker.Snapshot()

	again, err := tracker.TryStart()
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, started.JobID, again.JobID)
	assert.Equal(t, before, tracker.Snapshot())

	tracker.Complete("done")
	snap := tracker.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "done", snap.Message)
	assert.Equal(t, 1, snap.NewDocuments)

	next, err := tracker.TryStart()
	require.NoError(t, err)
	assert.NotEqual(t, started.JobID, next.JobID)
	assert.Zero(t, next.NewDocuments)
	assert.Zero(t, next.Processed)
	assert.Zero(t, next.Failed)
}

func TestStatusTrackerFail(t *testing.T) {
	t.Parallel()

	tracker := NewStatusTracker()
	_, err := tracker.TryStart()
	require.NoError(t, err)

	tracker.Fail(errors.New("listing exploded"))
	snap := tracker.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "Error: listing exploded", snap.Message)

	_, err = tracker.TryStart()
	assert.NoError(t, err)
}

func TestStatusSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	tracker := NewStatusTracker()
	_, err := tracker.TryStart()
	require.NoError(t, err)

	snap := tracker.Snapshot()
	original := *snap.LastRun
	*snap.LastRun = original.AddDate(1, 0, 0)
	assert.Equal(t, original, *tracker.Snapshot().LastRun)
}
