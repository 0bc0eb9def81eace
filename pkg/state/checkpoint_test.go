package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obra/obra/pkg/model"
)

func TestSnapshotAndRestore_RevertsStatusChange(t *testing.T) {
	s := newTestManager(t)
	ctx := context.Background()
	projectID := newTestProject(t, s)

	epicID, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "epic"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(ctx, epicID, model.StatusReady, ""))

	checkpointID, err := s.Snapshot(ctx, projectID, "before risky change")
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, epicID, model.StatusInProgress, "worker-1"))
	require.NoError(t, s.UpdateStatus(ctx, epicID, model.StatusFailed, "worker-1"))

	require.NoError(t, s.RestoreCheckpoint(ctx, checkpointID))

	items, err := s.ReadyWorkItems(ctx, projectID)
	require.NoError(t, err)
	require.Empty(t, items) // restored item is `ready`, not `pending`, so it won't surface here

	p, err := s.GetProject(ctx, projectID)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestRestoreCheckpoint_SoftDeletesItemsCreatedAfterSnapshot(t *testing.T) {
	s := newTestManager(t)
	ctx := context.Background()
	projectID := newTestProject(t, s)

	_, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "first"})
	require.NoError(t, err)

	checkpointID, err := s.Snapshot(ctx, projectID, "baseline")
	require.NoError(t, err)

	laterID, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "second"})
	require.NoError(t, err)

	require.NoError(t, s.RestoreCheckpoint(ctx, checkpointID))

	// the second work item was soft-deleted by the restore and is no longer visible
	ready, err := s.ReadyWorkItems(ctx, projectID)
	require.NoError(t, err)
	for _, id := range ready {
		require.NotEqual(t, laterID, id)
	}
}

func TestRestoreCheckpoint_NotFound(t *testing.T) {
	s := newTestManager(t)
	err := s.RestoreCheckpoint(context.Background(), 999999)
	require.ErrorIs(t, err, ErrNotFound)
}
