package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obra/obra/pkg/model"
)

func TestCascadeBlock_MarksTransitiveDependentsBlocked(t *testing.T) {
	s := newTestManager(t)
	ctx := context.Background()
	projectID := newTestProject(t, s)

	root, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "root"})
	require.NoError(t, err)
	mid, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "mid"})
	require.NoError(t, err)
	leaf, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "leaf"})
	require.NoError(t, err)

	require.NoError(t, s.AddDependency(ctx, mid, root))
	require.NoError(t, s.AddDependency(ctx, leaf, mid))

	require.NoError(t, s.UpdateStatus(ctx, root, model.StatusReady, ""))
	require.NoError(t, s.UpdateStatus(ctx, root, model.StatusInProgress, "worker-1"))
	require.NoError(t, s.UpdateStatus(ctx, root, model.StatusFailed, "worker-1"))

	blocked, err := s.CascadeBlock(ctx, root)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{mid, leaf}, blocked)

	got, err := s.GetWorkItem(ctx, mid)
	require.NoError(t, err)
	require.Equal(t, model.StatusBlocked, got.Status)
}

func TestCascadeBlock_SkipsTerminalDependents(t *testing.T) {
	s := newTestManager(t)
	ctx := context.Background()
	projectID := newTestProject(t, s)

	root, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "root"})
	require.NoError(t, err)
	done, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "done"})
	require.NoError(t, err)
	require.NoError(t, s.AddDependency(ctx, done, root))

	require.NoError(t, s.UpdateStatus(ctx, done, model.StatusReady, ""))
	require.NoError(t, s.UpdateStatus(ctx, done, model.StatusInProgress, "worker-1"))
	require.NoError(t, s.UpdateStatus(ctx, done, model.StatusCompleted, "worker-1"))

	blocked, err := s.CascadeBlock(ctx, root)
	require.NoError(t, err)
	require.Empty(t, blocked)
}
