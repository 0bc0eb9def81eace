package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obra/obra/pkg/model"
)

func TestRecordInteraction_IncrementsIterationCount(t *testing.T) {
	s := newTestManager(t)
	ctx := context.Background()
	projectID := newTestProject(t, s)

	id, err := s.CreateWorkItem(ctx, model.WorkItem{ProjectID: projectID, Kind: model.KindEpic, Title: "epic"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err = s.RecordInteraction(ctx, model.Interaction{
		WorkItemID:      id,
		Iteration:       1,
		Prompt:          "do the thing",
		Response:        "done",
		ValidatorOK:     true,
		ValidatorIssues: []string{"minor nit"},
		Decision:        model.DecisionAccept,
		Duration:        1500 * time.Millisecond,
		StartedAt:       now,
		CompletedAt:     now.Add(1500 * time.Millisecond),
	})
	require.NoError(t, err)

	interactions, err := s.Interactions(ctx, id)
	require.NoError(t, err)
	require.Len(t, interactions, 1)
	require.Equal(t, []string{"minor nit"}, interactions[0].ValidatorIssues)
	require.Equal(t, 1500*time.Millisecond, interactions[0].Duration)
}
