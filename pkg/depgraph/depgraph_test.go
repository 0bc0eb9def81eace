package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSort_OrdersDependenciesFirst(t *testing.T) {
	// 3 depends on 2, 2 depends on 1.
	edges := map[int64][]int64{3: {2}, 2: {1}, 1: {}}
	order, err := TopoSort(edges)
	require.NoError(t, err)

	pos := make(map[int64]int, len(order))
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos[1], pos[2])
	assert.Less(t, pos[2], pos[3])
}

func TestTopoSort_DetectsCycle(t *testing.T) {
	edges := map[int64][]int64{1: {2}, 2: {1}}
	_, err := TopoSort(edges)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []int64{1, 2}, cycleErr.Remaining)
}

func TestTopoSort_DetectsSelfCycle(t *testing.T) {
	edges := map[int64][]int64{1: {1}}
	_, err := TopoSort(edges)
	require.Error(t, err)
}

func TestReachable_FindsDownstreamDependents(t *testing.T) {
	// 2 depends on 1, 3 depends on 2.
	edges := map[int64][]int64{2: {1}, 3: {2}}
	dependents := ReverseEdges(edges)

	downstream := Reachable(dependents, 1)
	assert.ElementsMatch(t, []int64{2, 3}, downstream)
}

func TestDepthLimited(t *testing.T) {
	edges := map[int64][]int64{4: {3}, 3: {2}, 2: {1}, 1: {}}
	assert.False(t, DepthLimited(edges, 4, 5))
	assert.True(t, DepthLimited(edges, 4, 1))
}

func TestReadySet_FiltersByCompletedDependencies(t *testing.T) {
	edges := map[int64][]int64{1: {}, 2: {1}, 3: {1, 2}}
	ready := ReadySet(edges, map[int64]bool{1: true})
	assert.Equal(t, []int64{1, 2}, ready)
}

func TestValidate_ReturnsNilForDAG(t *testing.T) {
	edges := map[int64][]int64{2: {1}, 1: {}}
	cycle, err := Validate(edges)
	require.NoError(t, err)
	assert.Nil(t, cycle)
}

func TestValidate_ReturnsOrderedCycleMembers(t *testing.T) {
	edges := map[int64][]int64{1: {2}, 2: {1}}
	cycle, err := Validate(edges)
	require.Error(t, err)
	assert.Equal(t, []int64{1, 2}, cycle)
}

func TestCascade_FindsTransitiveDependents(t *testing.T) {
	// 2 depends on 1, 3 depends on 2: failing 1 should cascade to 2 and 3.
	edges := map[int64][]int64{2: {1}, 3: {2}}
	blocked := Cascade(edges, 1)
	assert.ElementsMatch(t, []int64{2, 3}, blocked)
}
