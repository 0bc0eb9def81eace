// Package depgraph implements the Dependency Resolver (§4.12): cycle
// detection via Kahn's algorithm and cascade-blocking reachability over the
// work-item dependency graph.
//
// No component in this codebase's retrieval pack ships a DAG or
// topological-sort library, so this package is hand-written against the
// standard library rather than wired to a third-party dependency.
package depgraph

import (
	"errors"
	"fmt"
	"sort"
)

// CycleError reports that the graph contains a cycle; Remaining holds the
// ids that could not be ordered (a superset of every node on a cycle).
type CycleError struct {
	Remaining []int64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected among %d node(s)", len(e.Remaining))
}

// TopoSort orders nodes such that every dependency of a node precedes it,
// using Kahn's algorithm. edges maps a node id to the ids it depends on
// (edge direction: node -> dependency). Returns a CycleError if the graph
// is not a DAG.
func TopoSort(edges map[int64][]int64) ([]int64, error) {
	// inDegree here counts "depends-on" edges still unresolved *away* from a
	// node, i.e. we process nodes once all of their dependencies have been
	// emitted. Equivalently: build the reverse graph (dependency -> dependents)
	// and count of each node's unresolved dependency count.
	dependencyCount := make(map[int64]int, len(edges))
	dependents := make(map[int64][]int64)

	nodes := make(map[int64]struct{})
	for node, deps := range edges {
		nodes[node] = struct{}{}
		dependencyCount[node] = len(deps)
		for _, dep := range deps {
			nodes[dep] = struct{}{}
			dependents[dep] = append(dependents[dep], node)
		}
	}
	for n := range nodes {
		if _, ok := dependencyCount[n]; !ok {
			dependencyCount[n] = 0
		}
	}

	var queue []int64
	for n, count := range dependencyCount {
		if count == 0 {
			queue = append(queue, n)
		}
	}

	var order []int64
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dependent := range dependents[n] {
			dependencyCount[dependent]--
			if dependencyCount[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(nodes) {
		resolved := make(map[int64]bool, len(order))
		for _, n := range order {
			resolved[n] = true
		}
		var remaining []int64
		for n := range nodes {
			if !resolved[n] {
				remaining = append(remaining, n)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}
	return order, nil
}

// Reachable returns every node reachable from start by following edges
// (dependents of a node, not its dependencies) via breadth-first search —
// used to cascade a status change (e.g. blocked) to downstream work items.
func Reachable(dependents map[int64][]int64, start int64) []int64 {
	visited := map[int64]bool{start: true}
	queue := []int64{start}
	var order []int64
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range dependents[n] {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
				queue = append(queue, next)
			}
		}
	}
	return order
}

// ReverseEdges builds the dependents map (dependency -> [nodes depending on
// it]) from a dependency map (node -> [its dependencies]), the input shape
// Reachable needs for cascades.
func ReverseEdges(edges map[int64][]int64) map[int64][]int64 {
	reversed := make(map[int64][]int64, len(edges))
	for node, deps := range edges {
		for _, dep := range deps {
			reversed[dep] = append(reversed[dep], node)
		}
	}
	return reversed
}

// DepthLimited reports whether following dependency chains from start
// exceeds maxDepth hops, used to enforce a configured dependency-depth cap.
func DepthLimited(edges map[int64][]int64, start int64, maxDepth int) bool {
	type frame struct {
		id    int64
		depth int
	}
	queue := []frame{{id: start, depth: 0}}
	visited := map[int64]bool{start: true}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if f.depth > maxDepth {
			return true
		}
		for _, dep := range edges[f.id] {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, frame{id: dep, depth: f.depth + 1})
			}
		}
	}
	return false
}

// ReadySet is §4.12's named operation: the topological frontier, i.e. every
// node in edges whose dependencies are all present in completed. Returned
// in ascending id order for deterministic callers.
func ReadySet(edges map[int64][]int64, completed map[int64]bool) []int64 {
	var ready []int64
	for node, deps := range edges {
		ok := true
		for _, dep := range deps {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, node)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	return ready
}

// Validate is §4.12's named full-graph cycle check: nil if edges form a
// DAG, otherwise the ids implicated in the cycle as an ordered list.
func Validate(edges map[int64][]int64) ([]int64, error) {
	if _, err := TopoSort(edges); err != nil {
		var cycleErr *CycleError
		if errors.As(err, &cycleErr) {
			sort.Slice(cycleErr.Remaining, func(i, j int) bool { return cycleErr.Remaining[i] < cycleErr.Remaining[j] })
			return cycleErr.Remaining, err
		}
		return nil, err
	}
	return nil, nil
}

// Cascade is §4.12's named cascade operation: every id transitively
// dependent on failedID, the set that should be marked blocked once
// failedID can no longer complete.
func Cascade(edges map[int64][]int64, failedID int64) []int64 {
	return Reachable(ReverseEdges(edges), failedID)
}
