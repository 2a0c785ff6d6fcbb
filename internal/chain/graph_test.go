package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraphDependents(t *testing.T) {
	// 0 state, 1 season, 2 district, 3 taluk, 4 crop, 5 variety
	g := newGraph()
	g.addDependency(2, 0)
	g.addDependency(3, 2)
	g.addDependency(3, 0)
	g.addDependency(4, 0)
	g.addDependency(4, 1)
	g.addDependency(5, 4)

	require.Equal(t, []int{2, 3, 4, 5}, g.dependents(0))
	require.Equal(t, []int{4, 5}, g.dependents(1))
	require.Equal(t, []int{3}, g.dependents(2))
	require.Empty(t, g.dependents(5))

	require.Equal(t, []int{2, 3, 4}, g.children(0))
	require.Equal(t, []int{2, 0}, g.parents(3))
}

func TestGraphIgnoresDuplicateEdges(t *testing.T) {
	g := newGraph()
	g.addDependency(1, 0)
	g.addDependency(1, 0)
	require.Equal(t, []int{1}, g.children(0))
	require.Equal(t, []int{0}, g.parents(1))
}
