package chain

import "sort"

// graph holds the stage dependency edges by declaration index.
// Not safe for concurrent use; the chain owns it on a single event loop.
type graph struct {
	downstream map[int][]int
	upstream   map[int][]int
}

func newGraph() *graph {
	return &graph{
		downstream: make(map[int][]int),
		upstream:   make(map[int][]int),
	}
}

func (g *graph) addDependency(dependent, dependency int) {
	g.downstream[dependency] = appendUnique(g.downstream[dependency], dependent)
	g.upstream[dependent] = appendUnique(g.upstream[dependent], dependency)
}

// children returns the immediate dependents of idx in declaration order.
func (g *graph) children(idx int) []int {
	out := append([]int(nil), g.downstream[idx]...)
	sort.Ints(out)
	return out
}

func (g *graph) parents(idx int) []int {
	return append([]int(nil), g.upstream[idx]...)
}

// dependents returns every direct or transitive dependent of start, excluding
// start itself, in declaration order.
func (g *graph) dependents(start int) []int {
	stack := make([]int, 0, 8)
	stack = append(stack, start)
	visited := make(map[int]bool, 8)
	out := make([]int, 0, 8)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		if current != start {
			out = append(out, current)
		}
		for _, dep := range g.downstream[current] {
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}
	sort.Ints(out)
	return out
}

func appendUnique[T comparable](slice []T, item T) []T {
	for _, existing := range slice {
		if existing == item {
			return slice
		}
	}
	return append(slice, item)
}
