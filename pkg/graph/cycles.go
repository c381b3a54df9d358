package graph

import "github.com/chazu/tryworks/pkg/construct"

// DetectCycles walks the dependency edges of every construct reachable
// from root and returns each cycle it finds as the list of paths along the
// cycle, closed with a repeat of the first path. An empty result means the
// registry is acyclic over this tree.
//
// Cycles touched from several starting points can surface more than once;
// callers that need a distinct set must deduplicate themselves.
func (t *Tracker) DetectCycles(root construct.Construct) [][]string {
	if root == nil {
		return nil
	}

	var cycles [][]string
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	for node := range root.TreeNode().All() {
		path := node.TreeNode().Path()
		if visited[path] {
			continue
		}
		t.findCycles(node, visited, visiting, nil, &cycles)
	}
	return cycles
}

// findCycles is a depth-first walk over dependency edges. The trail holds
// the paths on the current stack; hitting a path already marked visiting
// closes a cycle from its first occurrence in the trail.
func (t *Tracker) findCycles(node construct.Construct, visited, visiting map[string]bool, trail []string, cycles *[][]string) {
	path := node.TreeNode().Path()

	if visiting[path] {
		start := 0
		for i, p := range trail {
			if p == path {
				start = i
				break
			}
		}
		cycle := make([]string, 0, len(trail)-start+1)
		cycle = append(cycle, trail[start:]...)
		cycle = append(cycle, path)
		*cycles = append(*cycles, cycle)
		return
	}
	if visited[path] {
		return
	}

	visiting[path] = true
	trail = append(trail, path)

	for _, edge := range t.edges[path] {
		t.findCycles(edge.Dependency, visited, visiting, trail, cycles)
	}

	visiting[path] = false
	visited[path] = true
}
