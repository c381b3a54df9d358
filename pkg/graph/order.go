package graph

import (
	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
)

// OrderConstructs returns the given constructs sorted so that every
// dependency appears before its dependents. Nodes with no ordering
// relation keep their relative input order, since emission is post-order
// over the input sequence. A cycle aborts the sort with a
// CircularDependencyError naming a construct on the cycle.
func (t *Tracker) OrderConstructs(nodes []construct.Construct) ([]construct.Construct, error) {
	ordered := make([]construct.Construct, 0, len(nodes))
	visited := make(map[string]bool)
	visiting := make(map[string]bool)

	var visit func(construct.Construct) error
	visit = func(node construct.Construct) error {
		path := node.TreeNode().Path()
		if visited[path] {
			return nil
		}
		if visiting[path] {
			return &CircularDependencyError{Path: path}
		}

		visiting[path] = true
		for _, edge := range t.edges[path] {
			if err := visit(edge.Dependency); err != nil {
				return err
			}
		}
		visiting[path] = false
		visited[path] = true

		ordered = append(ordered, node)
		return nil
	}

	for _, node := range nodes {
		if node == nil {
			continue
		}
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

// OrderedResources topologically orders the given constructs and keeps
// only the ones that produce documents.
func (t *Tracker) OrderedResources(nodes []construct.Construct) ([]manifest.Resource, error) {
	ordered, err := t.OrderConstructs(nodes)
	if err != nil {
		return nil, err
	}

	var resources []manifest.Resource
	for _, node := range ordered {
		if res, ok := node.(manifest.Resource); ok {
			resources = append(resources, res)
		}
	}
	return resources, nil
}
