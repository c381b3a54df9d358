package graph

import (
	"sort"

	"github.com/chazu/tryworks/pkg/construct"
)

// EdgeType classifies why one construct depends on another.
type EdgeType string

const (
	// EdgeCreationOrder means the dependency must simply exist first.
	EdgeCreationOrder EdgeType = "creation-order"

	// EdgeRuntimeReference means the dependent reads the dependency at
	// runtime, for example a workload consuming a config object's keys.
	EdgeRuntimeReference EdgeType = "runtime-reference"

	// EdgeConfiguration means the dependency carries configuration the
	// dependent is built from.
	EdgeConfiguration EdgeType = "configuration"

	// EdgeNetwork means the dependent routes traffic to the dependency.
	EdgeNetwork EdgeType = "network"

	// EdgeCustom is for caller-defined relations.
	EdgeCustom EdgeType = "custom"
)

// Edge is a directed dependency relation between two constructs. The
// dependent requires the dependency.
type Edge struct {
	// Dependent is the construct that needs the other one.
	Dependent construct.Construct

	// Dependency is the construct being depended on.
	Dependency construct.Construct

	// Type classifies the relation.
	Type EdgeType

	// Description is a short human-readable note for diagnostics.
	Description string
}

// Hint declares one dependency edge a composite construct knows about its
// own parts.
type Hint struct {
	Dependent   construct.Construct
	Dependency  construct.Construct
	Type        EdgeType
	Description string
}

// Hinter is implemented by composite constructs that can describe the
// dependency edges implied by their internal wiring. AutoDetect asks every
// node for hints; constructs without the capability contribute nothing.
type Hinter interface {
	DependencyHints() []Hint
}

// Tracker is the per-run dependency edge registry. Edges are keyed by the
// dependent construct's path. A tracker is not safe for concurrent use;
// each synthesis run owns its own instance.
type Tracker struct {
	edges map[string][]Edge
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		edges: make(map[string][]Edge),
	}
}

// AddDependency records that dependent requires dependency. Re-adding an
// edge with the same dependency path and type is a no-op, so callers can
// declare the same relation from multiple places without bloating the
// registry.
func (t *Tracker) AddDependency(dependent, dependency construct.Construct, edgeType EdgeType, description string) {
	if dependent == nil || dependency == nil {
		return
	}

	key := dependent.TreeNode().Path()
	depPath := dependency.TreeNode().Path()
	for _, e := range t.edges[key] {
		if e.Dependency.TreeNode().Path() == depPath && e.Type == edgeType {
			return
		}
	}

	t.edges[key] = append(t.edges[key], Edge{
		Dependent:   dependent,
		Dependency:  dependency,
		Type:        edgeType,
		Description: description,
	})
}

// DependenciesOf returns the edges where c is the dependent, in insertion
// order. The returned slice is a copy.
func (t *Tracker) DependenciesOf(c construct.Construct) []Edge {
	if c == nil {
		return nil
	}
	edges := t.edges[c.TreeNode().Path()]
	if len(edges) == 0 {
		return nil
	}
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// DependentsOf returns the edges where c is the dependency. This scans the
// whole registry; dependent keys are visited in sorted order so the result
// is deterministic.
func (t *Tracker) DependentsOf(c construct.Construct) []Edge {
	if c == nil {
		return nil
	}
	target := c.TreeNode().Path()

	keys := make([]string, 0, len(t.edges))
	for key := range t.edges {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Edge
	for _, key := range keys {
		for _, e := range t.edges[key] {
			if e.Dependency.TreeNode().Path() == target {
				out = append(out, e)
			}
		}
	}
	return out
}

// Clear drops every recorded edge.
func (t *Tracker) Clear() {
	t.edges = make(map[string][]Edge)
}

// AutoDetect rebuilds the registry from the given node set. Existing edges
// are discarded first, so one tracker can serve consecutive runs. Two
// sources feed the registry: dependencies declared directly on a node, and
// hints from constructs implementing Hinter.
func (t *Tracker) AutoDetect(nodes []construct.Construct) {
	t.Clear()

	for _, node := range nodes {
		if node == nil {
			continue
		}
		for _, dep := range node.TreeNode().Dependencies() {
			t.AddDependency(node, dep, EdgeCreationOrder, "declared dependency")
		}
	}

	for _, node := range nodes {
		hinter, ok := node.(Hinter)
		if !ok {
			continue
		}
		for _, h := range hinter.DependencyHints() {
			t.AddDependency(h.Dependent, h.Dependency, h.Type, h.Description)
		}
	}
}
