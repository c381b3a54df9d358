package graph

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
	"github.com/chazu/tryworks/pkg/validation"
)

// fakeResource satisfies manifest.Resource for ordering tests.
type fakeResource struct {
	node *construct.Node
	kind string
	name string
}

func newFakeResource(t *testing.T, owner construct.Construct, id, kind string) *fakeResource {
	t.Helper()
	r := &fakeResource{kind: kind, name: id}
	node, err := construct.NewNode(r, owner, id)
	if err != nil {
		t.Fatalf("NewNode(%q) returned error: %v", id, err)
	}
	r.node = node
	return r
}

func (r *fakeResource) TreeNode() *construct.Node { return r.node }
func (r *fakeResource) APIVersion() string       { return "v1" }
func (r *fakeResource) Kind() string             { return r.kind }
func (r *fakeResource) Name() string             { return r.name }

func (r *fakeResource) Metadata() *manifest.Metadata {
	return &manifest.Metadata{Name: r.name}
}

func (r *fakeResource) Validate() []validation.Problem { return nil }

func (r *fakeResource) Document() (*unstructured.Unstructured, error) {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       r.kind,
		"metadata":   map[string]interface{}{"name": r.name},
	}}, nil
}

// hintedGroup is a composite construct that declares edges between its
// parts through the Hinter capability.
type hintedGroup struct {
	node  *construct.Node
	hints []Hint
}

func newHintedGroup(t *testing.T, owner construct.Construct, id string) *hintedGroup {
	t.Helper()
	g := &hintedGroup{}
	node, err := construct.NewNode(g, owner, id)
	if err != nil {
		t.Fatalf("NewNode(%q) returned error: %v", id, err)
	}
	g.node = node
	return g
}

func (g *hintedGroup) TreeNode() *construct.Node { return g.node }
func (g *hintedGroup) DependencyHints() []Hint   { return g.hints }

func mustScope(t *testing.T, owner construct.Construct, id string) *construct.Scope {
	t.Helper()
	s, err := construct.NewScope(owner, id)
	if err != nil {
		t.Fatalf("NewScope(%q) returned error: %v", id, err)
	}
	return s
}

func pathIndex(t *testing.T, ordered []construct.Construct, path string) int {
	t.Helper()
	for i, c := range ordered {
		if c.TreeNode().Path() == path {
			return i
		}
	}
	t.Fatalf("path %q not present in ordering", path)
	return -1
}

func TestAddDependencyAndLookup(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")
	cfg := newFakeResource(t, root, "config", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "reads config keys")

	deps := tracker.DependenciesOf(web)
	if len(deps) != 1 {
		t.Fatalf("DependenciesOf(web) returned %d edges, want 1", len(deps))
	}
	edge := deps[0]
	if edge.Dependency != construct.Construct(cfg) {
		t.Error("edge dependency is not the config construct")
	}
	if edge.Dependent != construct.Construct(web) {
		t.Error("edge dependent is not the web construct")
	}
	if edge.Type != EdgeRuntimeReference {
		t.Errorf("edge type = %q, want %q", edge.Type, EdgeRuntimeReference)
	}
	if edge.Description != "reads config keys" {
		t.Errorf("edge description = %q", edge.Description)
	}

	if deps := tracker.DependenciesOf(cfg); deps != nil {
		t.Errorf("DependenciesOf(config) = %v, want nil", deps)
	}
}

func TestAddDependencyIdempotent(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")
	cfg := newFakeResource(t, root, "config", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "first")
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "second")

	deps := tracker.DependenciesOf(web)
	if len(deps) != 1 {
		t.Fatalf("duplicate (dependency, type) pair was re-added: %d edges", len(deps))
	}
	if deps[0].Description != "first" {
		t.Errorf("re-add overwrote the original edge: %q", deps[0].Description)
	}

	// A different edge type is a distinct relation.
	tracker.AddDependency(web, cfg, EdgeConfiguration, "built from it")
	if deps := tracker.DependenciesOf(web); len(deps) != 2 {
		t.Errorf("distinct edge type not recorded: %d edges", len(deps))
	}
}

func TestAddDependencyIgnoresNil(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")

	tracker := NewTracker()
	tracker.AddDependency(web, nil, EdgeCustom, "")
	tracker.AddDependency(nil, web, EdgeCustom, "")

	if deps := tracker.DependenciesOf(web); deps != nil {
		t.Errorf("nil endpoints recorded edges: %v", deps)
	}
}

func TestDependenciesOfReturnsCopy(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")
	cfg := newFakeResource(t, root, "config", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "")

	deps := tracker.DependenciesOf(web)
	deps[0].Description = "mutated"
	if tracker.DependenciesOf(web)[0].Description != "" {
		t.Error("mutating the returned slice changed the registry")
	}
}

func TestDependentsOf(t *testing.T) {
	root := mustScope(t, nil, "app")
	cfg := newFakeResource(t, root, "config", "ConfigMap")
	web := newFakeResource(t, root, "web", "Deployment")
	worker := newFakeResource(t, root, "worker", "Deployment")

	tracker := NewTracker()
	tracker.AddDependency(worker, cfg, EdgeRuntimeReference, "")
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "")

	dependents := tracker.DependentsOf(cfg)
	if len(dependents) != 2 {
		t.Fatalf("DependentsOf(config) returned %d edges, want 2", len(dependents))
	}
	// Registry keys are scanned in sorted order.
	if dependents[0].Dependent.TreeNode().Path() != "app/web" {
		t.Errorf("first dependent = %q, want app/web", dependents[0].Dependent.TreeNode().Path())
	}
	if dependents[1].Dependent.TreeNode().Path() != "app/worker" {
		t.Errorf("second dependent = %q, want app/worker", dependents[1].Dependent.TreeNode().Path())
	}

	if got := tracker.DependentsOf(web); got != nil {
		t.Errorf("DependentsOf(web) = %v, want nil", got)
	}
}

func TestClear(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")
	cfg := newFakeResource(t, root, "config", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "")
	tracker.Clear()

	if deps := tracker.DependenciesOf(web); deps != nil {
		t.Errorf("Clear left edges behind: %v", deps)
	}
}

func TestAutoDetectDeclaredDependencies(t *testing.T) {
	root := mustScope(t, nil, "app")
	cfg := newFakeResource(t, root, "config", "ConfigMap")
	web := newFakeResource(t, root, "web", "Deployment")
	web.TreeNode().AddDependency(cfg)

	tracker := NewTracker()
	tracker.AutoDetect(slices.Collect(root.TreeNode().All()))

	deps := tracker.DependenciesOf(web)
	if len(deps) != 1 {
		t.Fatalf("declared dependency not detected: %d edges", len(deps))
	}
	if deps[0].Type != EdgeCreationOrder {
		t.Errorf("edge type = %q, want %q", deps[0].Type, EdgeCreationOrder)
	}
	if deps[0].Dependency != construct.Construct(cfg) {
		t.Error("edge dependency is not the declared construct")
	}
}

func TestAutoDetectHints(t *testing.T) {
	root := mustScope(t, nil, "app")
	group := newHintedGroup(t, root, "web")
	deploy := newFakeResource(t, group, "deployment", "Deployment")
	svc := newFakeResource(t, group, "service", "Service")
	group.hints = []Hint{
		{Dependent: svc, Dependency: deploy, Type: EdgeNetwork, Description: "routes traffic"},
	}

	tracker := NewTracker()
	tracker.AutoDetect(slices.Collect(root.TreeNode().All()))

	deps := tracker.DependenciesOf(svc)
	if len(deps) != 1 {
		t.Fatalf("hint not detected: %d edges", len(deps))
	}
	if deps[0].Type != EdgeNetwork {
		t.Errorf("edge type = %q, want %q", deps[0].Type, EdgeNetwork)
	}
}

func TestAutoDetectClearsPreviousRun(t *testing.T) {
	root := mustScope(t, nil, "app")
	web := newFakeResource(t, root, "web", "Deployment")
	cfg := newFakeResource(t, root, "config", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeCustom, "stale")
	tracker.AutoDetect(slices.Collect(root.TreeNode().All()))

	if deps := tracker.DependenciesOf(web); deps != nil {
		t.Errorf("stale edges survived AutoDetect: %v", deps)
	}
}

// ============================================================================
// Cycle detection
// ============================================================================

func TestDetectCyclesCleanTree(t *testing.T) {
	root := mustScope(t, nil, "app")
	cfg := newFakeResource(t, root, "config", "ConfigMap")
	web := newFakeResource(t, root, "web", "Deployment")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "")

	if cycles := tracker.DetectCycles(root); len(cycles) != 0 {
		t.Errorf("acyclic registry reported cycles: %v", cycles)
	}
}

func TestDetectCyclesThreeNodeLoop(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")
	c := newFakeResource(t, root, "c", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(a, b, EdgeCreationOrder, "")
	tracker.AddDependency(b, c, EdgeCreationOrder, "")
	tracker.AddDependency(c, a, EdgeCreationOrder, "")

	cycles := tracker.DetectCycles(root)
	if len(cycles) != 1 {
		t.Fatalf("DetectCycles returned %d cycles, want 1: %v", len(cycles), cycles)
	}
	cycle := cycles[0]
	if len(cycle) != 4 {
		t.Fatalf("cycle = %v, want three paths plus the closing repeat", cycle)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle %v is not closed", cycle)
	}
	for _, path := range []string{"app/a", "app/b", "app/c"} {
		if !slices.Contains(cycle, path) {
			t.Errorf("cycle %v missing %q", cycle, path)
		}
	}
}

func TestDetectCyclesMutualPair(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(a, b, EdgeCreationOrder, "")
	tracker.AddDependency(b, a, EdgeCreationOrder, "")

	cycles := tracker.DetectCycles(root)
	if len(cycles) != 1 {
		t.Fatalf("DetectCycles returned %d cycles, want 1: %v", len(cycles), cycles)
	}
	if !slices.Contains(cycles[0], "app/a") || !slices.Contains(cycles[0], "app/b") {
		t.Errorf("cycle %v must contain both paths", cycles[0])
	}
}

func TestDetectCyclesSelfEdge(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(a, a, EdgeCustom, "self")

	cycles := tracker.DetectCycles(root)
	if len(cycles) != 1 {
		t.Fatalf("self edge not reported as a cycle: %v", cycles)
	}
	want := []string{"app/a", "app/a"}
	if !slices.Equal(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestDetectCyclesDisjointLoops(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")
	c := newFakeResource(t, root, "c", "ConfigMap")
	d := newFakeResource(t, root, "d", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(a, b, EdgeCreationOrder, "")
	tracker.AddDependency(b, a, EdgeCreationOrder, "")
	tracker.AddDependency(c, d, EdgeCreationOrder, "")
	tracker.AddDependency(d, c, EdgeCreationOrder, "")

	if cycles := tracker.DetectCycles(root); len(cycles) != 2 {
		t.Errorf("DetectCycles returned %d cycles, want 2: %v", len(cycles), cycles)
	}
}

// ============================================================================
// Topological ordering
// ============================================================================

func TestOrderConstructsDiamond(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")
	c := newFakeResource(t, root, "c", "ConfigMap")
	d := newFakeResource(t, root, "d", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(b, a, EdgeCreationOrder, "")
	tracker.AddDependency(c, a, EdgeCreationOrder, "")
	tracker.AddDependency(d, b, EdgeCreationOrder, "")
	tracker.AddDependency(d, c, EdgeCreationOrder, "")

	nodes := []construct.Construct{d, c, b, a}
	ordered, err := tracker.OrderConstructs(nodes)
	if err != nil {
		t.Fatalf("OrderConstructs returned error: %v", err)
	}
	if len(ordered) != 4 {
		t.Fatalf("ordering has %d nodes, want 4", len(ordered))
	}

	// Every dependency appears strictly before its dependent.
	type pair struct{ dep, dependent string }
	for _, p := range []pair{
		{"app/a", "app/b"},
		{"app/a", "app/c"},
		{"app/b", "app/d"},
		{"app/c", "app/d"},
	} {
		if pathIndex(t, ordered, p.dep) >= pathIndex(t, ordered, p.dependent) {
			t.Errorf("%s does not precede %s in %v", p.dep, p.dependent, orderedPaths(ordered))
		}
	}
}

func TestOrderConstructsKeepsInputOrderWithoutEdges(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")
	c := newFakeResource(t, root, "c", "ConfigMap")

	tracker := NewTracker()
	ordered, err := tracker.OrderConstructs([]construct.Construct{c, a, b})
	if err != nil {
		t.Fatalf("OrderConstructs returned error: %v", err)
	}
	want := []string{"app/c", "app/a", "app/b"}
	if got := orderedPaths(ordered); !slices.Equal(got, want) {
		t.Errorf("ordering = %v, want %v", got, want)
	}
}

func TestOrderConstructsCycleFails(t *testing.T) {
	root := mustScope(t, nil, "app")
	a := newFakeResource(t, root, "a", "ConfigMap")
	b := newFakeResource(t, root, "b", "ConfigMap")
	c := newFakeResource(t, root, "c", "ConfigMap")

	tracker := NewTracker()
	tracker.AddDependency(a, b, EdgeCreationOrder, "")
	tracker.AddDependency(b, c, EdgeCreationOrder, "")
	tracker.AddDependency(c, a, EdgeCreationOrder, "")

	ordered, err := tracker.OrderConstructs([]construct.Construct{a, b, c})
	if err == nil {
		t.Fatalf("cycle silently produced an ordering: %v", orderedPaths(ordered))
	}
	if !IsCircularDependency(err) {
		t.Errorf("err = %v, want CircularDependencyError", err)
	}
	var cde *CircularDependencyError
	if errors.As(err, &cde) && cde.Path == "" {
		t.Error("error does not identify a construct on the cycle")
	}
}

func TestOrderedResourcesFiltersScopes(t *testing.T) {
	root := mustScope(t, nil, "app")
	group := mustScope(t, root, "group")
	cfg := newFakeResource(t, group, "config", "ConfigMap")
	web := newFakeResource(t, group, "web", "Deployment")

	tracker := NewTracker()
	tracker.AddDependency(web, cfg, EdgeRuntimeReference, "")

	resources, err := tracker.OrderedResources(slices.Collect(root.TreeNode().All()))
	if err != nil {
		t.Fatalf("OrderedResources returned error: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("OrderedResources returned %d resources, want 2", len(resources))
	}
	if resources[0].Name() != "config" || resources[1].Name() != "web" {
		t.Errorf("resources = [%s %s], want [config web]", resources[0].Name(), resources[1].Name())
	}
}

func orderedPaths(nodes []construct.Construct) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.TreeNode().Path()
	}
	return out
}

// ============================================================================
// Benchmarks
// ============================================================================

// buildChain creates n resources under one root where each depends on the
// previous one.
func buildChain(b *testing.B, n int) (*construct.Scope, []construct.Construct) {
	b.Helper()
	root, err := construct.NewScope(nil, "bench")
	if err != nil {
		b.Fatalf("NewScope returned error: %v", err)
	}
	nodes := make([]construct.Construct, 0, n+1)
	nodes = append(nodes, root)

	var prev *fakeResource
	for i := 0; i < n; i++ {
		r := &fakeResource{kind: "ConfigMap", name: fmt.Sprintf("r%d", i)}
		node, err := construct.NewNode(r, root, fmt.Sprintf("r%d", i))
		if err != nil {
			b.Fatalf("NewNode returned error: %v", err)
		}
		r.node = node
		if prev != nil {
			r.node.AddDependency(prev)
		}
		nodes = append(nodes, r)
		prev = r
	}
	return root, nodes
}

func BenchmarkAutoDetect_100Nodes(b *testing.B) {
	_, nodes := buildChain(b, 100)
	tracker := NewTracker()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tracker.AutoDetect(nodes)
	}
}

func BenchmarkOrderConstructs_100Nodes(b *testing.B) {
	_, nodes := buildChain(b, 100)
	tracker := NewTracker()
	tracker.AutoDetect(nodes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tracker.OrderConstructs(nodes)
	}
}

func BenchmarkDetectCycles_100Nodes(b *testing.B) {
	root, nodes := buildChain(b, 100)
	tracker := NewTracker()
	tracker.AutoDetect(nodes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = tracker.DetectCycles(root)
	}
}
