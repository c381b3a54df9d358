package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// DocumentGraph is a dependency view over finished documents, built by
// structural inspection rather than from the construct tree. It backs
// external tooling and diagnostics; the synthesis pipeline does not need
// it.
type DocumentGraph struct {
	// graph is the underlying structure from dominikbraun/graph.
	graph graph.Graph[string, string]

	// docs indexes documents by their graph key.
	docs map[string]*unstructured.Unstructured

	// order holds the stable topologically sorted keys.
	order []string
}

// DocumentKey identifies a document within a DocumentGraph as
// kind/namespace/name. Cluster-scoped documents carry an empty namespace
// segment.
func DocumentKey(doc *unstructured.Unstructured) string {
	return fmt.Sprintf("%s/%s/%s", doc.GetKind(), doc.GetNamespace(), doc.GetName())
}

// ResolveDependencies builds a DocumentGraph by scanning each document for
// well-known references to other documents in the same set: config and
// secret mounts, environment sources, claim and service-account names,
// service selectors matching workload template labels, and ingress
// backends. References to names outside the set are ignored. Edges run
// dependency -> dependent.
func ResolveDependencies(docs []*unstructured.Unstructured) (*DocumentGraph, error) {
	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	index := make(map[string]*unstructured.Unstructured, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		key := DocumentKey(doc)
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("duplicate document %s", key)
		}
		index[key] = doc
		if err := dg.AddVertex(key); err != nil {
			return nil, fmt.Errorf("failed to add vertex %s: %w", key, err)
		}
	}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		dependent := DocumentKey(doc)
		for _, ref := range referencedKeys(doc, index) {
			if ref == dependent {
				continue
			}
			if _, known := index[ref]; !known {
				continue
			}
			err := dg.AddEdge(ref, dependent)
			switch {
			case err == nil:
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, &CircularDependencyError{Path: dependent}
			default:
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", ref, dependent, err)
			}
		}
	}

	order, err := graph.StableTopologicalSort(dg, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to compute topological sort: %w", err)
	}

	return &DocumentGraph{
		graph: dg,
		docs:  index,
		order: order,
	}, nil
}

// Order returns the document keys in stable topological order.
func (g *DocumentGraph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Document retrieves a document by key.
func (g *DocumentGraph) Document(key string) (*unstructured.Unstructured, bool) {
	doc, found := g.docs[key]
	return doc, found
}

// Size returns the number of documents in the graph.
func (g *DocumentGraph) Size() int {
	return len(g.docs)
}

// Dependencies returns the keys of documents the given document depends
// on, sorted.
func (g *DocumentGraph) Dependencies(key string) ([]string, error) {
	if _, found := g.docs[key]; !found {
		return nil, fmt.Errorf("document %s not found", key)
	}
	preds, err := g.graph.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read predecessors: %w", err)
	}
	return sortedKeys(preds[key]), nil
}

// Dependents returns the keys of documents that depend on the given
// document, sorted.
func (g *DocumentGraph) Dependents(key string) ([]string, error) {
	if _, found := g.docs[key]; !found {
		return nil, fmt.Errorf("document %s not found", key)
	}
	adj, err := g.graph.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency: %w", err)
	}
	return sortedKeys(adj[key]), nil
}

// Roots returns the keys of documents nothing in the set depends on,
// sorted.
func (g *DocumentGraph) Roots() ([]string, error) {
	preds, err := g.graph.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read predecessors: %w", err)
	}
	var roots []string
	for key := range g.docs {
		if len(preds[key]) == 0 {
			roots = append(roots, key)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// Leaves returns the keys of documents that depend on nothing in the set,
// sorted.
func (g *DocumentGraph) Leaves() ([]string, error) {
	adj, err := g.graph.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency: %w", err)
	}
	var leaves []string
	for key := range g.docs {
		if len(adj[key]) == 0 {
			leaves = append(leaves, key)
		}
	}
	sort.Strings(leaves)
	return leaves, nil
}

func sortedKeys(m map[string]graph.Edge[string]) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// referencedKeys collects the keys of same-set documents this document
// structurally references. All name references are resolved within the
// document's own namespace.
func referencedKeys(doc *unstructured.Unstructured, index map[string]*unstructured.Unstructured) []string {
	namespace := doc.GetNamespace()

	var refs []string
	add := func(kind, name string) {
		if name == "" {
			return
		}
		refs = append(refs, fmt.Sprintf("%s/%s/%s", kind, namespace, name))
	}

	if spec, ok := podSpec(doc); ok {
		collectPodSpecRefs(spec, add)
	}

	switch doc.GetKind() {
	case "Service":
		selector, _, _ := unstructured.NestedStringMap(doc.Object, "spec", "selector")
		if len(selector) > 0 {
			refs = append(refs, workloadsMatching(selector, namespace, index)...)
		}
	case "Ingress":
		collectIngressRefs(doc, add)
	}
	return refs
}

// podSpec digs out the pod spec for the kinds that carry one.
func podSpec(doc *unstructured.Unstructured) (map[string]interface{}, bool) {
	switch doc.GetKind() {
	case "Pod":
		spec, found, _ := unstructured.NestedMap(doc.Object, "spec")
		return spec, found
	case "Deployment", "StatefulSet", "DaemonSet", "ReplicaSet", "Job":
		spec, found, _ := unstructured.NestedMap(doc.Object, "spec", "template", "spec")
		return spec, found
	case "CronJob":
		spec, found, _ := unstructured.NestedMap(doc.Object, "spec", "jobTemplate", "spec", "template", "spec")
		return spec, found
	}
	return nil, false
}

func collectPodSpecRefs(spec map[string]interface{}, add func(kind, name string)) {
	for _, field := range []string{"containers", "initContainers"} {
		containers, _, _ := unstructured.NestedSlice(spec, field)
		for _, c := range containers {
			container, ok := c.(map[string]interface{})
			if !ok {
				continue
			}

			env, _, _ := unstructured.NestedSlice(container, "env")
			for _, e := range env {
				entry, ok := e.(map[string]interface{})
				if !ok {
					continue
				}
				if name, _, _ := unstructured.NestedString(entry, "valueFrom", "configMapKeyRef", "name"); name != "" {
					add("ConfigMap", name)
				}
				if name, _, _ := unstructured.NestedString(entry, "valueFrom", "secretKeyRef", "name"); name != "" {
					add("Secret", name)
				}
			}

			envFrom, _, _ := unstructured.NestedSlice(container, "envFrom")
			for _, e := range envFrom {
				entry, ok := e.(map[string]interface{})
				if !ok {
					continue
				}
				if name, _, _ := unstructured.NestedString(entry, "configMapRef", "name"); name != "" {
					add("ConfigMap", name)
				}
				if name, _, _ := unstructured.NestedString(entry, "secretRef", "name"); name != "" {
					add("Secret", name)
				}
			}
		}
	}

	volumes, _, _ := unstructured.NestedSlice(spec, "volumes")
	for _, v := range volumes {
		volume, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		if name, _, _ := unstructured.NestedString(volume, "configMap", "name"); name != "" {
			add("ConfigMap", name)
		}
		if name, _, _ := unstructured.NestedString(volume, "secret", "secretName"); name != "" {
			add("Secret", name)
		}
		if name, _, _ := unstructured.NestedString(volume, "persistentVolumeClaim", "claimName"); name != "" {
			add("PersistentVolumeClaim", name)
		}
	}

	if name, _, _ := unstructured.NestedString(spec, "serviceAccountName"); name != "" {
		add("ServiceAccount", name)
	}
}

func collectIngressRefs(doc *unstructured.Unstructured, add func(kind, name string)) {
	if name, _, _ := unstructured.NestedString(doc.Object, "spec", "defaultBackend", "service", "name"); name != "" {
		add("Service", name)
	}

	rules, _, _ := unstructured.NestedSlice(doc.Object, "spec", "rules")
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		paths, _, _ := unstructured.NestedSlice(rule, "http", "paths")
		for _, p := range paths {
			path, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			if name, _, _ := unstructured.NestedString(path, "backend", "service", "name"); name != "" {
				add("Service", name)
			}
		}
	}
}

// workloadsMatching returns the keys of pod-template workloads in the same
// namespace whose template labels satisfy every selector pair.
func workloadsMatching(selector map[string]string, namespace string, index map[string]*unstructured.Unstructured) []string {
	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var refs []string
	for _, key := range keys {
		doc := index[key]
		if doc.GetNamespace() != namespace {
			continue
		}
		switch doc.GetKind() {
		case "Deployment", "StatefulSet", "DaemonSet", "ReplicaSet":
		default:
			continue
		}
		labels, _, _ := unstructured.NestedStringMap(doc.Object, "spec", "template", "metadata", "labels")
		if labelsMatch(selector, labels) {
			refs = append(refs, key)
		}
	}
	return refs
}

func labelsMatch(selector, labels map[string]string) bool {
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}
