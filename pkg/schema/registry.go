// Package schema holds the registry of manifest shapes and the checker
// that validates generated documents against them. Shapes are expressed
// as Kubernetes JSONSchemaProps and can be seeded from Go, extended from
// the embedded CUE module, or loaded from user CUE files.
package schema

import (
	"sort"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
)

// Registry maps apiVersion/kind pairs to their declared document shape.
// Construct one with NewRegistry or NewSeededRegistry; the zero value is
// not usable. A Registry is not safe for concurrent mutation.
type Registry struct {
	shapes map[string]apiextensionsv1.JSONSchemaProps
}

// NewRegistry returns an empty shape registry.
func NewRegistry() *Registry {
	return &Registry{shapes: make(map[string]apiextensionsv1.JSONSchemaProps)}
}

// Key returns the registry key for an apiVersion/kind pair.
func Key(apiVersion, kind string) string {
	return apiVersion + "/" + kind
}

// Register stores the shape for apiVersion/kind, replacing any previous
// registration.
func (r *Registry) Register(apiVersion, kind string, shape apiextensionsv1.JSONSchemaProps) {
	r.shapes[Key(apiVersion, kind)] = shape
}

// Lookup returns the shape registered for apiVersion/kind.
func (r *Registry) Lookup(apiVersion, kind string) (apiextensionsv1.JSONSchemaProps, bool) {
	shape, ok := r.shapes[Key(apiVersion, kind)]
	return shape, ok
}

// Clear removes every registered shape.
func (r *Registry) Clear() {
	r.shapes = make(map[string]apiextensionsv1.JSONSchemaProps)
}

// Kinds returns the registered apiVersion/kind keys in sorted order.
func (r *Registry) Kinds() []string {
	keys := make([]string, 0, len(r.shapes))
	for k := range r.shapes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
