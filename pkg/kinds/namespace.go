package kinds

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/manifest"
)

// NamespaceProps configures a Namespace construct.
type NamespaceProps struct {
	// Name overrides the generated name.
	Name string

	Labels      map[string]string
	Annotations map[string]string
}

// Namespace is a cluster-scoped namespace document.
type Namespace struct {
	manifest.Base
}

// NewNamespace creates a Namespace construct under owner.
func NewNamespace(owner construct.Construct, id string, props NamespaceProps) (*Namespace, error) {
	ns := &Namespace{}
	base, err := manifest.NewBase(ns, owner, id, manifest.BaseConfig{
		APIVersion:    "v1",
		Kind:          "Namespace",
		Name:          props.Name,
		ClusterScoped: true,
		Labels:        props.Labels,
		Annotations:   props.Annotations,
	})
	if err != nil {
		return nil, err
	}
	ns.Base = *base
	return ns, nil
}

// Document renders the namespace document.
func (n *Namespace) Document() (*unstructured.Unstructured, error) {
	return n.NewDocument(), nil
}
