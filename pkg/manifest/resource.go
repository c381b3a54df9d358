// Package manifest defines the contract for constructs that produce
// output documents, the metadata they carry, and the stack scope that
// propagates namespace, labels, and annotations to descendants.
package manifest

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/validation"
)

// Metadata is the identity block stamped into every generated document.
// Name is resolved once at construction and must not change afterwards;
// the label and annotation maps stay mutable until synthesis reads them.
type Metadata struct {
	Name        string
	Namespace   string
	Labels      map[string]string
	Annotations map[string]string
}

// Resource is a construct that produces exactly one output document.
// Concrete kinds embed Base for the shared plumbing and implement
// Document (and Validate, when they have checks beyond the metadata
// grammar).
type Resource interface {
	construct.Construct

	// APIVersion and Kind identify the document type. They are fixed
	// per resource kind.
	APIVersion() string
	Kind() string

	// Name returns the resolved metadata name.
	Name() string

	// Metadata returns the mutable metadata block.
	Metadata() *Metadata

	// Validate reports structural and semantic problems with the
	// resource. Any problem blocks synthesis.
	Validate() []validation.Problem

	// Document renders the output document.
	Document() (*unstructured.Unstructured, error)
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
