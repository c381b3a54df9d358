package manifest

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/naming"
	"github.com/chazu/tryworks/pkg/validation"
)

// ManagedByValue is stamped on every generated resource.
const ManagedByValue = "tryworks"

// Well-known label keys applied to generated resources.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelManagedBy = "app.kubernetes.io/managed-by"
)

// Problem codes produced by the base metadata checks.
const (
	CodeInvalidName      = "INVALID_NAME"
	CodeInvalidNamespace = "INVALID_NAMESPACE"
	CodeInvalidLabel     = "INVALID_LABEL"
)

// BaseConfig configures the resource plumbing shared by every kind.
type BaseConfig struct {
	// APIVersion and Kind of the produced document.
	APIVersion string
	Kind       string

	// Name overrides deterministic name generation. Explicit names are
	// taken verbatim; collisions with siblings are left to validation.
	Name string

	// Namespace pins the document namespace. When empty, the nearest
	// enclosing stack's namespace is inherited.
	Namespace string

	// ClusterScoped suppresses namespace inheritance for kinds that are
	// not namespaced.
	ClusterScoped bool

	// Labels and Annotations are merged into the metadata with the
	// highest precedence.
	Labels      map[string]string
	Annotations map[string]string

	// AdditionalLabels sit between the enclosing stack's layer and the
	// resource's own. Kind constructors use them for component labels.
	AdditionalLabels map[string]string

	// Naming overrides the default name-generation options.
	Naming *naming.Options
}

// Base carries the plumbing shared by every concrete resource kind: tree
// attachment, deterministic naming with sibling collision resolution, and
// namespace, label, and annotation propagation from the enclosing stack.
// Embed it by value and implement Document.
type Base struct {
	node *construct.Node

	apiVersion string
	kind       string
	meta       Metadata
}

// NewBase attaches self under owner and resolves its metadata.
//
// The name is cfg.Name when set; otherwise it is generated from the tree
// path and collision-resolved against the siblings that exist at this
// point. Labels merge lowest to highest precedence: generated identity
// labels, the enclosing stack's layer, cfg.AdditionalLabels, cfg.Labels.
// Annotations merge the stack's layer under cfg.Annotations.
func NewBase(self construct.Construct, owner construct.Construct, id string, cfg BaseConfig) (*Base, error) {
	b := &Base{
		apiVersion: cfg.APIVersion,
		kind:       cfg.Kind,
	}
	node, err := construct.NewNode(self, owner, id)
	if err != nil {
		return nil, err
	}
	b.node = node

	opts := naming.DefaultOptions()
	if cfg.Naming != nil {
		opts = *cfg.Naming
	}

	name := cfg.Name
	if name == "" {
		// self's embedded Base is only assigned after NewBase returns, so
		// its TreeNode is still nil here; b carries the node just created.
		name, err = naming.ResolveCollision(b, naming.GenerateName(node.Path(), opts), opts)
		if err != nil {
			return nil, err
		}
	}

	stack := StackOf(b)

	namespace := cfg.Namespace
	if namespace == "" && !cfg.ClusterScoped && stack != nil {
		namespace = stack.Namespace()
	}

	generated := map[string]string{
		LabelName:      name,
		LabelManagedBy: ManagedByValue,
	}
	var stackLabels, stackAnnotations map[string]string
	if stack != nil {
		stackLabels = stack.Labels()
		stackAnnotations = stack.Annotations()
	}

	b.meta = Metadata{
		Name:        name,
		Namespace:   namespace,
		Labels:      naming.MergeLabels(generated, stackLabels, cfg.AdditionalLabels, cfg.Labels),
		Annotations: naming.MergeLabels(stackAnnotations, cfg.Annotations),
	}
	return b, nil
}

// TreeNode implements construct.Construct.
func (b *Base) TreeNode() *construct.Node {
	return b.node
}

// APIVersion returns the document apiVersion.
func (b *Base) APIVersion() string {
	return b.apiVersion
}

// Kind returns the document kind.
func (b *Base) Kind() string {
	return b.kind
}

// Name returns the resolved metadata name.
func (b *Base) Name() string {
	return b.meta.Name
}

// Namespace returns the resolved namespace, empty for cluster-scoped
// resources outside any stack.
func (b *Base) Namespace() string {
	return b.meta.Namespace
}

// Metadata returns the mutable metadata block.
func (b *Base) Metadata() *Metadata {
	return &b.meta
}

// Validate checks the resolved metadata against the identifier grammars.
// Kinds with their own checks shadow this and append to its result.
func (b *Base) Validate() []validation.Problem {
	var problems []validation.Problem
	path := b.node.Path()

	for _, msg := range naming.ValidateResourceName(b.meta.Name) {
		problems = append(problems, validation.Errorf(path, CodeInvalidName, "%s", msg))
	}
	if b.meta.Namespace != "" {
		for _, msg := range naming.ValidateNamespace(b.meta.Namespace) {
			problems = append(problems, validation.Errorf(path, CodeInvalidNamespace, "%s", msg))
		}
	}
	for _, msg := range naming.ValidateLabels(b.meta.Labels) {
		problems = append(problems, validation.Errorf(path, CodeInvalidLabel, "%s", msg))
	}
	return problems
}

// NewDocument returns a document skeleton with apiVersion, kind, and the
// resolved metadata filled in. Kinds that build documents by hand add
// their data and spec sections to it.
func (b *Base) NewDocument() *unstructured.Unstructured {
	metadata := map[string]interface{}{
		"name": b.meta.Name,
	}
	if b.meta.Namespace != "" {
		metadata["namespace"] = b.meta.Namespace
	}
	if len(b.meta.Labels) > 0 {
		metadata["labels"] = toInterfaceMap(b.meta.Labels)
	}
	if len(b.meta.Annotations) > 0 {
		metadata["annotations"] = toInterfaceMap(b.meta.Annotations)
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": b.apiVersion,
		"kind":       b.kind,
		"metadata":   metadata,
	}}
}

// ObjectMeta returns the resolved metadata as the typed meta block used
// by kinds built on the typed Kubernetes structs.
func (b *Base) ObjectMeta() metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:        b.meta.Name,
		Namespace:   b.meta.Namespace,
		Labels:      copyMap(b.meta.Labels),
		Annotations: copyMap(b.meta.Annotations),
	}
}

func toInterfaceMap(in map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
