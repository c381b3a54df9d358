package manifest

import (
	"github.com/chazu/tryworks/pkg/construct"
	"github.com/chazu/tryworks/pkg/naming"
)

// StackProps configure a stack scope.
type StackProps struct {
	// Namespace is inherited by descendant resources that do not pin
	// their own.
	Namespace string
	// Labels and Annotations are merged into every descendant resource's
	// metadata, below the resource's own entries in precedence.
	Labels      map[string]string
	Annotations map[string]string
}

// Stack is a grouping construct that supplies a namespace and base labels
// and annotations to the resources beneath it. Resources read the nearest
// enclosing stack at construction; sibling stacks do not interact.
type Stack struct {
	node        *construct.Node
	namespace   string
	labels      map[string]string
	annotations map[string]string
}

// NewStack creates a stack scope under owner.
func NewStack(owner construct.Construct, id string, props StackProps) (*Stack, error) {
	s := &Stack{
		namespace:   props.Namespace,
		labels:      naming.MergeLabels(props.Labels),
		annotations: naming.MergeLabels(props.Annotations),
	}
	node, err := construct.NewNode(s, owner, id)
	if err != nil {
		return nil, err
	}
	s.node = node
	return s, nil
}

// TreeNode implements construct.Construct.
func (s *Stack) TreeNode() *construct.Node {
	return s.node
}

// Namespace returns the namespace descendants inherit.
func (s *Stack) Namespace() string {
	return s.namespace
}

// Labels returns the stack's label layer. The map is live: entries added
// here reach resources constructed afterwards, not ones that already
// resolved their metadata.
func (s *Stack) Labels() map[string]string {
	return s.labels
}

// Annotations returns the stack's annotation layer, with the same
// mutability contract as Labels.
func (s *Stack) Annotations() map[string]string {
	return s.annotations
}

// StackOf returns the nearest enclosing stack of c, or nil when no stack
// encloses it. A stack is its own nearest enclosing stack.
func StackOf(c construct.Construct) *Stack {
	for cur := c; cur != nil; {
		if s, ok := cur.(*Stack); ok {
			return s
		}
		owner := cur.TreeNode().Owner()
		if owner == nil {
			return nil
		}
		cur = owner
	}
	return nil
}
