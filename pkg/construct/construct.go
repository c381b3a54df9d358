// Package construct provides the ownership tree that synthesis operates
// on. Every entity in the tree is a Construct; the Node type carries the
// tree bookkeeping (identity, owner, children, metadata, declared
// dependencies) on its behalf.
package construct

import (
	"iter"
	"strings"
)

// Construct is implemented by every entity in the ownership tree.
type Construct interface {
	// TreeNode returns the bookkeeping node for this construct.
	TreeNode() *Node
}

// Node carries the tree state of a single construct: its id, its owner,
// its ordered children, an open metadata bag, and the dependencies the
// construct has declared on other constructs.
//
// A node's owner is fixed at creation. There is no re-parenting and no
// removal, so ids and paths are stable for the life of the tree.
type Node struct {
	id       string
	self     Construct
	owner    Construct
	children []Construct
	childIDs map[string]bool
	meta     map[string]interface{}
	deps     []Construct
}

// NewNode creates the bookkeeping node for self and attaches it under
// owner. A nil owner makes self a tree root. Attaching fails with a
// *DuplicateIDError when owner already has a child with the same id.
func NewNode(self Construct, owner Construct, id string) (*Node, error) {
	n := &Node{
		id:    id,
		self:  self,
		owner: owner,
	}
	if owner != nil {
		if err := owner.TreeNode().adopt(self, id); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *Node) adopt(child Construct, id string) error {
	if n.childIDs[id] {
		return &DuplicateIDError{OwnerPath: n.Path(), ID: id}
	}
	if n.childIDs == nil {
		n.childIDs = make(map[string]bool)
	}
	n.childIDs[id] = true
	n.children = append(n.children, child)
	return nil
}

// ID returns the construct's identifier, unique among its siblings.
func (n *Node) ID() string {
	return n.id
}

// Owner returns the owning construct, or nil at a tree root.
func (n *Node) Owner() Construct {
	return n.owner
}

// Path returns the slash-joined ids from the root down to this node.
// An empty id (an anonymous root) contributes no segment.
func (n *Node) Path() string {
	var segments []string
	for node := n; ; {
		if node.id != "" {
			segments = append(segments, node.id)
		}
		if node.owner == nil {
			break
		}
		node = node.owner.TreeNode()
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

// Children returns the owned constructs in attachment order.
func (n *Node) Children() []Construct {
	out := make([]Construct, len(n.children))
	copy(out, n.children)
	return out
}

// SetMetadata attaches an arbitrary key/value pair to the node,
// replacing any previous value under the same key.
func (n *Node) SetMetadata(key string, value interface{}) {
	if n.meta == nil {
		n.meta = make(map[string]interface{})
	}
	n.meta[key] = value
}

// Metadata returns the value attached under key and whether it was set.
func (n *Node) Metadata(key string) (interface{}, bool) {
	v, ok := n.meta[key]
	return v, ok
}

// AddDependency declares that this construct must be considered created
// after deps. Declared dependencies are re-read by the dependency tracker
// on every synthesis run.
func (n *Node) AddDependency(deps ...Construct) {
	n.deps = append(n.deps, deps...)
}

// Dependencies returns the declared dependencies in declaration order.
func (n *Node) Dependencies() []Construct {
	out := make([]Construct, len(n.deps))
	copy(out, n.deps)
	return out
}

// All returns a lazy depth-first pre-order sequence over the subtree
// rooted at this node, starting with the node's own construct. The
// sequence is finite and restartable: each range starts a fresh walk.
func (n *Node) All() iter.Seq[Construct] {
	return n.FindAll(nil)
}

// FindAll returns the subtree constructs matching pred in depth-first
// pre-order. A nil predicate matches every construct.
func (n *Node) FindAll(pred func(Construct) bool) iter.Seq[Construct] {
	return func(yield func(Construct) bool) {
		n.walk(pred, yield)
	}
}

func (n *Node) walk(pred func(Construct) bool, yield func(Construct) bool) bool {
	if pred == nil || pred(n.self) {
		if !yield(n.self) {
			return false
		}
	}
	for _, child := range n.children {
		if !child.TreeNode().walk(pred, yield) {
			return false
		}
	}
	return true
}

// Scope is a plain construct with no behavior of its own, useful as an
// intermediate grouping node.
type Scope struct {
	node *Node
}

// NewScope creates an empty grouping construct under owner.
func NewScope(owner Construct, id string) (*Scope, error) {
	s := &Scope{}
	node, err := NewNode(s, owner, id)
	if err != nil {
		return nil, err
	}
	s.node = node
	return s, nil
}

// TreeNode implements Construct.
func (s *Scope) TreeNode() *Node {
	return s.node
}
