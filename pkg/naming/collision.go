package naming

import (
	"errors"
	"fmt"

	"github.com/chazu/tryworks/pkg/construct"
)

// maxCollisionAttempts bounds the numeric suffixes tried before giving up.
const maxCollisionAttempts = 1000

// UnresolvedCollisionError reports a sibling name collision that numeric
// suffixing could not resolve within maxCollisionAttempts tries.
type UnresolvedCollisionError struct {
	// Path is the tree path of the construct being named.
	Path string
	// Name is the colliding base name.
	Name string
	// Attempts is the number of suffixes tried.
	Attempts int
}

func (e *UnresolvedCollisionError) Error() string {
	return fmt.Sprintf("could not resolve name collision for %q at %s after %d attempts", e.Name, e.Path, e.Attempts)
}

// IsUnresolvedCollision reports whether err or any error in its chain is
// an *UnresolvedCollisionError.
func IsUnresolvedCollision(err error) bool {
	var unresolved *UnresolvedCollisionError
	return errors.As(err, &unresolved)
}

// named is satisfied by constructs that have already resolved their
// metadata name, resource constructs in particular.
type named interface {
	Name() string
}

// DetectCollision reports whether proposed clashes with the name of any
// sibling of c. Siblings that expose a resolved name are compared by it;
// other constructs are compared by the name their path would generate.
// The construct itself is excluded, and a root construct never collides.
func DetectCollision(c construct.Construct, proposed string, opts Options) bool {
	node := c.TreeNode()
	owner := node.Owner()
	if owner == nil {
		return false
	}
	for _, sibling := range owner.TreeNode().Children() {
		if sibling.TreeNode() == node {
			continue
		}
		if siblingName(sibling, opts) == proposed {
			return true
		}
	}
	return false
}

func siblingName(c construct.Construct, opts Options) string {
	if n, ok := c.(named); ok {
		return n.Name()
	}
	return GenerateName(c.TreeNode().Path(), opts)
}

// ResolveCollision returns proposed unchanged when no sibling of c claims
// it, and otherwise appends "-1", "-2", ... until a free name is found.
// After 1000 attempts it fails with an *UnresolvedCollisionError.
func ResolveCollision(c construct.Construct, proposed string, opts Options) (string, error) {
	if !DetectCollision(c, proposed, opts) {
		return proposed, nil
	}
	for i := 1; i <= maxCollisionAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", proposed, i)
		if !DetectCollision(c, candidate, opts) {
			return candidate, nil
		}
	}
	return "", &UnresolvedCollisionError{
		Path:     c.TreeNode().Path(),
		Name:     proposed,
		Attempts: maxCollisionAttempts,
	}
}
