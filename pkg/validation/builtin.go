package validation

import (
	"regexp"

	"github.com/chazu/tryworks/pkg/construct"
)

// Codes for the problems produced by the built-in checks.
const (
	CodeRuleExecutionFailed = "RULE_EXECUTION_FAILED"
	CodeTreeCycle           = "TREE_CYCLE"
	CodeEmptyID             = "EMPTY_ID"
	CodeInvalidID           = "INVALID_ID"
	CodeMissingAPIVersion   = "MISSING_API_VERSION"
	CodeMissingKind         = "MISSING_KIND"
	CodeMissingName         = "MISSING_NAME"
	CodeDuplicateResource   = "DUPLICATE_RESOURCE"
)

// idPattern is the construct identifier grammar. Slashes are excluded so
// ids can never fake path segments.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// resourceInfo is the slice of the resource contract the built-in checks
// need; pkg/manifest's Resource satisfies it.
type resourceInfo interface {
	APIVersion() string
	Kind() string
	Name() string
}

// builtinProblems runs the structural checks every construct receives:
// identifier grammar, resource identity fields, and duplicate resource
// names among the construct's children.
func builtinProblems(c construct.Construct) []Problem {
	var problems []Problem
	node := c.TreeNode()
	path := node.Path()

	switch {
	case node.ID() == "":
		// Only the tree root may be anonymous.
		if node.Owner() != nil {
			problems = append(problems, Errorf(path, CodeEmptyID,
				"construct under %q has an empty id", node.Owner().TreeNode().Path()))
		}
	case !idPattern.MatchString(node.ID()):
		problems = append(problems, Errorf(path, CodeInvalidID,
			"construct id %q contains characters outside [A-Za-z0-9._-]", node.ID()))
	}

	if res, ok := c.(resourceInfo); ok {
		if res.APIVersion() == "" {
			problems = append(problems, Errorf(path, CodeMissingAPIVersion,
				"resource %q has no apiVersion", path))
		}
		if res.Kind() == "" {
			problems = append(problems, Errorf(path, CodeMissingKind,
				"resource %q has no kind", path))
		}
		if res.Name() == "" {
			problems = append(problems, Errorf(path, CodeMissingName,
				"resource %q has no metadata name", path))
		}
	}

	problems = append(problems, duplicateChildResources(node)...)
	return problems
}

// duplicateChildResources flags sibling resources sharing a (kind, name)
// pair. Generated names are collision-resolved at construction, so this
// catches explicitly named resources that clash.
func duplicateChildResources(node *construct.Node) []Problem {
	children := node.Children()
	if len(children) < 2 {
		return nil
	}

	var problems []Problem
	seen := make(map[string]string, len(children))
	for _, child := range children {
		res, ok := child.(resourceInfo)
		if !ok || res.Name() == "" {
			continue
		}
		key := res.Kind() + "\x00" + res.Name()
		childPath := child.TreeNode().Path()
		if firstPath, dup := seen[key]; dup {
			problems = append(problems, Errorf(childPath, CodeDuplicateResource,
				"resource %q duplicates the %s name %q of sibling %q",
				childPath, res.Kind(), res.Name(), firstPath))
			continue
		}
		seen[key] = childPath
	}
	return problems
}
