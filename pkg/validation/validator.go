package validation

import (
	"fmt"

	"github.com/chazu/tryworks/pkg/construct"
)

// RuleFunc inspects one construct and reports problems. Returning an
// error (or panicking) marks the rule execution itself as failed; the
// walk continues with the next rule.
type RuleFunc func(construct.Construct) ([]Problem, error)

// Rule is a named validation check applied to every construct in a walk.
type Rule struct {
	// ID identifies the rule; registering a rule under an existing ID
	// replaces it.
	ID string
	// Description says what the rule enforces.
	Description string
	// Skip disables the rule without unregistering it.
	Skip bool
	// Check is the rule body.
	Check RuleFunc
}

// Options control a validation walk.
type Options struct {
	// Recursive walks the whole subtree; when false only the given
	// construct is checked.
	Recursive bool
	// IncludeWarnings and IncludeInfo admit lower severities into the
	// result list. Errors are always admitted.
	IncludeWarnings bool
	IncludeInfo     bool
	// MaxProblems caps the result list. Zero means unlimited.
	MaxProblems int
}

// DefaultOptions returns the options the synthesis pipeline validates
// with: a recursive walk reporting errors and warnings.
func DefaultOptions() Options {
	return Options{Recursive: true, IncludeWarnings: true}
}

// Validator applies built-in structural checks and registered rules to
// construct trees. The rule list is caller-owned and mutable between
// walks; a Validator must not be mutated during a walk.
type Validator struct {
	rules []Rule
}

// NewValidator returns a validator with no custom rules registered. The
// built-in structural checks always run.
func NewValidator() *Validator {
	return &Validator{}
}

// AddRule registers r, replacing any rule with the same ID.
func (v *Validator) AddRule(r Rule) {
	for i := range v.rules {
		if v.rules[i].ID == r.ID {
			v.rules[i] = r
			return
		}
	}
	v.rules = append(v.rules, r)
}

// RemoveRule unregisters the rule with the given id, reporting whether it
// was present.
func (v *Validator) RemoveRule(id string) bool {
	for i := range v.rules {
		if v.rules[i].ID == id {
			v.rules = append(v.rules[:i], v.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Rules returns the registered rules in evaluation order.
func (v *Validator) Rules() []Rule {
	out := make([]Rule, len(v.rules))
	copy(out, v.rules)
	return out
}

// ValidateConstruct checks c and, when opts.Recursive is set, every
// construct below it. Each construct receives the built-in structural
// checks and then every non-skipped rule. A rule that errors or panics
// contributes a RULE_EXECUTION_FAILED problem and the walk continues.
func (v *Validator) ValidateConstruct(c construct.Construct, opts Options) *Result {
	result := &Result{}

	if !opts.Recursive {
		v.checkOne(c, result, opts)
		return result
	}

	// The traversal guards against trees whose Construct implementations
	// produce ownership cycles; Node.All would never terminate on those.
	seen := make(map[*construct.Node]bool)
	var walk func(construct.Construct)
	walk = func(cur construct.Construct) {
		node := cur.TreeNode()
		if seen[node] {
			result.add(Errorf(node.Path(), CodeTreeCycle,
				"construct %q is reachable through more than one ownership path", node.Path()), opts)
			return
		}
		seen[node] = true
		v.checkOne(cur, result, opts)
		for _, child := range node.Children() {
			walk(child)
		}
	}
	walk(c)

	return result
}

func (v *Validator) checkOne(c construct.Construct, result *Result, opts Options) {
	for _, p := range builtinProblems(c) {
		result.add(p, opts)
	}
	for _, rule := range v.rules {
		if rule.Skip {
			continue
		}
		problems, err := runRule(rule, c)
		if err != nil {
			result.add(Problem{
				Message:  fmt.Sprintf("rule %q failed: %v", rule.ID, err),
				Path:     c.TreeNode().Path(),
				Severity: SeverityError,
				Code:     CodeRuleExecutionFailed,
				Context:  map[string]string{"rule": rule.ID},
			}, opts)
			continue
		}
		for _, p := range problems {
			result.add(p, opts)
		}
	}
}

func runRule(rule Rule, c construct.Construct) (problems []Problem, err error) {
	defer func() {
		if r := recover(); r != nil {
			problems = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Check(c)
}
