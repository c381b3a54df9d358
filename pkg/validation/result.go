package validation

import (
	"fmt"
	"strings"
)

// Result aggregates the problems found by one validation pass.
//
// The severity counters reflect every problem encountered, while Problems
// holds only the ones admitted by the pass's options; warnings excluded
// from the list are still counted.
type Result struct {
	// Problems are the admitted findings in discovery order.
	Problems []Problem
	// Errors, Warnings, and Infos count every finding by severity.
	Errors   int
	Warnings int
	Infos    int
	// Truncated is set when MaxProblems cut the list short.
	Truncated bool
}

// Valid reports whether the pass found no error-severity problems.
func (r *Result) Valid() bool {
	return r.Errors == 0
}

// Add appends problems unconditionally, updating the severity counters.
// Components that do their own filtering, such as the manifest checker,
// use this instead of an options-driven add.
func (r *Result) Add(problems ...Problem) {
	for _, p := range problems {
		r.count(p)
		r.Problems = append(r.Problems, p)
	}
}

// add applies the severity filter and problem cap from opts. Severities
// are always counted, even when the problem is filtered or capped out of
// the list.
func (r *Result) add(p Problem, opts Options) {
	r.count(p)
	switch p.Severity {
	case SeverityWarning:
		if !opts.IncludeWarnings {
			return
		}
	case SeverityInfo:
		if !opts.IncludeInfo {
			return
		}
	}
	if opts.MaxProblems > 0 && len(r.Problems) >= opts.MaxProblems {
		r.Truncated = true
		return
	}
	r.Problems = append(r.Problems, p)
}

func (r *Result) count(p Problem) {
	switch p.Severity {
	case SeverityWarning:
		r.Warnings++
	case SeverityInfo:
		r.Infos++
	default:
		r.Errors++
	}
}

// Summary returns a one-line account of the pass.
func (r *Result) Summary() string {
	if r.Errors == 0 && r.Warnings == 0 && r.Infos == 0 {
		return "validation passed"
	}
	parts := []string{fmt.Sprintf("%d error(s)", r.Errors)}
	if r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", r.Warnings))
	}
	if r.Infos > 0 {
		parts = append(parts, fmt.Sprintf("%d info", r.Infos))
	}
	summary := fmt.Sprintf("validation found %s", strings.Join(parts, ", "))
	if r.Truncated {
		summary += " (problem list truncated)"
	}
	return summary
}
