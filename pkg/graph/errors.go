package graph

import (
	"errors"
	"fmt"
	"strings"
)

// CircularDependencyError reports that the edge registry contains a cycle.
// Path names one construct known to sit on a cycle; Cycles, when set,
// enumerates full cycles as path sequences.
type CircularDependencyError struct {
	Path   string
	Cycles [][]string
}

func (e *CircularDependencyError) Error() string {
	if len(e.Cycles) > 0 {
		rendered := make([]string, len(e.Cycles))
		for i, cycle := range e.Cycles {
			rendered[i] = strings.Join(cycle, " -> ")
		}
		return fmt.Sprintf("circular dependency detected: %s", strings.Join(rendered, "; "))
	}
	return fmt.Sprintf("circular dependency detected involving %q", e.Path)
}

// IsCircularDependency reports whether err is a CircularDependencyError.
func IsCircularDependency(err error) bool {
	var cde *CircularDependencyError
	return errors.As(err, &cde)
}
