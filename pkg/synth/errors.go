package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/tryworks/pkg/validation"
)

// ValidationError aborts a synthesis run when a construct or one of its
// documents fails a validation gate.
type ValidationError struct {
	// Path is the tree path of the failing construct.
	Path string

	// Problems carries the findings that caused the failure.
	Problems []validation.Problem
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	subject := e.Path
	if subject == "" {
		subject = "<root>"
	}
	if len(e.Problems) == 0 {
		return fmt.Sprintf("validation failed for %s", subject)
	}
	messages := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		messages = append(messages, p.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", subject, strings.Join(messages, "; "))
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
