// Package validation provides the rule engine that checks construct trees
// before synthesis, and the problem and result vocabulary shared by every
// validating component.
package validation

import "fmt"

// Severity grades a validation problem.
type Severity string

const (
	// SeverityError marks problems that must block synthesis.
	SeverityError Severity = "error"
	// SeverityWarning marks problems worth surfacing that do not block.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks advisory findings.
	SeverityInfo Severity = "info"
)

// Problem is a single validation finding. It is a plain value: producing
// one has no side effects, and two problems with the same fields are
// interchangeable.
type Problem struct {
	// Message is the human-readable description.
	Message string
	// Path locates the finding: a construct tree path, or a document
	// field path for manifest checks.
	Path string
	// Severity grades the finding.
	Severity Severity
	// Code is a stable machine-readable identifier.
	Code string
	// Context carries optional key/value details.
	Context map[string]string
}

// Errorf builds an error-severity problem.
func Errorf(path, code, format string, args ...interface{}) Problem {
	return Problem{
		Message:  fmt.Sprintf(format, args...),
		Path:     path,
		Severity: SeverityError,
		Code:     code,
	}
}

// Warningf builds a warning-severity problem.
func Warningf(path, code, format string, args ...interface{}) Problem {
	return Problem{
		Message:  fmt.Sprintf(format, args...),
		Path:     path,
		Severity: SeverityWarning,
		Code:     code,
	}
}

// Infof builds an info-severity problem.
func Infof(path, code, format string, args ...interface{}) Problem {
	return Problem{
		Message:  fmt.Sprintf(format, args...),
		Path:     path,
		Severity: SeverityInfo,
		Code:     code,
	}
}
