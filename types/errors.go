package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds as reported by the HTTP and queue surfaces
const (
	KindSchemaLoad = "schema_load"
	KindPlanning   = "planning"
	KindAssembly   = "assembly"
	KindValidation = "validation"
	KindInternal   = "internal"
)

// SchemaLoadError means the reference text could not be loaded.
// The cache does not keep the failure, the next request loads again.
type SchemaLoadError struct {
	Source string
	Err    error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("schema load from %s: %v", e.Source, e.Err)
}

func (e *SchemaLoadError) Unwrap() error { return e.Err }

// PlanningError is a failed or rejected scene planning call.
// Scene is the 1-based scene number, 0 when the failure is not scene specific.
// Input marks failures caused by the request itself, found before any call.
type PlanningError struct {
	Scene  int
	Field  string
	Reason string
	Input  bool
	Err    error
}

func (e *PlanningError) Error() string {
	return "planning: " + describe(e.Scene, e.Field, e.Reason, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// AssemblyError is a failed or rejected document assembly call
type AssemblyError struct {
	Scene  int
	Field  string
	Reason string
	Input  bool
	Err    error
}

func (e *AssemblyError) Error() string {
	return "assembly: " + describe(e.Scene, e.Field, e.Reason, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// ValidationFailure is returned when the final structural check rejects a document
type ValidationFailure struct {
	Violations []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation: %d violation(s): %s", len(e.Violations), strings.Join(e.Violations, "; "))
}

func describe(scene int, field, reason string, err error) string {
	var parts []string
	if scene > 0 {
		parts = append(parts, fmt.Sprintf("scene %d", scene))
	}
	if field != "" {
		parts = append(parts, fmt.Sprintf("field %q", field))
	}
	msg := strings.Join(parts, " ")
	if msg != "" {
		msg += ": "
	}
	msg += reason
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}

// ErrorKind classifies err into one of the Kind constants
func ErrorKind(err error) string {
	var (
		schemaErr   *SchemaLoadError
		planErr     *PlanningError
		assemblyErr *AssemblyError
		validErr    *ValidationFailure
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &schemaErr):
		return KindSchemaLoad
	case errors.As(err, &planErr):
		return KindPlanning
	case errors.As(err, &assemblyErr):
		return KindAssembly
	case errors.As(err, &validErr):
		return KindValidation
	default:
		return KindInternal
	}
}

// BadInput reports whether err was caused by the caller's request, such as an
// empty script or a missing voice id
func BadInput(err error) bool {
	var planErr *PlanningError
	if errors.As(err, &planErr) && planErr.Input {
		return true
	}
	var assemblyErr *AssemblyError
	return errors.As(err, &assemblyErr) && assemblyErr.Input
}

// Retryable reports whether rerunning the whole build may succeed
func Retryable(err error) bool {
	if BadInput(err) {
		return false
	}
	switch ErrorKind(err) {
	case KindSchemaLoad, KindPlanning, KindAssembly:
		return true
	}
	return false
}
