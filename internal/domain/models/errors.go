package models

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes. Validation errors are recoverable: the caller
// corrects the input, nothing is retried internally.
const (
	CodeMissingField   = "ERR_MISSING_FIELD"
	CodeTypeMismatch   = "ERR_TYPE_MISMATCH"
	CodeRangeViolation = "ERR_RANGE_VIOLATION"
)

// Sentinel errors for the non-validation taxonomy.
var (
	// ErrModelNotTrained is a fatal precondition violation, never silently
	// defaulted.
	ErrModelNotTrained = errors.New("model not trained")
	// ErrTrainingFailure aborts the current run; a prior trained model for
	// the same id remains untouched.
	ErrTrainingFailure = errors.New("training failure")
	// ErrPersistenceFailure wraps I/O errors on save/load; surfaced, not
	// retried.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrDetectorNotFitted is raised when detection is requested before
	// both ensemble detectors are fitted.
	ErrDetectorNotFitted = errors.New("detector not fitted")
)

// ValidationError is one validation failure detail.
type ValidationError struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidationErrors aggregates all failures found in one record.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasCode reports whether any contained error carries the given code.
func (e ValidationErrors) HasCode(code string) bool {
	for _, ve := range e {
		if ve.Code == code {
			return true
		}
	}
	return false
}
