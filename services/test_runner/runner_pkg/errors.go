package runner_pkg

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrUnknownAssertion = errors.New("unknown assertion")
	ErrAssertionFailed  = errors.New("assertion failed")
	ErrMissingField     = errors.New("missing required field")
	ErrSelectorNotFound = errors.New("selector not found")
	ErrUnexpected       = errors.New("unexpected failure")
)

// ValidationError reports a missing or invalid request field. No browser is
// acquired when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StepError wraps the failure of a single step.
type StepError struct {
	Index  int
	Action string
	Err    error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ResourceError wraps a failure to acquire or drive the browser outside of
// step execution. Trace carries per-attempt diagnostics when available.
type ResourceError struct {
	Op    string
	Err   error
	Trace []string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TraceOf returns the diagnostic trace carried by a ResourceError, if any.
func TraceOf(err error) []string {
	var re *ResourceError
	if errors.As(err, &re) {
		return re.Trace
	}
	return nil
}
