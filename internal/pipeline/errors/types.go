package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// StepError records a failed preview step. It carries enough context for
// the response's step_errors list and unwraps to the underlying cause.
type StepError struct {
	StepID   string
	Operator string
	Kind     string
	Message  string
	Inner    error
}

func (e *StepError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("step '%s' (%s %s): %s", e.StepID, e.Kind, e.Operator, e.Message)
	}
	return e.Message
}

func (e *StepError) Unwrap() error {
	return e.Inner
}

// NewStepError creates a new step error. An empty message takes the
// cause's text.
func NewStepError(stepID, operator, kind, message string, inner error) *StepError {
	if message == "" && inner != nil {
		message = inner.Error()
	}
	return &StepError{
		StepID:   stepID,
		Operator: operator,
		Kind:     kind,
		Message:  message,
		Inner:    inner,
	}
}

// StepTimeoutError indicates a step exceeded the configured per-step timeout
type StepTimeoutError struct {
	StepID  string
	Timeout time.Duration
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step '%s' timed out after %s", e.StepID, e.Timeout)
}

// OperatorPanicError wraps a value recovered from a panicking operator
type OperatorPanicError struct {
	Operator string
	Value    interface{}
}

func (e *OperatorPanicError) Error() string {
	return fmt.Sprintf("operator %s panicked: %v", e.Operator, e.Value)
}

// IsTimeout reports whether err is or wraps a StepTimeoutError
func IsTimeout(err error) bool {
	var te *StepTimeoutError
	return stderrors.As(err, &te)
}

// IsPanic reports whether err is or wraps an OperatorPanicError
func IsPanic(err error) bool {
	var pe *OperatorPanicError
	return stderrors.As(err, &pe)
}
