package pipeline

import (
	"errors"
	"fmt"
)

// FatalError is a precondition failure that aborts the run before any
// provisioning state is touched: missing privilege, missing host
// identity, unsupported distribution, or a report that could not be
// persisted. Everything else is captured into the ledger instead.
type FatalError struct {
	// Stage names the phase that failed (identity, resolve, report).
	Stage string

	// Message is the human-readable error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError creates a FatalError for a stage.
func NewFatalError(stage, message string, err error) *FatalError {
	return &FatalError{Stage: stage, Message: message, Err: err}
}

// IsFatal reports whether err is a run-aborting precondition failure.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
