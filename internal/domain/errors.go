package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimedOut indicates the hard fetch budget elapsed before all reads completed.
// It is retryable and must not be confused with ErrCancelled.
type ErrTimedOut struct {
	Operation string
	After     time.Duration
}

func (e *ErrTimedOut) Error() string {
	return fmt.Sprintf("connection timed out: %s did not complete within %s", e.Operation, e.After)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrNotAuthenticated indicates a fetch was attempted without an active session.
// Retryable once authentication becomes ready.
type ErrNotAuthenticated struct {
	Reason string
}

func (e *ErrNotAuthenticated) Error() string {
	if e.Reason != "" {
		return "not authenticated: " + e.Reason
	}
	return "not authenticated"
}

// ErrAuthStuck indicates authentication never became ready while the caller waited.
type ErrAuthStuck struct {
	Waited time.Duration
}

func (e *ErrAuthStuck) Error() string {
	return fmt.Sprintf("authentication stuck after %s, please refresh", e.Waited)
}

// ErrSourceRead indicates one of the dashboard source reads reported a definitive error.
type ErrSourceRead struct {
	Source string
	Err    error
}

func (e *ErrSourceRead) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ErrSourceRead) Unwrap() error {
	return e.Err
}

// ErrCancelled is returned by a fetch run that was superseded or explicitly
// cancelled. It is never shown to the user.
var ErrCancelled = errors.New("fetch cancelled")

// StateOf maps the result of a fetch run to its terminal state.
func StateOf(err error) FetchState {
	var timedOut *ErrTimedOut
	switch {
	case err == nil:
		return FetchSucceeded
	case errors.Is(err, ErrCancelled):
		return FetchCancelled
	case errors.As(err, &timedOut):
		return FetchTimedOut
	default:
		return FetchFailed
	}
}
