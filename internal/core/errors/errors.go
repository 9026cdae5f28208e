// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Triage taxonomy. Every per-item failure recorded on a queue item wraps exactly one of these.
var (
	// ErrPromptDataNotFound indicates the message or its company context could not be assembled.
	ErrPromptDataNotFound = errors.New("prompt data not found")

	// ErrProvider indicates the LLM call failed (timeout, non-2xx, network).
	ErrProvider = errors.New("llm provider error")

	// ErrMalformedLLMOutput indicates the LLM response could not be parsed into an analysis.
	ErrMalformedLLMOutput = errors.New("malformed llm output")

	// ErrPersistence indicates the analysis could not be stored.
	ErrPersistence = errors.New("persistence error")
)

// Entity resolution errors.
var (
	// ErrFeedbackNotFound indicates a feedback record could not be found.
	ErrFeedbackNotFound = errors.New("feedback not found")

	// ErrQueueItemNotFound indicates a queue item could not be found.
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrAnalysisNotFound indicates no analysis has been stored for a message.
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// State machine errors.
var (
	// ErrStatusConflict indicates the row changed state between read and conditional update.
	ErrStatusConflict = errors.New("status changed concurrently")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNotRequeueable indicates a queue item is not in the failed state.
	ErrNotRequeueable = errors.New("queue item is not failed")
)

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID indicates an invalid identifier.
	ErrInvalidID = errors.New("invalid id")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
