package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrBudgetExceeded indicates the user's credit budget cannot cover the request
	ErrBudgetExceeded = errors.New("credit budget exceeded")

	// ErrEmptyGeneration indicates the model provider returned an empty completion
	ErrEmptyGeneration = errors.New("empty completion")

	// ErrTransport indicates the model provider call failed at the transport level
	ErrTransport = errors.New("provider transport failure")

	// ErrSearchProvider indicates the search provider call failed; callers degrade
	// to the no-evidence path rather than failing the request
	ErrSearchProvider = errors.New("search provider failure")

	// ErrInvalidInput indicates that request validation failed
	ErrInvalidInput = errors.New("invalid input")
)

// Budget reasons reported to callers; "wait or upgrade" remediation depends on which.
const (
	ReasonDailyLimit          = "daily limit reached"
	ReasonInsufficientCredits = "insufficient credits"
)

// BudgetError reports a denied credit reservation. It unwraps to
// ErrBudgetExceeded so callers can branch with errors.Is.
type BudgetError struct {
	UserID    string
	Reason    string
	Required  int
	Remaining int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("budget denied for user %s: %s (required %d, remaining %d)",
		e.UserID, e.Reason, e.Required, e.Remaining)
}

func (e *BudgetError) Unwrap() error { return ErrBudgetExceeded }

// EmptyGenerationError reports a completion with no content. Distinct from
// TransportError: an identical retry is pointless, so it is never retried.
type EmptyGenerationError struct {
	Provider string
	Model    string
}

func (e *EmptyGenerationError) Error() string {
	return fmt.Sprintf("%s returned an empty completion for model %s", e.Provider, e.Model)
}

func (e *EmptyGenerationError) Unwrap() error { return ErrEmptyGeneration }

// TransportError wraps a failed provider call. Not retried by the pipeline to
// avoid double-charging credits for the same failed attempt.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// SearchError wraps a failed search provider call.
type SearchError struct {
	Engine string
	Err    error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search engine %s failed: %v", e.Engine, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

func (e *SearchError) Is(target error) bool { return target == ErrSearchProvider }

// InvalidInputError reports a request that failed validation before any
// billable work started.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: field %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// Is reports whether err matches target, delegating to the standard library.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target any) bool { return errors.As(err, target) }
