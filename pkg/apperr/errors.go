// Package apperr defines the error taxonomy surfaced by quill and renders
// errors into the stable, user-facing strings carried by action responses.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and rendering.
type Kind int

const (
	Unknown Kind = iota
	Validation
	InsufficientInput
	UnknownAction
	ProviderUnavailable
	NoProviderAvailable
	Storage
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case InsufficientInput:
		return "insufficient_input"
	case UnknownAction:
		return "unknown_action"
	case ProviderUnavailable:
		return "provider_unavailable"
	case NoProviderAvailable:
		return "no_provider_available"
	case Storage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error. Message is the human-readable detail that
// follows the kind's prefix when rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an Error of the given kind wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Validationf returns a Validation error.
func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

// InsufficientInputf returns an InsufficientInput error.
func InsufficientInputf(format string, args ...any) *Error {
	return New(InsufficientInput, fmt.Sprintf(format, args...))
}

// UnknownActionError returns an UnknownAction error for action.
func UnknownActionError(action string) *Error {
	return New(UnknownAction, action)
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message renders err as the string placed in ActionResponse.Error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Unexpected error: " + err.Error()
	}
	switch e.Kind {
	case Validation:
		return "Validation error: " + e.Message
	case InsufficientInput:
		return "INSUFFICIENT_CONTEXT: " + e.Message
	case UnknownAction:
		return "Unknown action: " + e.Message
	case ProviderUnavailable, NoProviderAvailable:
		return "AI service unavailable: " + e.Message
	case Storage:
		return "Storage error: " + e.Message
	default:
		if e.Err != nil {
			return "Unexpected error: " + e.Message + ": " + e.Err.Error()
		}
		return "Unexpected error: " + e.Message
	}
}
