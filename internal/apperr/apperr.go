// Package apperr defines the failure taxonomy shared by the pipeline and its callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	EmptyInput            Kind = "EmptyInput"
	TooLong               Kind = "TooLong"
	TooShort              Kind = "TooShort"
	GenerationUnavailable Kind = "GenerationUnavailable"
	EmptyGeneration       Kind = "EmptyGeneration"
	MalformedJSON         Kind = "MalformedJSON"
	InvalidStructure      Kind = "InvalidStructure"
	Internal              Kind = "Internal"
)

// Error is a classified pipeline failure. Message is safe to show to callers for
// client kinds; Cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(k, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// IsClient reports whether the kind is caused by caller input.
func (k Kind) IsClient() bool {
	switch k {
	case EmptyInput, TooLong, TooShort:
		return true
	}
	return false
}

// Status maps a kind to its HTTP status class.
func (k Kind) Status() int {
	switch k {
	case EmptyInput, TooLong, TooShort:
		return http.StatusBadRequest
	case GenerationUnavailable:
		return http.StatusServiceUnavailable
	case EmptyGeneration, MalformedJSON, InvalidStructure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message a caller may see. Server-side kinds never expose
// diagnostics.
func (e *Error) Public() string {
	if e.Kind.IsClient() {
		return e.Message
	}
	switch e.Kind {
	case GenerationUnavailable:
		return "Generation service unavailable"
	case EmptyGeneration:
		return "No text returned from model"
	case MalformedJSON:
		return "Invalid JSON output"
	case InvalidStructure:
		return "Invalid mindmap structure"
	default:
		return "Internal Server Error"
	}
}

// KindOf extracts the kind of err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// From returns err as *Error, wrapping unclassified errors as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(Internal, "unclassified failure", err)
}
