// Package apperr defines the typed error kinds returned across every
// component boundary and the JSON envelope the MCP tool surface serialises
// them into.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a stable error category carried on the MCP surface.
type Kind string

const (
	KindConfig       Kind = "ConfigError"
	KindBackend      Kind = "BackendError"
	KindLLM          Kind = "LLMError"
	KindDimension    Kind = "DimensionError"
	KindPipelineParse Kind = "PipelineParseError"
	KindValidation   Kind = "ValidationError"
	KindConflict     Kind = "ConflictError"
	KindNotFound     Kind = "NotFoundError"
	KindTimeout      Kind = "TimeoutError"
	KindState        Kind = "StateError"
	KindAuth         Kind = "AuthError"
	KindInternal     Kind = "InternalError"
)

// Error is the typed error carried across component boundaries. It never
// crosses a component boundary as a panic; every fallible operation returns
// one of these (or wraps one) instead.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the stable string code surfaced on the MCP error envelope.
func (e *Error) Code() string {
	return string(e.Kind)
}

// New builds an Error with no wrapped cause.
func New(kind Kind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(kind Kind, message string, err error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details, Err: err}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not a typed *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Envelope is the `{error:{code,message,details}}` wire shape from the
// external-interfaces error contract.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ToEnvelope converts any error into the MCP error envelope shape. Unknown
// errors are reported as InternalError with no details, never echoing
// sensitive data the caller didn't already have.
func ToEnvelope(err error) Envelope {
	var e *Error
	if errors.As(err, &e) {
		return Envelope{Error: EnvelopeBody{
			Code:    e.Code(),
			Message: e.Message,
			Details: e.Details,
		}}
	}
	return Envelope{Error: EnvelopeBody{
		Code:    string(KindInternal),
		Message: err.Error(),
	}}
}

// NotFound is a convenience constructor used throughout the memory, dreaming,
// scheduler and opencode components for "no such entity" failures.
func NotFound(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %q not found", entity, id), map[string]any{"entity": entity, "id": id})
}

// Conflict is a convenience constructor for duplicate-id / duplicate-start
// failures.
func Conflict(message string, details map[string]any) *Error {
	return New(KindConflict, message, details)
}

// Validation is a convenience constructor for bad tool arguments.
func Validation(message string, details map[string]any) *Error {
	return New(KindValidation, message, details)
}
