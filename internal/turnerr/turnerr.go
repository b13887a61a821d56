// Package turnerr classifies and wraps the error kinds the turn
// controller distinguishes (spec.md §7): Transport, ProtocolParse,
// ToolInputInvalid, ToolFailure, PolicyDenied, VerificationFailed, Fatal.
package turnerr

import (
	"errors"
	"fmt"
)

// Kind is one of the turn controller's error classes.
type Kind string

const (
	KindTransport          Kind = "transport"
	KindProtocolParse      Kind = "protocol_parse"
	KindToolInputInvalid   Kind = "tool_input_invalid"
	KindToolFailure        Kind = "tool_failure"
	KindPolicyDenied       Kind = "policy_denied"
	KindVerificationFailed Kind = "verification_failed"
	KindFatal              Kind = "fatal"
)

// Retryable reports whether errors of this Kind should ever be retried.
// Only Transport is retryable in this system; every other kind is either
// a terminal decision (PolicyDenied, ToolFailure) or a bug/config problem
// (ProtocolParse, ToolInputInvalid, Fatal).
func (k Kind) Retryable() bool {
	return k == KindTransport
}

// Error wraps an underlying error with its Kind and optional context.
type Error struct {
	Err      error
	Kind     Kind
	ToolName string // set when the error concerns a specific tool
}

func (e *Error) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("[%s tool=%s] %v", e.Kind, e.ToolName, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given Kind.
func New(kind Kind, err error) *Error {
	return &Error{Err: err, Kind: kind}
}

// WithTool attaches a tool name to an Error, returning a new Error value.
func WithTool(kind Kind, toolName string, err error) *Error {
	return &Error{Err: err, Kind: kind, ToolName: toolName}
}

// As reports whether err (or one it wraps) is a *Error, writing it into target.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error; otherwise returns "" and false.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
