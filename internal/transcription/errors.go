package transcription

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upload failures for the caller
type ErrorKind string

const (
	// ErrTransport covers network unreachability, timeouts, and unreadable
	// response bodies.
	ErrTransport ErrorKind = "transport_failure"

	// ErrServerRejected covers non-200 responses and structured error fields;
	// the server-supplied message is surfaced verbatim.
	ErrServerRejected ErrorKind = "server_rejected"

	// ErrProtocolMismatch covers responses that fail to decode against the
	// expected schema, indicating version skew between client and server.
	ErrProtocolMismatch ErrorKind = "protocol_mismatch"
)

// Error is a typed client error carrying the failure classification
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportError(err error) *Error {
	return &Error{Kind: ErrTransport, Err: err}
}

func rejectedError(message string) *Error {
	return &Error{Kind: ErrServerRejected, Message: message}
}

func protocolError(err error) *Error {
	return &Error{Kind: ErrProtocolMismatch, Err: err}
}

// KindOf extracts the error kind, or empty for untyped errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
