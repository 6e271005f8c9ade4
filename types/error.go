package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Session error codes
const (
	ErrConnection ErrorCode = "CONNECTION"
	ErrServer     ErrorCode = "SERVER"
	ErrOperation  ErrorCode = "OPERATION"
	ErrProtocol   ErrorCode = "PROTOCOL"
	ErrCancelled  ErrorCode = "CANCELLED"
)

// Lifecycle error codes
const (
	ErrInvalidState ErrorCode = "INVALID_STATE"
	ErrConfig       ErrorCode = "CONFIG"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Operation   string    `json:"operation,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Graceful    bool      `json:"graceful,omitempty"`
	Cause       error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRecoverable marks the error as recoverable.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// WithOperation sets the failed operation name.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithReason sets the server-supplied reason string.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// NewConnectionError creates a transport-level failure. Recoverable
// connection errors are eligible for a retry attempt; non-recoverable ones
// abort the session.
func NewConnectionError(message string, recoverable bool) *Error {
	return &Error{Code: ErrConnection, Message: message, Recoverable: recoverable}
}

// NewServerError creates an error from a coordinator failure payload. Server
// errors are never retried.
func NewServerError(reason string) *Error {
	return &Error{Code: ErrServer, Message: "coordinator reported an error", Reason: reason}
}

// NewOperationError wraps a failed user operation. Operation errors are never
// retried; the operation name identifies which callback failed.
func NewOperationError(operation string, cause error) *Error {
	return &Error{
		Code:      ErrOperation,
		Message:   fmt.Sprintf("%s operation failed", operation),
		Operation: operation,
		Cause:     cause,
	}
}

// NewProtocolError creates an error for a malformed or unexpected message.
// Protocol errors are never retried.
func NewProtocolError(message string) *Error {
	return &Error{Code: ErrProtocol, Message: message}
}

// NewCancellationError marks a session that ended via stop or cancel.
// Graceful is true when the session was allowed to unwind cooperatively.
func NewCancellationError(reason string, graceful bool) *Error {
	return &Error{Code: ErrCancelled, Message: "session cancelled", Reason: reason, Graceful: graceful}
}

// NewInvalidStateError reports an operation invoked in a state that does not
// permit it.
func NewInvalidStateError(message string) *Error {
	return &Error{Code: ErrInvalidState, Message: message}
}

// IsRecoverable checks if an error may be retried by the session engine.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCancellation checks if an error represents a stop or cancel unwind.
func IsCancellation(err error) bool {
	return GetErrorCode(err) == ErrCancelled
}
