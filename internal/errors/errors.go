package errors

import (
	"errors"
	"fmt"
)

// Error types for different categories of failures
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrNetwork        = errors.New("network error")
	ErrProtocol       = errors.New("protocol error")
	ErrValidation     = errors.New("validation error")
)

// FrameError represents a datagram that failed to decode. Receive loops drop
// these silently; they are never surfaced to the user.
type FrameError struct {
	Reason string
	Length int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame (%d bytes): %s", e.Length, e.Reason)
}

func (e *FrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// NetworkError represents network-related errors
type NetworkError struct {
	Op   string
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s to %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ProtocolError represents protocol violations on an otherwise healthy
// connection, e.g. an unparsable size request
type ProtocolError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error during %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("protocol error during %s: %s", e.Op, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// ValidationError represents configuration validation errors. These are the
// only errors fatal to starting a test round.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s='%v': %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Helper functions for creating errors

func NewFrameError(reason string, length int) error {
	return &FrameError{Reason: reason, Length: length}
}

func NewNetworkError(op, addr string, err error) error {
	return &NetworkError{Op: op, Addr: addr, Err: err}
}

func NewProtocolError(op, message string, err error) error {
	return &ProtocolError{Op: op, Message: message, Err: err}
}

func NewValidationError(field string, value interface{}, message string) error {
	return &ValidationError{Field: field, Value: value, Message: message}
}
