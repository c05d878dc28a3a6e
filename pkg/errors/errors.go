// Package errors provides structured error reporting for macperms.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindValidation indicates a caller-supplied identifier was rejected.
	KindValidation
	// KindContract indicates the OS returned a value the broker cannot map.
	KindContract
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates a native payload could not be parsed.
	KindParsing
	// KindUnavailable indicates the subsystem does not exist on this OS version.
	KindUnavailable
	// KindProbe indicates a swallowed filesystem probe failure.
	KindProbe
	// KindInit indicates an initialization error.
	KindInit
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindContract:
		return "contract"
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindUnavailable:
		return "unavailable"
	case KindProbe:
		return "probe"
	case KindInit:
		return "init"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Error represents a structured error raised by the broker.
type Error struct {
	// Op is the operation that failed (e.g., "permissions.GetAuthStatus").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Permission is the permission type or folder involved, if any.
	Permission string
	// Channel is the platform channel name, if applicable.
	Channel string
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	switch {
	case e.Channel != "":
		return fmt.Sprintf("%s [%s] channel=%s: %v", e.Op, e.Kind, e.Channel, e.Err)
	case e.Permission != "":
		return fmt.Sprintf("%s [%s] permission=%s: %v", e.Op, e.Kind, e.Permission, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "bridge.requestComplete").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse a native payload.
type ParseError struct {
	// Channel is the platform channel that delivered the payload.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by the broker.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
