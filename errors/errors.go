package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	ErrorNone ErrorType = iota
	ErrorTransport
	ErrorProtocol
	ErrorInvalidArgument
	ErrorMemory
	ErrorSetup
)

func (t ErrorType) String() string {
	switch t {
	case ErrorNone:
		return "none"
	case ErrorTransport:
		return "transport"
	case ErrorProtocol:
		return "protocol"
	case ErrorInvalidArgument:
		return "invalid argument"
	case ErrorMemory:
		return "memory"
	case ErrorSetup:
		return "setup"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError represents transport-layer specific errors
type TransportError int

const (
	TransportErrorNone TransportError = iota
	TransportErrorSocketCreateFailure
	TransportErrorSocketBindFailure
	TransportErrorSocketListenFailure
	TransportErrorSocketAcceptFailure
	TransportErrorSocketReadFailure
	TransportErrorSocketWriteFailure
	TransportErrorConnectionClosed
	TransportErrorIoUringInit
	TransportErrorIoUringSubmit
)

func (e TransportError) String() string {
	switch e {
	case TransportErrorNone:
		return "none"
	case TransportErrorSocketCreateFailure:
		return "socket creation failed"
	case TransportErrorSocketBindFailure:
		return "socket bind failed"
	case TransportErrorSocketListenFailure:
		return "socket listen failed"
	case TransportErrorSocketAcceptFailure:
		return "socket accept failed"
	case TransportErrorSocketReadFailure:
		return "socket read failed"
	case TransportErrorSocketWriteFailure:
		return "socket write failed"
	case TransportErrorConnectionClosed:
		return "connection closed"
	case TransportErrorIoUringInit:
		return "io_uring init failed"
	case TransportErrorIoUringSubmit:
		return "io_uring submit failed"
	default:
		return fmt.Sprintf("TransportError(%d)", int(e))
	}
}

// ProtocolError represents protocol-layer specific errors
type ProtocolError int

const (
	ProtocolErrorNone ProtocolError = iota
	ProtocolErrorMalformedRequestLine
	ProtocolErrorMessageTooLarge
	ProtocolErrorIncompleteRequest
	ProtocolErrorInvalidStatusLine
)

func (e ProtocolError) String() string {
	switch e {
	case ProtocolErrorNone:
		return "none"
	case ProtocolErrorMalformedRequestLine:
		return "malformed request line"
	case ProtocolErrorMessageTooLarge:
		return "message too large"
	case ProtocolErrorIncompleteRequest:
		return "incomplete request"
	case ProtocolErrorInvalidStatusLine:
		return "invalid status line"
	default:
		return fmt.Sprintf("ProtocolError(%d)", int(e))
	}
}

// HttpError is the error type shared by every layer of the server
type HttpError struct {
	Type          ErrorType
	TransportErr  TransportError
	ProtocolErr   ProtocolError
	Message       string
	UnderlyingErr error
}

// Error implements the error interface
func (e *HttpError) Error() string {
	if e == nil {
		return "no error"
	}

	var typeStr string
	switch e.Type {
	case ErrorTransport:
		typeStr = fmt.Sprintf("Transport error (%s)", e.TransportErr)
	case ErrorProtocol:
		typeStr = fmt.Sprintf("Protocol error (%s)", e.ProtocolErr)
	case ErrorInvalidArgument:
		typeStr = "Invalid argument"
	case ErrorMemory:
		typeStr = "Memory error"
	case ErrorSetup:
		typeStr = fmt.Sprintf("Setup error (%s)", e.TransportErr)
	default:
		typeStr = "Unknown error"
	}

	if e.Message != "" {
		typeStr = fmt.Sprintf("%s: %s", typeStr, e.Message)
	}

	if e.UnderlyingErr != nil {
		return fmt.Sprintf("%s (caused by: %v)", typeStr, e.UnderlyingErr)
	}

	return typeStr
}

// Unwrap returns the underlying error for error chain support
func (e *HttpError) Unwrap() error {
	return e.UnderlyingErr
}

// NewTransportError creates a new transport error
func NewTransportError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorTransport,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// NewProtocolError creates a new protocol error
func NewProtocolError(err ProtocolError, message string) *HttpError {
	return &HttpError{
		Type:        ErrorProtocol,
		ProtocolErr: err,
		Message:     message,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorInvalidArgument,
		Message: message,
	}
}

// NewMemoryError reports that a buffer could not be obtained for the given size
func NewMemoryError(message string) *HttpError {
	return &HttpError{
		Type:    ErrorMemory,
		Message: message,
	}
}

// NewSetupError creates a fatal startup error. The transport kind records
// which step of socket setup failed.
func NewSetupError(err TransportError, message string, underlying error) *HttpError {
	return &HttpError{
		Type:          ErrorSetup,
		TransportErr:  err,
		Message:       message,
		UnderlyingErr: underlying,
	}
}

// IsType reports whether err carries an *HttpError of the given type
func IsType(err error, t ErrorType) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == t
}

// IsTransport reports whether err is a transport error of the given kind
func IsTransport(err error, kind TransportError) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == ErrorTransport && httpErr.TransportErr == kind
}

// IsProtocol reports whether err is a protocol error of the given kind
func IsProtocol(err error, kind ProtocolError) bool {
	var httpErr *HttpError
	return stderrors.As(err, &httpErr) && httpErr.Type == ErrorProtocol && httpErr.ProtocolErr == kind
}
