package groupwire

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Common errors returned by the client. These can be used with
// errors.Is() to check for specific conditions.
//
// Example:
//
//	err := client.Dispatch(ctx, req)
//	if errors.Is(err, groupwire.ErrTokenUnavailable) {
//	    // token refresh succeeded but the slot is still empty
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClientClosed is returned when a request is dispatched on a closed client
	ErrClientClosed = errors.New("client is closed")

	// ErrInvalidRequest is returned when a request descriptor is unusable
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTokenUnavailable is returned when the token slot is still empty
	// after the single refresh-and-retry cycle
	ErrTokenUnavailable = errors.New("csrf token unavailable after refresh")

	// ErrCyclicParams is returned when a parameter tree contains itself
	ErrCyclicParams = errors.New("cyclic parameter record")

	// ErrHandlerPanic is returned in place of a suppressed callback panic
	// when RecoverHandlerPanics is enabled
	ErrHandlerPanic = errors.New("callback panic suppressed")
)

// malformedPayloadMessage is the fixed sentinel message delivered to the
// error callback when a payload claims to be JSON or XML but fails to
// parse. It is distinct from any message a semantic error could carry.
const malformedPayloadMessage = "malformed response payload"

// TransportError reports a failed HTTP round trip: either a non-2xx
// status or a network-level failure before any status was received.
// A 200 response whose body carries a semantic error is never a
// TransportError; that is the interpreters' territory.
//
// Example:
//
//	var terr *groupwire.TransportError
//	if errors.As(err, &terr) {
//	    if terr.StatusCode >= 500 {
//	        // gateway-side failure
//	    }
//	}
type TransportError struct {
	// StatusCode is the HTTP status code, or 0 for network failures
	StatusCode int
	// Status is the raw status text reported by the server
	Status string
	// Body is the error response body, if one was received
	Body []byte
	// Err is the underlying network error, if any
	Err error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %s", e.Status)
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNetwork reports whether the failure happened before any HTTP
// status was received.
func (e *TransportError) IsNetwork() bool {
	return e.StatusCode == 0
}

// ParseError reports a payload that claimed to be JSON or XML but
// failed to parse. It is routed to the error callback with the fixed
// sentinel message, never through the semantic resolution chain.
type ParseError struct {
	// DataType is the interpreter that rejected the payload
	DataType DataType
	// Err is the underlying decoder error
	Err error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %s: %v", malformedPayloadMessage, e.DataType, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// TokenError reports a failed token acquisition. Acquisition failures
// are terminal: the original request is not sent and the token slot is
// left unchanged so a later call can try again.
type TokenError struct {
	// Err is the failure reported by the token endpoint call
	Err error
}

// Error implements the error interface
func (e *TokenError) Error() string {
	return fmt.Sprintf("token acquisition failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *TokenError) Unwrap() error {
	return e.Err
}

// ClientError is the typed error a handler may raise to abort its own
// processing and route a message to the request's error callback. Any
// other panic value crosses the dispatch boundary untouched.
//
// Handlers raise it with Raise:
//
//	req.Callbacks = groupwire.CallbackMap{
//	    "MAIL_QUOTA": func(payload any, raw []byte) groupwire.Handling {
//	        groupwire.Raise("mailbox quota exceeded")
//	        return groupwire.Handled // unreachable
//	    },
//	}
type ClientError struct {
	// Message is forwarded to the error callback
	Message string
	// Stack is the call stack captured where the error was raised
	Stack string
}

// Error implements the error interface
func (e *ClientError) Error() string {
	return e.Message
}

// NewClientError creates a ClientError with the current call stack.
func NewClientError(message string) *ClientError {
	return &ClientError{
		Message: message,
		Stack:   string(debug.Stack()),
	}
}

// Raise panics with a ClientError carrying the given message. The
// dispatcher recovers it at the dispatch boundary and forwards the
// message to the request's error callback.
func Raise(message string) {
	panic(NewClientError(message))
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

// IsTokenError reports whether err is or wraps a TokenError.
func IsTokenError(err error) bool {
	var terr *TokenError
	return errors.As(err, &terr)
}
