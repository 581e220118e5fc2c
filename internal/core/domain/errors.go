package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classifications a pipeline
// operation can surface. Every path through the proxy maps to exactly one
// kind, which in turn maps to exactly one response status code.
type ErrorKind string

const (
	// KindBadRequest covers malformed request lines, headers or targets. Maps to 400.
	KindBadRequest ErrorKind = "bad_request"
	// KindSelfLoop covers requests that resolve back to the proxy itself. Maps to 421.
	KindSelfLoop ErrorKind = "self_loop"
	// KindResolveFailure covers DNS resolution failures for the origin host. Maps to 502.
	KindResolveFailure ErrorKind = "resolve_failure"
	// KindConnectionRefused covers TCP RST / ECONNREFUSED from the origin. Maps to 502.
	KindConnectionRefused ErrorKind = "connection_refused"
	// KindNetworkUnreachable covers routing failures reaching the origin. Maps to 502.
	KindNetworkUnreachable ErrorKind = "network_unreachable"
	// KindOriginIO covers I/O errors talking to an already-connected origin. Maps to 502.
	KindOriginIO ErrorKind = "origin_io"
	// KindOriginTimeout covers origin connect/read deadlines being exceeded. Maps to 504.
	KindOriginTimeout ErrorKind = "origin_timeout"
	// KindInternal covers anything that doesn't fit the above. Maps to 502.
	KindInternal ErrorKind = "internal_error"
)

// StatusCode returns the HTTP status code the pipeline must respond with
// for this error kind.
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindBadRequest:
		return 400
	case KindSelfLoop:
		return 421
	case KindOriginTimeout:
		return 504
	case KindResolveFailure, KindConnectionRefused, KindNetworkUnreachable, KindOriginIO, KindInternal:
		return 502
	default:
		return 502
	}
}

// ProxyError wraps an underlying error with the operation that produced it
// and its classification, covering the proxy's single closed set of kinds.
type ProxyError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ProxyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

// NewProxyError constructs a ProxyError.
func NewProxyError(kind ErrorKind, op string, err error) *ProxyError {
	return &ProxyError{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *ProxyError, defaulting to KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}
