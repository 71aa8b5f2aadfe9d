package checkout

import (
	"errors"
	"fmt"
)

// Sentinel errors. Adapter failures wrap one of these inside a RemoteError.
var (
	ErrRemoteProtocol         = errors.New("checkout: erp reported an error")
	ErrTransport              = errors.New("checkout: erp transport failure")
	ErrAuthFailed             = errors.New("checkout: erp authentication failed")
	ErrSessionExpired         = errors.New("checkout: erp session expired")
	ErrUnexpectedShape        = errors.New("checkout: unexpected erp response shape")
	ErrUnknownSKU             = errors.New("checkout: unknown sku")
	ErrPOSSessionNotFound     = errors.New("checkout: pos session not found")
	ErrPOSSessionNotWritable  = errors.New("checkout: pos session is not writable")
	ErrPOSFinalizeUnsupported = errors.New("checkout: paid pos orders are not supported")
)

// Caller-side errors. These never come out of an adapter.
var (
	ErrUnsupportedMode = errors.New("checkout: unsupported mode")
	ErrInvalidLine     = errors.New("checkout: invalid line")
	ErrMissingSession  = errors.New("checkout: pos session id is required")
)

// RemoteError is the single error kind raised by ERP adapters. Message is
// human readable; Err carries the sentinel (and cause) for errors.Is.
type RemoteError struct {
	Message string
	Err     error
}

// NewRemoteError creates a RemoteError classified by kind.
func NewRemoteError(kind error, format string, args ...any) *RemoteError {
	return &RemoteError{Message: fmt.Sprintf(format, args...), Err: kind}
}

// WrapRemoteError creates a RemoteError classified by kind that also keeps
// cause in the chain.
func WrapRemoteError(kind, cause error, format string, args ...any) *RemoteError {
	return &RemoteError{
		Message: fmt.Sprintf(format, args...),
		Err:     fmt.Errorf("%w: %w", kind, cause),
	}
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err carries a RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// NewPOSFinalizeUnsupportedError reports a request for a paid POS order.
func NewPOSFinalizeUnsupportedError() *RemoteError {
	return NewRemoteError(ErrPOSFinalizeUnsupported,
		"paid POS orders are not supported: set CREATE_POS_DRAFT=true to submit draft orders")
}
