package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeNotConfigured is used when a required integration has no configuration
	ErrCodeNotConfigured = "ERR_NOT_CONFIGURED"
)

// Input error codes
const (
	// ErrCodeValidation is used when request binding or validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for requests the service will not process
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeUnsupportedMode is used for an unknown checkout mode
	ErrCodeUnsupportedMode = "ERR_UNSUPPORTED_MODE"
	// ErrCodeUnsupportedAdapter is used when POS_ADAPTER names an adapter that cannot check out
	ErrCodeUnsupportedAdapter = "ERR_UNSUPPORTED_ADAPTER"
	// ErrCodeMissingSession is used for a POS checkout without a session id
	ErrCodeMissingSession = "ERR_MISSING_SESSION"
	// ErrCodeInvalidImage is used for rejected uploads
	ErrCodeInvalidImage = "ERR_INVALID_IMAGE"
	// ErrCodePayloadTooLarge is used when an upload exceeds the size limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Upstream error codes
const (
	// ErrCodeUpstream is used when the ERP reports or causes a failure
	ErrCodeUpstream = "ERR_UPSTREAM"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeNotConfigured: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnsupportedMode:    http.StatusBadRequest,
	ErrCodeUnsupportedAdapter: http.StatusBadRequest,
	ErrCodeMissingSession:     http.StatusBadRequest,
	ErrCodeInvalidImage:       http.StatusBadRequest,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeUpstream: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
