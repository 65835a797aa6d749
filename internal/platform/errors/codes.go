// Package errors provides structured error handling for topicfeed services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"

	// Upstream errors
	CodeMalformedPayload Code = "MALFORMED_PAYLOAD"
	CodeNetworkFailure   Code = "NETWORK_FAILURE"

	// Lifecycle errors
	CodeListDiscarded    Code = "LIST_DISCARDED"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP response statuses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeListDiscarded:
		return http.StatusConflict
	case CodeMalformedPayload, CodeNetworkFailure:
		return http.StatusBadGateway
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether callers may reasonably retry the failed operation.
func (c Code) Retryable() bool {
	switch c {
	case CodeNetworkFailure, CodeStoreUnavailable:
		return true
	default:
		return false
	}
}
