// Package handlers defines HTTP-layer error codes used by the operator API.
//
// Codes are lowercase snake_case. Generic codes mirror HTTP status semantics;
// domain-specific codes name the failed operation. Clients branch on codes,
// not on messages.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeListFailed       = "list_failed"
	ErrCodeGetFailed        = "get_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
