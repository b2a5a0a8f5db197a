// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the `fail()`
// helper in this package and give clients a stable, machine-readable error
// taxonomy that supplements human-readable messages. The webhook endpoint
// never emits them (it always answers 200); they cover the operational
// surface (health, metrics, unknown routes).
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
