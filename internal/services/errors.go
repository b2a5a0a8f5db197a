// Package services implements the webhook correlation pipeline: message
// classification, the submission saga over the durable store and the
// external ticketing API, sender notification, and background
// reconciliation. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
package services

import "errors"

var (
	// ErrDuplicateOrder is returned by the deduplication gate when a
	// conflicting record already carries the submission's correlation id.
	// No new record is created.
	ErrDuplicateOrder = errors.New("duplicate service order")

	// ErrSubmissionFailed is returned when the external ticketing call or the
	// finalizing update failed and the pending record was compensated away.
	// The sender must resend the triggering conversation.
	ErrSubmissionFailed = errors.New("service order submission failed")
)
