package service

import "errors"

// Sentinel errors shared across services. Handlers map these to HTTP codes
// with errors.Is; validation failures travel as form.FieldErrors instead and
// are never wrapped in these.
var (
	// ErrNotFound: the identifier does not resolve to a record owned by the caller.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden: the operation is not permitted in the record's current state.
	ErrForbidden = errors.New("operation not permitted")

	// ErrUploadRejected: file type or size outside policy, raised before any
	// object-store write.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrTooManyRequests: OTP rate limit or attempt limit exceeded.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrInvalidOtp: code mismatch, expiry, or unknown phone.
	ErrInvalidOtp = errors.New("invalid or expired code")
)
