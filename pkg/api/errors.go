package api

import "errors"

// Failure kinds surfaced to the (external) http layer, which maps them to
// status codes: ErrUnauthorized -> 401, ErrNotFound -> 404,
// ErrStorageLimitExceeded -> 400 with a structured payload,
// ErrInvalidArgument -> 400, anything else -> 500 with no detail leaked.
// Lower-layer failures are wrapped with %w so errors.Is sees the kind.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrStorageLimitExceeded = errors.New("storage limit exceeded")
	ErrInvalidArgument      = errors.New("invalid argument")
)
