package shared

import "errors"

// Failure taxonomy returned by services and repositories. The HTTP layer maps
// each sentinel to a fixed status code; wrapped detail stays server-side.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("too many attempts")
)
