package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// poll, attendee or token does not exist. An unknown token and a token that
// never existed are deliberately the same error.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails a business
// rule. The text after "validation error: " is the user-facing message.
// Handlers should map this to HTTP 400.
var ErrValidation = errors.New("validation error")

// ErrOutOfRange is returned when a weekend index is well-formed but does not
// exist in the attendee's poll. It is kept apart from ErrNotFound so callers
// can tell a dead link from a bad request.
// Handlers should map this to HTTP 400.
var ErrOutOfRange = errors.New("weekend index out of range")
