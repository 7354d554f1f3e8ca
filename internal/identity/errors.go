package identity

import "errors"

var (
	ErrNotFound      = errors.New("identity: account not found")
	ErrTutorNotFound = errors.New("identity: tutor not found")
	ErrConflict      = errors.New("identity: username or email already registered")
	ErrInvalidInput  = errors.New("identity: invalid input")
	ErrHasDependents = errors.New("identity: tutor has linked students")
	ErrUnavailable   = errors.New("identity: service unavailable")
)
