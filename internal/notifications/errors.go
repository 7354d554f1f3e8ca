package notifications

import "errors"

var (
	ErrNotFound     = errors.New("notifications: not found")
	ErrForbidden    = errors.New("notifications: forbidden")
	ErrInvalidInput = errors.New("notifications: invalid input")
)
