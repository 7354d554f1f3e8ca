package appointments

import "errors"

var (
	ErrNotFound          = errors.New("appointments: not found")
	ErrForbidden         = errors.New("appointments: forbidden")
	ErrInvalidInput      = errors.New("appointments: invalid input")
	ErrInvalidTransition = errors.New("appointments: invalid state transition")
	ErrSlotTaken         = errors.New("appointments: slot already taken")
)
