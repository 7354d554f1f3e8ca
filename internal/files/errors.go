package files

import "errors"

var (
	ErrNotFound        = errors.New("files: not found")
	ErrForbidden       = errors.New("files: forbidden")
	ErrInvalidInput    = errors.New("files: invalid input")
	ErrUnsupportedType = errors.New("files: unsupported file type")
	ErrMissingBlob     = errors.New("files: stored blob missing")
)
