package settings

import "errors"

var (
	ErrNotFound        = errors.New("settings not found")
	ErrUnknownField    = errors.New("unknown settings field")
	ErrInvalidValue    = errors.New("invalid settings value")
	ErrInvalidDocument = errors.New("invalid settings document")
)
