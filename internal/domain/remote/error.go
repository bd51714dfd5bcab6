package remote

import "errors"

var (
	ErrNotAuthenticated = errors.New("owner not authenticated")
	ErrBatchTooLarge    = errors.New("batch is too large")
	ErrInvalidRecord    = errors.New("invalid record")
	ErrInvalidSettings  = errors.New("invalid settings document")
)
