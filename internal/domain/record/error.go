package record

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidData   = errors.New("invalid record data")
	ErrUnknownKind   = errors.New("unknown record kind")
	ErrRecordDeleted = errors.New("record was deleted")
	ErrEmptySyncID   = errors.New("sync id is required")
	ErrOwnerMismatch = errors.New("record belongs to another owner")
	ErrNoRepository  = errors.New("no repository for record kind")
	ErrOwnerRequired = errors.New("owner is required")
	ErrDuplicate     = errors.New("record with this sync id already exists")
)
