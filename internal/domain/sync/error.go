package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable - удалённое хранилище недоступно. Прогон считается
	// неудачным, водяные знаки не сдвигаются.
	ErrUnreachable = errors.New("remote is unreachable")
	ErrNoOwner     = errors.New("owner is required")
	ErrNoPrimary   = errors.New("primary record kind is not configured")
)

// RemoteError - удалённое хранилище отклонило операцию.
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote rejected %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("remote rejected %s (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// LocalStoreError - сбой локального хранилища. Прерывает прогон.
type LocalStoreError struct {
	Op  string
	Err error
}

func (e *LocalStoreError) Error() string {
	return fmt.Sprintf("local store failed to %s: %v", e.Op, e.Err)
}

func (e *LocalStoreError) Unwrap() error {
	return e.Err
}

// RecordError - ошибка отправки одной записи.
type RecordError struct {
	SyncID string
	Err    error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.SyncID, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

func localErr(op string, err error) error {
	return &LocalStoreError{Op: op, Err: err}
}

// IsUnreachable сообщает, что ошибка вызвана недоступностью удалённого хранилища.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// IsRemoteRejected сообщает, что удалённое хранилище отклонило операцию.
func IsRemoteRejected(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsLocalStore сообщает о сбое локального хранилища.
func IsLocalStore(err error) bool {
	var le *LocalStoreError
	return errors.As(err, &le)
}
