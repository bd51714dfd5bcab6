package client

import (
	"fmt"
	"net/url"

	"github.com/gofrs/flock"
)

// FileLocker не даёт двум процессам (демону и команде sync) синхронизировать
// одного владельца над одной базой одновременно. Блокировка - файл рядом
// с базой, по одному на владельца.
type FileLocker struct {
	base string
}

func NewFileLocker(dataPath string) *FileLocker {
	return &FileLocker{base: dataPath}
}

func (l *FileLocker) path(owner string) string {
	return l.base + "." + url.PathEscape(owner) + ".sync.lock"
}

// TryLock захватывает блокировку без ожидания.
func (l *FileLocker) TryLock(owner string) (func(), bool, error) {
	lock := flock.New(l.path(owner))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("ошибка захвата блокировки синхронизации: %w", err)
	}
	if !locked {
		return nil, false, nil
	}
	return func() { _ = lock.Unlock() }, true, nil
}
