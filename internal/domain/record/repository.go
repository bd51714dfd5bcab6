package record

import (
	"context"
	"time"
)

// Repository - локальное хранилище записей одного типа.
type Repository interface {
	Spec() Spec

	Insert(ctx context.Context, record *Record) (int64, error)
	UpdateByLocalID(ctx context.Context, record *Record) error
	// ReplaceIfUnchanged перезаписывает запись только если её updatedAt
	// равен seenUpdatedAt. Возвращает false, если запись успели изменить.
	ReplaceIfUnchanged(ctx context.Context, record *Record, seenUpdatedAt time.Time) (bool, error)
	FindBySyncID(ctx context.Context, owner, syncID string) (*Record, error)

	// ListModifiedSince возвращает записи-кандидаты на отправку.
	ListModifiedSince(ctx context.Context, owner string, q Query) ([]*Record, error)
	ListActive(ctx context.Context, owner string) ([]*Record, error)
	ListAll(ctx context.Context, owner string) ([]*Record, error)

	// MarkStatus меняет статус только если updatedAt записи не изменился
	// с момента чтения. Возвращает false, если запись была изменена.
	MarkStatus(
		ctx context.Context,
		localID int64,
		seenUpdatedAt time.Time,
		status SyncStatus,
		pushedAt *time.Time,
	) (bool, error)
	CountUnsynced(ctx context.Context, owner string) (int, error)
}
