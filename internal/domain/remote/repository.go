package remote

import (
	"context"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"
)

// Repository интерфейс удалённого хранилища записей и настроек.
type Repository interface {
	// UpsertRecord вставляет или заменяет запись по (owner, kind, syncId).
	// Запись с updatedAt старше сохранённой не применяется, тогда
	// возвращается false.
	UpsertRecord(ctx context.Context, owner string, rec record.Remote) (bool, error)

	// QueryRecords возвращает записи в порядке (updatedAt, syncId).
	QueryRecords(ctx context.Context, owner string, kind record.Kind, q Query) ([]record.Remote, error)

	// GetSettings возвращает settings.ErrNotFound, если документа нет.
	GetSettings(ctx context.Context, owner string) (*settings.Document, error)
	PutSettings(ctx context.Context, doc settings.Document) error
}
