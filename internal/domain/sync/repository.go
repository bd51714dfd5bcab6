package sync

import (
	"context"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"
)

// RemoteQuery - условия выборки изменений из удалённого хранилища.
type RemoteQuery struct {
	// Since - нижняя граница updatedAt (включительно); nil означает "всё".
	Since *time.Time
	// CreatedFrom - нижняя граница окна по createdAt.
	CreatedFrom *time.Time
}

// RemoteStore - удалённое хранилище, адресуемое парой (owner, syncId).
type RemoteStore interface {
	// Probe проверяет реальную доступность удалённого хранилища.
	Probe(ctx context.Context) bool
	// UpsertBatch отправляет пачку записей одного типа. В rejected - ошибки
	// отклонённых записей по их индексу в пачке. Ошибка результата означает,
	// что пачка не принята целиком.
	UpsertBatch(ctx context.Context, kind record.Kind, recs []record.Remote) (rejected map[int]error, err error)
	QueryModifiedSince(ctx context.Context, kind record.Kind, owner string, q RemoteQuery) ([]record.Remote, error)
	// GetSettings возвращает settings.ErrNotFound, если документа нет.
	GetSettings(ctx context.Context, owner string) (*settings.Document, error)
	PutSettings(ctx context.Context, owner string, doc settings.Document) error
}

// MetadataStore хранит водяные знаки синхронизации.
type MetadataStore interface {
	// Get возвращает nil, если ключ не задан.
	Get(ctx context.Context, key string) (*time.Time, error)
	Set(ctx context.Context, key string, ts time.Time) error
	Clear(ctx context.Context) error
	// ClearPrefix удаляет ключи с заданным префиксом.
	ClearPrefix(ctx context.Context, prefix string) error
}

// Stores - локальные хранилища, с которыми работает синхронизация.
type Stores struct {
	Records  []record.Repository
	Settings settings.Repository
	Metadata MetadataStore
}
