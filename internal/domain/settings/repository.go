package settings

import "context"

// Repository - локальное хранилище настроек.
type Repository interface {
	// Get возвращает ErrNotFound, если настройки владельца ещё не сохранялись.
	Get(ctx context.Context, owner string) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
