package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

// Storage владеет пулом соединений сервера.
type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// New открывает пул и проверяет соединение. Схему создают миграции.
func New(ctx context.Context, databaseURI string, log *slog.Logger) (*Storage, error) {
	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Storage{pool: pool, log: log}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

// Remote возвращает репозиторий записей и настроек поверх пула.
func (s *Storage) Remote() *RemoteRepository {
	return NewRemoteRepository(s.pool, s.log)
}
