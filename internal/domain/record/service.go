package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Servicer - локальные изменения записей, видимые пользователю.
type Servicer interface {
	Create(ctx context.Context, owner string, payload Payload) (*Record, error)
	Update(ctx context.Context, owner, syncID string, payload Payload) (*Record, error)
	Delete(ctx context.Context, owner string, kind Kind, syncID string) (*Record, error)
	Get(ctx context.Context, owner string, kind Kind, syncID string) (*Record, error)
	ListActive(ctx context.Context, owner string, kind Kind) ([]*Record, error)
}

// ServiceConfig - настройки сервиса записей.
type ServiceConfig struct {
	// Now - источник времени. По умолчанию time.Now.
	Now func() time.Time
	// OnChange вызывается после каждого успешного локального изменения.
	OnChange func(kind Kind)
}

// DefaultServiceConfig возвращает конфигурацию по умолчанию.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{Now: time.Now}
}

// Service выполняет локальные изменения записей.
type Service struct {
	repos  map[Kind]Repository
	log    *slog.Logger
	config *ServiceConfig
}

// NewService создаёт сервис поверх репозиториев всех типов.
func NewService(repos []Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	byKind := make(map[Kind]Repository, len(repos))
	for _, r := range repos {
		byKind[r.Spec().Kind] = r
	}

	return &Service{
		repos:  byKind,
		log:    log.With("component", "record_service"),
		config: config,
	}
}

// Create сохраняет новую запись со свежим syncId.
func (s *Service) Create(ctx context.Context, owner string, payload Payload) (*Record, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	repo, err := s.repo(payload.Kind())
	if err != nil {
		return nil, err
	}
	raw, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rec := &Record{
		SyncID:     uuid.NewString(),
		Owner:      owner,
		Kind:       payload.Kind(),
		Payload:    raw,
		CreatedAt:  now,
		UpdatedAt:  now,
		SyncStatus: StatusPending,
	}

	id, err := repo.Insert(ctx, rec)
	if err != nil {
		s.log.Error("failed to create record", "kind", rec.Kind, "owner", owner, "error", err)
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	rec.LocalID = id

	s.log.Debug("record created", "kind", rec.Kind, "sync_id", rec.SyncID)
	s.changed(rec.Kind)
	return rec, nil
}

// Update заменяет данные существующей записи.
func (s *Service) Update(ctx context.Context, owner, syncID string, payload Payload) (*Record, error) {
	raw, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	rec, err := s.mutate(ctx, owner, payload.Kind(), syncID, func(r *Record, _ time.Time) error {
		if r.IsDeleted() {
			return ErrRecordDeleted
		}
		r.Payload = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("record updated", "kind", rec.Kind, "sync_id", syncID)
	return rec, nil
}

// Delete помечает запись надгробием. Физически запись не удаляется.
func (s *Service) Delete(ctx context.Context, owner string, kind Kind, syncID string) (*Record, error) {
	rec, err := s.mutate(ctx, owner, kind, syncID, func(r *Record, now time.Time) error {
		if r.IsDeleted() {
			return ErrRecordDeleted
		}
		deleted := now
		r.DeletedAt = &deleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("record deleted", "kind", kind, "sync_id", syncID)
	return rec, nil
}

// Get возвращает запись по syncId, включая надгробия.
func (s *Service) Get(ctx context.Context, owner string, kind Kind, syncID string) (*Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	return repo.FindBySyncID(ctx, owner, syncID)
}

// ListActive возвращает записи без надгробий.
func (s *Service) ListActive(ctx context.Context, owner string, kind Kind) ([]*Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	recs, err := repo.ListActive(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", kind, err)
	}
	return recs, nil
}

func (s *Service) mutate(
	ctx context.Context,
	owner string,
	kind Kind,
	syncID string,
	apply func(r *Record, now time.Time) error,
) (*Record, error) {
	if syncID == "" {
		return nil, ErrEmptySyncID
	}
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}

	rec, err := repo.FindBySyncID(ctx, owner, syncID)
	if err != nil {
		return nil, err
	}

	now := s.stamp(rec.UpdatedAt)
	if err := apply(rec, now); err != nil {
		return nil, err
	}
	rec.UpdatedAt = now
	rec.SyncStatus = StatusPending

	if err := repo.UpdateByLocalID(ctx, rec); err != nil {
		s.log.Error("failed to update record", "kind", kind, "sync_id", syncID, "error", err)
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.changed(kind)
	return rec, nil
}

// stamp возвращает метку изменения строго больше предыдущей.
func (s *Service) stamp(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func (s *Service) now() time.Time {
	return s.config.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) repo(kind Kind) (Repository, error) {
	repo, ok := s.repos[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRepository, kind)
	}
	return repo, nil
}

func (s *Service) changed(kind Kind) {
	if s.config.OnChange != nil {
		s.config.OnChange(kind)
	}
}

// IsNotFound сообщает, что запись отсутствует.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
