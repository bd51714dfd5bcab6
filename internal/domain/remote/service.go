package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"replikeep/internal/app/server/api/http/middleware/auth"
	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс сервиса удалённого хранилища
type Servicer interface {
	// Upsert записывает пакет записей одного типа
	Upsert(ctx context.Context, kind record.Kind, req UpsertRequest) (*UpsertResponse, error)

	// Query возвращает страницу изменений одного типа
	Query(ctx context.Context, kind record.Kind, req QueryRequest) (*QueryResponse, error)

	// GetSettings возвращает документ настроек владельца
	GetSettings(ctx context.Context) (*settings.Document, error)

	// PutSettings заменяет документ настроек владельца
	PutSettings(ctx context.Context, doc settings.Document) error
}

// Service реализация сервиса удалённого хранилища
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
	now    func() time.Time
}

// NewService создает новый сервис удалённого хранилища
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}

	return &Service{
		repo:   repo,
		log:    log.With("component", "remote_service"),
		config: config,
		now:    time.Now,
	}
}

// Upsert записывает пакет записей. Ошибки отдельных записей не прерывают
// пакет и возвращаются в ответе.
func (s *Service) Upsert(ctx context.Context, kind record.Kind, req UpsertRequest) (*UpsertResponse, error) {
	owner, ok := auth.GetOwner(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if len(req.Records) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(req.Records), s.config.MaxBatchSize)
	}

	resp := &UpsertResponse{Status: "Ok"}
	for i, rec := range req.Records {
		if err := s.validate(owner, kind, &rec); err != nil {
			resp.Errors = append(resp.Errors, FailedRecord{Index: i, SyncID: rec.SyncID, Error: err.Error()})
			continue
		}

		applied, err := s.repo.UpsertRecord(ctx, owner, rec)
		if err != nil {
			s.log.Error("failed to upsert record", "owner", owner, "kind", kind, "sync_id", rec.SyncID, "error", err)
			resp.Errors = append(resp.Errors, FailedRecord{Index: i, SyncID: rec.SyncID, Error: "failed to store record"})
			continue
		}
		if applied {
			resp.Applied++
		} else {
			resp.Stale++
		}
	}
	resp.Failed = len(resp.Errors)

	s.log.Debug("records upserted",
		"owner", owner,
		"kind", kind,
		"applied", resp.Applied,
		"stale", resp.Stale,
		"failed", resp.Failed,
	)
	return resp, nil
}

// Query возвращает страницу изменений типа в порядке (updatedAt, syncId).
func (s *Service) Query(ctx context.Context, kind record.Kind, req QueryRequest) (*QueryResponse, error) {
	owner, ok := auth.GetOwner(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	// Валидация параметров
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.BatchSize
	}
	if limit > s.config.MaxQueryRecords {
		limit = s.config.MaxQueryRecords
	}

	q := Query{
		Since:       normalize(req.Since),
		CreatedFrom: normalize(req.CreatedFrom),
		After:       req.After,
		Limit:       limit + 1,
	}
	if q.After != nil {
		q.After.UpdatedAt = q.After.UpdatedAt.UTC()
	}

	recs, err := s.repo.QueryRecords(ctx, owner, kind, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	// Проверяем, есть ли еще записи
	resp := &QueryResponse{Status: "Ok", Records: recs, ServerTime: s.now().UTC()}
	if len(recs) > limit {
		resp.Records = recs[:limit]
		resp.HasMore = true
		last := resp.Records[limit-1]
		resp.Next = &Cursor{UpdatedAt: last.UpdatedAt, SyncID: last.SyncID}
	}
	if resp.Records == nil {
		resp.Records = []record.Remote{}
	}

	return resp, nil
}

// GetSettings возвращает документ настроек владельца.
func (s *Service) GetSettings(ctx context.Context) (*settings.Document, error) {
	owner, ok := auth.GetOwner(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	doc, err := s.repo.GetSettings(ctx, owner)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return doc, nil
}

// PutSettings заменяет документ настроек владельца.
func (s *Service) PutSettings(ctx context.Context, doc settings.Document) error {
	owner, ok := auth.GetOwner(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	if doc.Owner != "" && doc.Owner != owner {
		return fmt.Errorf("%w: owner mismatch", ErrInvalidSettings)
	}
	if len(doc.Fields) == 0 || !json.Valid(doc.Fields) {
		return fmt.Errorf("%w: fields must be a JSON object", ErrInvalidSettings)
	}

	doc.Owner = owner
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now().UTC()
	}
	if err := s.repo.PutSettings(ctx, doc); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *Service) validate(owner string, kind record.Kind, rec *record.Remote) error {
	if rec.SyncID == "" {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, record.ErrEmptySyncID)
	}
	if rec.Owner != "" && rec.Owner != owner {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, record.ErrOwnerMismatch)
	}
	if rec.Kind != "" && rec.Kind != kind {
		return fmt.Errorf("%w: kind %q does not match %q", ErrInvalidRecord, rec.Kind, kind)
	}
	if rec.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: updated_at is required", ErrInvalidRecord)
	}
	if len(rec.Payload) == 0 || !json.Valid(rec.Payload) {
		return fmt.Errorf("%w: payload must be valid JSON", ErrInvalidRecord)
	}

	rec.Owner = owner
	rec.Kind = kind
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.DeletedAt != nil {
		d := rec.DeletedAt.UTC()
		rec.DeletedAt = &d
	}
	return nil
}

func normalize(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
