// Package memory содержит in-memory реализации локальных и удалённых
// хранилищ. Используется в тестах и в режиме разработки.
package memory

import (
	"context"
	"strings"
	gosync "sync"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"
)

// Storage - локальное in-memory хранилище всех типов.
type Storage struct {
	specs    []record.Spec
	records  map[record.Kind]*RecordRepository
	metadata *MetadataStore
	settings *SettingsRepository
}

// NewStorage создаёт хранилище для набора типов.
func NewStorage(specs []record.Spec) *Storage {
	s := &Storage{
		specs:    specs,
		records:  make(map[record.Kind]*RecordRepository, len(specs)),
		metadata: NewMetadataStore(),
		settings: NewSettingsRepository(),
	}
	for _, spec := range specs {
		s.records[spec.Kind] = NewRecordRepository(spec)
	}
	return s
}

// Records возвращает хранилище записей типа.
func (s *Storage) Records(kind record.Kind) (record.Repository, bool) {
	r, ok := s.records[kind]
	return r, ok
}

// AllRecords возвращает хранилища всех типов в порядке описания.
func (s *Storage) AllRecords() []record.Repository {
	out := make([]record.Repository, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, s.records[spec.Kind])
	}
	return out
}

func (s *Storage) Metadata() *MetadataStore {
	return s.metadata
}

func (s *Storage) Settings() *SettingsRepository {
	return s.settings
}

func (s *Storage) Close() error {
	return nil
}

// MetadataStore - in-memory хранилище водяных знаков.
type MetadataStore struct {
	mu     gosync.RWMutex
	values map[string]time.Time
}

func NewMetadataStore() *MetadataStore {
	return &MetadataStore{values: make(map[string]time.Time)}
}

func (m *MetadataStore) Get(_ context.Context, key string) (*time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MetadataStore) Set(_ context.Context, key string, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = ts
	return nil
}

func (m *MetadataStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]time.Time)
	return nil
}

func (m *MetadataStore) ClearPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			delete(m.values, key)
		}
	}
	return nil
}

// SettingsRepository - in-memory хранилище настроек.
type SettingsRepository struct {
	mu     gosync.RWMutex
	values map[string]*settings.Settings
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{values: make(map[string]*settings.Settings)}
}

func (m *SettingsRepository) Get(_ context.Context, owner string) (*settings.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.values[owner]
	if !ok {
		return nil, settings.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *SettingsRepository) Save(_ context.Context, s *settings.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[s.Owner] = s.Clone()
	return nil
}
