package remote

import (
	"time"

	"replikeep/internal/domain/record"
)

// Cursor - позиция постраничной выборки: пара (updatedAt, syncId).
type Cursor struct {
	UpdatedAt time.Time `json:"updated_at"`
	SyncID    string    `json:"sync_id"`
}

// Query - условия выборки записей владельца.
type Query struct {
	Since       *time.Time
	CreatedFrom *time.Time
	After       *Cursor
	Limit       int
}

// Matches применяет условия выборки (кроме лимита) к записи.
func (q Query) Matches(rec record.Remote) bool {
	if q.CreatedFrom != nil && rec.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.Since != nil && rec.UpdatedAt.Before(*q.Since) {
		return false
	}
	if q.After != nil && !Less(*q.After, rec) {
		return false
	}
	return true
}

// Less сообщает, что запись идёт строго после курсора в порядке выборки.
func Less(c Cursor, rec record.Remote) bool {
	if rec.UpdatedAt.Equal(c.UpdatedAt) {
		return rec.SyncID > c.SyncID
	}
	return rec.UpdatedAt.After(c.UpdatedAt)
}

// ServiceConfig конфигурация сервиса удалённого хранилища
type ServiceConfig struct {
	BatchSize    int `json:"batch_size"`
	MaxBatchSize int `json:"max_batch_size"`
	// MaxQueryRecords - верхний предел размера страницы выборки.
	MaxQueryRecords int `json:"max_query_records"`
}

// DefaultServiceConfig возвращает конфигурацию по умолчанию.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		BatchSize:       500,
		MaxBatchSize:    1000,
		MaxQueryRecords: 1000,
	}
}
