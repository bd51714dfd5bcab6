package record

import (
	"encoding/json"
	"time"
)

// SyncStatus - состояние записи относительно удалённого хранилища.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
)

// Record - локальная копия синхронизируемой сущности.
type Record struct {
	LocalID    int64           `json:"-"`
	SyncID     string          `json:"sync_id"`
	Owner      string          `json:"owner"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *time.Time      `json:"deleted_at,omitempty"`
	SyncStatus SyncStatus      `json:"sync_status"`
	PushedAt   *time.Time      `json:"pushed_at,omitempty"`
}

// Remote - представление записи в удалённом хранилище.
// Локальные поля (localId, статус, pushedAt) в него не попадают.
type Remote struct {
	SyncID    string          `json:"sync_id" minLength:"1" doc:"Глобальный идентификатор записи"`
	Owner     string          `json:"owner,omitempty" doc:"Владелец записи; сервер берёт его из токена"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload" doc:"Содержимое записи"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// IsDeleted сообщает, является ли запись надгробием.
func (r *Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// ToRemote строит удалённое представление записи.
func (r *Record) ToRemote() Remote {
	return Remote{
		SyncID:    r.SyncID,
		Owner:     r.Owner,
		Kind:      r.Kind,
		Payload:   cloneRaw(r.Payload),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		DeletedAt: cloneTime(r.DeletedAt),
	}
}

// FromRemote создаёт локальную запись из удалённой. Запись сразу считается
// синхронизированной.
func FromRemote(rem Remote, pulledAt time.Time) *Record {
	r := &Record{}
	r.ApplyRemote(rem, pulledAt)
	return r
}

// ApplyRemote перезаписывает поля записи удалённой версией, сохраняя localId.
func (r *Record) ApplyRemote(rem Remote, pulledAt time.Time) {
	pushed := pulledAt
	r.SyncID = rem.SyncID
	r.Owner = rem.Owner
	r.Kind = rem.Kind
	r.Payload = cloneRaw(rem.Payload)
	r.CreatedAt = rem.CreatedAt
	r.UpdatedAt = rem.UpdatedAt
	r.DeletedAt = cloneTime(rem.DeletedAt)
	r.SyncStatus = StatusSynced
	r.PushedAt = &pushed
}

// Clone возвращает глубокую копию записи.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Payload = cloneRaw(r.Payload)
	c.DeletedAt = cloneTime(r.DeletedAt)
	c.PushedAt = cloneTime(r.PushedAt)
	return &c
}

// Query задаёт отбор записей на отправку.
type Query struct {
	// Since - водяной знак отправки; nil означает "всё".
	Since *time.Time
	// IncludeUnsynced добавляет записи со статусом, отличным от synced.
	IncludeUnsynced bool
	// CreatedFrom - нижняя граница окна по createdAt.
	CreatedFrom *time.Time
}

// Matches применяет условия отбора к записи.
func (q Query) Matches(r *Record) bool {
	if q.CreatedFrom != nil && r.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.Since == nil || r.PushedAt == nil {
		return true
	}
	if r.UpdatedAt.After(*q.Since) {
		return true
	}
	return q.IncludeUnsynced && r.SyncStatus != StatusSynced
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
