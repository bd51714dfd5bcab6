package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Payload - данные записи конкретного типа.
type Payload interface {
	Kind() Kind
	Validate() error
}

// EntryPayload - основная сущность (позиция учёта).
type EntryPayload struct {
	Name         string  `json:"name"`
	Category     string  `json:"category,omitempty"`
	Quantity     float64 `json:"quantity,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	ParentSyncID string  `json:"parent_sync_id,omitempty"`
}

func (EntryPayload) Kind() Kind { return KindEntry }

func (p EntryPayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	return nil
}

// LogPayload - журнальная запись по позиции.
type LogPayload struct {
	EntrySyncID string  `json:"entry_sync_id"`
	Value       float64 `json:"value"`
	Note        string  `json:"note,omitempty"`
}

func (LogPayload) Kind() Kind { return KindLog }

func (p LogPayload) Validate() error {
	if p.EntrySyncID == "" {
		return errors.New("entry_sync_id is required")
	}
	return nil
}

// MessagePayload - сообщение в диалоге.
type MessagePayload struct {
	ThreadSyncID string `json:"thread_sync_id,omitempty"`
	Role         string `json:"role"`
	Content      string `json:"content"`
}

func (MessagePayload) Kind() Kind { return KindMessage }

func (p MessagePayload) Validate() error {
	switch p.Role {
	case "user", "assistant", "system":
	default:
		return fmt.Errorf("unsupported role %q", p.Role)
	}
	if p.Content == "" {
		return errors.New("content is required")
	}
	return nil
}

// EncodePayload валидирует и сериализует данные записи.
func EncodePayload(p Payload) (json.RawMessage, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", p.Kind(), err)
	}
	return raw, nil
}

// DecodePayload разбирает данные записи в структуру её типа.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case KindEntry:
		var v EntryPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case KindLog:
		var v LogPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case KindMessage:
		var v MessagePayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", kind, err)
	}
	return p, nil
}
