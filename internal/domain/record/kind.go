package record

import (
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Kind - тип синхронизируемой сущности.
type Kind string

const (
	KindEntry   Kind = "entry"
	KindLog     Kind = "log"
	KindMessage Kind = "message"
)

const (
	DefaultLogWindow     = 30 * 24 * time.Hour
	DefaultMessageWindow = 14 * 24 * time.Hour
)

// Kinds возвращает все известные типы в порядке синхронизации.
func Kinds() []Kind {
	return []Kind{KindEntry, KindLog, KindMessage}
}

// ParseKind разбирает строковое представление типа.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (Kind) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        "string",
		Enum:        []any{string(KindEntry), string(KindLog), string(KindMessage)},
		Description: "Тип синхронизируемой сущности",
		Examples:    []any{KindEntry},
	}
}

// Validate проверяет, что тип известен.
func (k Kind) Validate() error {
	switch k {
	case KindEntry, KindLog, KindMessage:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

func (k Kind) String() string {
	return string(k)
}

// Spec описывает роль типа в синхронизации.
//
// Основной тип (Primary) синхронизируется целиком и отслеживает статус каждой
// записи. Оконный тип синхронизирует только записи, созданные не раньше
// now - Window, и статус для отбора не использует.
type Spec struct {
	Kind    Kind
	Table   string
	Primary bool
	Window  time.Duration
}

// TracksStatus сообщает, участвует ли статус записи в отборе на отправку.
func (s Spec) TracksStatus() bool {
	return s.Primary
}

// Windowed сообщает, ограничен ли тип временным окном.
func (s Spec) Windowed() bool {
	return !s.Primary && s.Window > 0
}

// WindowStart возвращает нижнюю границу окна по createdAt или nil.
func (s Spec) WindowStart(now time.Time) *time.Time {
	if !s.Windowed() {
		return nil
	}
	start := now.Add(-s.Window)
	return &start
}

// InWindow проверяет, попадает ли момент создания в окно типа.
func (s Spec) InWindow(createdAt, now time.Time) bool {
	start := s.WindowStart(now)
	return start == nil || !createdAt.Before(*start)
}

// DefaultSpecs возвращает описания всех типов. Основной тип идёт первым.
func DefaultSpecs(logWindow, messageWindow time.Duration) []Spec {
	if logWindow <= 0 {
		logWindow = DefaultLogWindow
	}
	if messageWindow <= 0 {
		messageWindow = DefaultMessageWindow
	}
	return []Spec{
		{Kind: KindEntry, Table: "entries", Primary: true},
		{Kind: KindLog, Table: "logs", Window: logWindow},
		{Kind: KindMessage, Table: "messages", Window: messageWindow},
	}
}

// FindSpec ищет описание типа в наборе.
func FindSpec(specs []Spec, kind Kind) (Spec, bool) {
	for _, s := range specs {
		if s.Kind == kind {
			return s, true
		}
	}
	return Spec{}, false
}
