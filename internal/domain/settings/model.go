package settings

import (
	"encoding/json"
	"time"
)

// Settings - пользовательские настройки, одна запись на владельца.
//
// Тег merge задаёт стратегию слияния поля:
//   - local  - непустое локальное значение побеждает, поле секретное;
//   - or     - логическое ИЛИ двух значений;
//   - remote - удалённое значение, если оно задано, иначе локальное.
type Settings struct {
	Owner string `json:"-"`

	APIKey     string `json:"api_key,omitempty" merge:"local"`
	ProxyToken string `json:"proxy_token,omitempty" merge:"local"`

	VoiceEnabled     bool `json:"voice_enabled" merge:"or"`
	RemindersEnabled bool `json:"reminders_enabled" merge:"or"`
	InsightsEnabled  bool `json:"insights_enabled" merge:"or"`

	Units     string  `json:"units,omitempty" merge:"remote"`
	DailyGoal float64 `json:"daily_goal,omitempty" merge:"remote"`
	Theme     string  `json:"theme,omitempty" merge:"remote"`
	Language  string  `json:"language,omitempty" merge:"remote"`

	UpdatedAt time.Time `json:"-"`
}

// Document - представление настроек в удалённом хранилище.
// Сервер хранит Fields как непрозрачный JSON.
type Document struct {
	Owner     string          `json:"owner,omitempty"`
	Fields    json.RawMessage `json:"fields" doc:"Поля настроек; секреты запечатаны или пусты"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Clone возвращает копию настроек.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Sealer запечатывает секретные поля перед отправкой.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}
