package sync

import (
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"
)

// State - состояние синхронизации владельца.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
	StateFailed          State = "failed"
	StateSkipped         State = "skipped"
)

// DefaultClockDriftBuffer - запас, на который сдвигается назад водяной знак
// получения.
const DefaultClockDriftBuffer = 5 * time.Second

// DefaultPushBatchSize - число записей в одном запросе отправки.
const DefaultPushBatchSize = 100

// ServiceConfig конфигурация сервиса синхронизации
type ServiceConfig struct {
	ClockDriftBuffer time.Duration
	PushBatchSize    int
	// Now - источник времени. По умолчанию time.Now.
	Now func() time.Time
	// Resolver разрешает конфликты записей. По умолчанию LastWriteWins.
	Resolver Resolver
	// Sealer возвращает средство запечатывания секретов владельца или nil.
	Sealer func(owner string) settings.Sealer
	// Locker дополняет внутрипроцессную защиту от параллельных прогонов.
	Locker Locker
}

// DefaultServiceConfig возвращает конфигурацию по умолчанию.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		ClockDriftBuffer: DefaultClockDriftBuffer,
		PushBatchSize:    DefaultPushBatchSize,
		Now:              time.Now,
		Resolver:         LastWriteWins{},
	}
}

// KindResult - итог синхронизации одного типа.
type KindResult struct {
	Kind    record.Kind
	Pushed  int
	Pulled  int
	Failed  []RecordError
	PushErr error
	PullErr error
}

// Succeeded сообщает, что отправка и получение прошли без ошибок.
func (k KindResult) Succeeded() bool {
	return k.PushErr == nil && k.PullErr == nil && len(k.Failed) == 0
}

// SettingsResult - итог слияния настроек.
type SettingsResult struct {
	Merged bool
	// Unreadable - секретные поля, которые не удалось открыть.
	Unreadable []string
	Err        error
}

// Result - итог прогона синхронизации.
type Result struct {
	Owner      string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Kinds      []KindResult
	Settings   SettingsResult
	Err        error
}

// Pushed возвращает число отправленных записей.
func (r *Result) Pushed() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Pushed
	}
	return n
}

// Pulled возвращает число применённых удалённых записей.
func (r *Result) Pulled() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Pulled
	}
	return n
}

// Errors собирает все ошибки прогона.
func (r *Result) Errors() []error {
	var errs []error
	if r.Err != nil {
		errs = append(errs, r.Err)
	}
	for _, k := range r.Kinds {
		if k.PushErr != nil {
			errs = append(errs, k.PushErr)
		}
		for _, f := range k.Failed {
			errs = append(errs, f)
		}
		if k.PullErr != nil {
			errs = append(errs, k.PullErr)
		}
	}
	if r.Settings.Err != nil {
		errs = append(errs, r.Settings.Err)
	}
	return errs
}

func (r *Result) finish(at time.Time, fatal error) {
	r.FinishedAt = at
	r.Err = fatal
	if fatal != nil {
		r.State = StateFailed
		return
	}

	ok, total := 0, len(r.Kinds)+1
	for _, k := range r.Kinds {
		if k.Succeeded() {
			ok++
		}
	}
	if r.Settings.Err == nil {
		ok++
	}

	switch {
	case ok == total:
		r.State = StateSucceeded
	case ok > 0:
		r.State = StatePartiallyFailed
	default:
		r.State = StateFailed
	}
}
