package sync

import "replikeep/internal/domain/record"

// Decision - исход разрешения конфликта.
type Decision int

const (
	KeepLocal Decision = iota
	TakeRemote
)

// Resolver выбирает версию записи при получении удалённого изменения.
type Resolver interface {
	Resolve(local *record.Record, remote record.Remote) Decision
}

// LastWriteWins побеждает версия с большим updatedAt. При равенстве
// остаётся локальная версия. Надгробие сравнивается как обычное изменение.
type LastWriteWins struct{}

func (LastWriteWins) Resolve(local *record.Record, remote record.Remote) Decision {
	if remote.UpdatedAt.After(local.UpdatedAt) {
		return TakeRemote
	}
	return KeepLocal
}
