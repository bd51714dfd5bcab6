package sync

import (
	"testing"
	"time"

	"replikeep/internal/domain/record"

	"github.com/stretchr/testify/assert"
)

func TestLastWriteWins(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	deleted := base.Add(time.Minute)

	tests := []struct {
		name   string
		local  record.Record
		remote record.Remote
		want   Decision
	}{
		{
			name:   "remote newer",
			local:  record.Record{UpdatedAt: base},
			remote: record.Remote{UpdatedAt: base.Add(time.Second)},
			want:   TakeRemote,
		},
		{
			name:   "local newer",
			local:  record.Record{UpdatedAt: base.Add(time.Second)},
			remote: record.Remote{UpdatedAt: base},
			want:   KeepLocal,
		},
		{
			name:   "tie keeps local",
			local:  record.Record{UpdatedAt: base},
			remote: record.Remote{UpdatedAt: base},
			want:   KeepLocal,
		},
		{
			name:   "newer tombstone wins",
			local:  record.Record{UpdatedAt: base},
			remote: record.Remote{UpdatedAt: deleted, DeletedAt: &deleted},
			want:   TakeRemote,
		},
		{
			name:   "older tombstone loses to a later edit",
			local:  record.Record{UpdatedAt: deleted.Add(time.Second)},
			remote: record.Remote{UpdatedAt: deleted, DeletedAt: &deleted},
			want:   KeepLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := tt.local
			assert.Equal(t, tt.want, LastWriteWins{}.Resolve(&local, tt.remote))
		})
	}
}

func TestFlightGuard(t *testing.T) {
	g := newFlightGuard()

	release, ok := g.tryAcquire("alice")
	assert.True(t, ok)
	assert.True(t, g.active("alice"))

	_, ok = g.tryAcquire("alice")
	assert.False(t, ok)

	releaseBob, ok := g.tryAcquire("bob")
	assert.True(t, ok)
	releaseBob()

	release()
	release()
	assert.False(t, g.active("alice"))

	_, ok = g.tryAcquire("alice")
	assert.True(t, ok)
}
