package client

import (
	"context"
	"io"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"replikeep/internal/domain/sync"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSyncer) FullSync(_ context.Context, owner string) (*sync.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return &sync.Result{Owner: owner, State: sync.StateFailed, Err: c.err}, c.err
	}
	return &sync.Result{Owner: owner, State: sync.StateSucceeded}, nil
}

type switchProber struct {
	mu     gosync.Mutex
	online bool
	probes int
}

func (p *switchProber) Probe(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	return p.online
}

func (p *switchProber) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_DebounceCoalesces(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, nil, "alice", SchedulerConfig{Debounce: 100 * time.Millisecond}, quietLogger())
	s.Start(context.Background())
	defer s.Stop()

	var lastNotify time.Time
	for i := 0; i < 5; i++ {
		if i > 0 {
			time.Sleep(10 * time.Millisecond)
		}
		s.NotifyChange()
		lastNotify = time.Now()
	}

	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(lastNotify), 95*time.Millisecond)

	// Новых запусков нет.
	time.Sleep(250 * time.Millisecond)
	assert.EqualValues(t, 1, syncer.calls.Load())
}

func TestScheduler_ForegroundEdge(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, nil, "alice", SchedulerConfig{}, quietLogger())
	s.Start(context.Background())
	defer s.Stop()

	s.SetForeground(true) // уже на переднем плане
	s.SetForeground(false)
	s.SetForeground(true)
	s.SetForeground(true)

	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, syncer.calls.Load())
}

func TestScheduler_ConnectivityRestored(t *testing.T) {
	syncer := &countingSyncer{}
	prober := &switchProber{}
	s := NewScheduler(syncer, prober, "alice", SchedulerConfig{ProbeInterval: 20 * time.Millisecond}, quietLogger())
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(80 * time.Millisecond)
	assert.EqualValues(t, 0, syncer.calls.Load())

	prober.set(true)
	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Пока связь есть, повторных запусков нет.
	time.Sleep(80 * time.Millisecond)
	assert.EqualValues(t, 1, syncer.calls.Load())
}

func TestScheduler_UnreachableResetsOnline(t *testing.T) {
	syncer := &countingSyncer{err: sync.ErrUnreachable}
	s := NewScheduler(syncer, nil, "alice", SchedulerConfig{}, quietLogger())
	s.Start(context.Background())
	defer s.Stop()

	s.SetOnline(true)
	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Неудачный запуск снова переводит в offline, и следующее восстановление
	// связи запускает синхронизацию.
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.online
	}, time.Second, 5*time.Millisecond)
	s.SetOnline(true)
	assert.Eventually(t, func() bool { return syncer.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_Interval(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, nil, "alice", SchedulerConfig{Interval: 20 * time.Millisecond}, quietLogger())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	calls := syncer.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, syncer.calls.Load())
}

func TestScheduler_StopDropsPendingDebounce(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, nil, "alice", SchedulerConfig{Debounce: 50 * time.Millisecond}, quietLogger())
	s.Start(context.Background())

	s.NotifyChange()
	s.Stop()
	s.NotifyChange()

	time.Sleep(120 * time.Millisecond)
	assert.EqualValues(t, 0, syncer.calls.Load())
}
