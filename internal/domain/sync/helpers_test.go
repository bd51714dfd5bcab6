package sync

import (
	"context"
	"io"
	gosync "sync"
	"testing"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
	"replikeep/internal/infrastructure/storage/memory"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeClock struct {
	mu  gosync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// fakeRemote - удалённое хранилище поверх memory.RemoteRepository с
// внедрением сбоев.
type fakeRemote struct {
	repo *memory.RemoteRepository

	mu          gosync.Mutex
	unreachable bool
	reject      map[string]error
	queryErr    map[record.Kind]error
	settingsErr error
	upserts     int
	batches     []int
	onUpsert    func(rec record.Remote)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		repo:     memory.NewRemoteRepository(),
		reject:   make(map[string]error),
		queryErr: make(map[record.Kind]error),
	}
}

func (f *fakeRemote) setUnreachable(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable = v
}

func (f *fakeRemote) rejectRecord(syncID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.reject, syncID)
		return
	}
	f.reject[syncID] = err
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeRemote) Probe(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unreachable
}

func (f *fakeRemote) UpsertBatch(ctx context.Context, kind record.Kind, recs []record.Remote) (map[int]error, error) {
	f.mu.Lock()
	hook := f.onUpsert
	unreachable := f.unreachable
	f.batches = append(f.batches, len(recs))
	f.mu.Unlock()

	if unreachable {
		return nil, ErrUnreachable
	}

	rejected := make(map[int]error)
	for i, rec := range recs {
		f.mu.Lock()
		rejectErr := f.reject[rec.SyncID]
		f.upserts++
		f.mu.Unlock()

		if hook != nil {
			hook(rec)
		}
		if rejectErr != nil {
			rejected[i] = rejectErr
			continue
		}
		rec.Kind = kind
		if _, err := f.repo.UpsertRecord(ctx, rec.Owner, rec); err != nil {
			return nil, err
		}
	}
	return rejected, nil
}

func (f *fakeRemote) batchSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.batches...)
}

func (f *fakeRemote) QueryModifiedSince(
	ctx context.Context,
	kind record.Kind,
	owner string,
	q RemoteQuery,
) ([]record.Remote, error) {
	f.mu.Lock()
	unreachable := f.unreachable
	err := f.queryErr[kind]
	f.mu.Unlock()

	if unreachable {
		return nil, ErrUnreachable
	}
	if err != nil {
		return nil, err
	}
	return f.repo.QueryRecords(ctx, owner, kind, remote.Query{Since: q.Since, CreatedFrom: q.CreatedFrom})
}

func (f *fakeRemote) GetSettings(ctx context.Context, owner string) (*settings.Document, error) {
	f.mu.Lock()
	err := f.settingsErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.repo.GetSettings(ctx, owner)
}

func (f *fakeRemote) PutSettings(ctx context.Context, owner string, doc settings.Document) error {
	doc.Owner = owner
	return f.repo.PutSettings(ctx, doc)
}

// replica - одно устройство: локальное хранилище, сервис записей и
// сервис синхронизации со своими часами.
type replica struct {
	owner   string
	clock   *fakeClock
	store   *memory.Storage
	records *record.Service
	sync    *Service
}

var testSpecs = record.DefaultSpecs(0, 0)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReplica(t *testing.T, remote RemoteStore, clock *fakeClock, opts ...func(*ServiceConfig)) *replica {
	t.Helper()

	store := memory.NewStorage(testSpecs)
	cfg := DefaultServiceConfig()
	cfg.Now = clock.Now
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := NewService(Stores{
		Records:  store.AllRecords(),
		Settings: store.Settings(),
		Metadata: store.Metadata(),
	}, remote, discardLogger(), cfg)
	require.NoError(t, err)

	return &replica{
		owner:   "alice",
		clock:   clock,
		store:   store,
		records: record.NewService(store.AllRecords(), discardLogger(), &record.ServiceConfig{Now: clock.Now}),
		sync:    svc,
	}
}

func (r *replica) createEntry(t *testing.T, name string) *record.Record {
	t.Helper()
	rec, err := r.records.Create(context.Background(), r.owner, record.EntryPayload{Name: name})
	require.NoError(t, err)
	return rec
}

func (r *replica) createLog(t *testing.T, entrySyncID string, value float64) *record.Record {
	t.Helper()
	rec, err := r.records.Create(context.Background(), r.owner, record.LogPayload{EntrySyncID: entrySyncID, Value: value})
	require.NoError(t, err)
	return rec
}

func (r *replica) fullSync(t *testing.T) *Result {
	t.Helper()
	res, err := r.sync.FullSync(context.Background(), r.owner)
	require.NoError(t, err)
	return res
}

func (r *replica) get(t *testing.T, kind record.Kind, syncID string) *record.Record {
	t.Helper()
	rec, err := r.records.Get(context.Background(), r.owner, kind, syncID)
	require.NoError(t, err)
	return rec
}

func (r *replica) watermark(t *testing.T, kind record.Kind, dir Direction) *time.Time {
	t.Helper()
	ts, err := r.store.Metadata().Get(context.Background(), WatermarkKey(r.owner, kind, dir))
	require.NoError(t, err)
	return ts
}

func entryName(t *testing.T, rec *record.Record) string {
	t.Helper()
	p, err := record.DecodePayload(record.KindEntry, rec.Payload)
	require.NoError(t, err)
	return p.(record.EntryPayload).Name
}

func remoteQueryAll() remote.Query {
	return remote.Query{}
}

// interleavingRepo однократно выполняет hook сразу после чтения записи,
// чтобы правка из другого процесса попала между чтением и записью.
type interleavingRepo struct {
	record.Repository

	mu   gosync.Mutex
	hook func()
}

func (r *interleavingRepo) setHook(hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = hook
}

func (r *interleavingRepo) FindBySyncID(ctx context.Context, owner, syncID string) (*record.Record, error) {
	rec, err := r.Repository.FindBySyncID(ctx, owner, syncID)

	r.mu.Lock()
	hook := r.hook
	r.hook = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return rec, err
}

// fakeLocker - межпроцессная блокировка, которую тест может занять
// "из другого процесса".
type fakeLocker struct {
	mu   gosync.Mutex
	held map[string]bool
	err  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(owner string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[owner] {
		return nil, false, nil
	}
	l.held[owner] = true
	return func() { l.set(owner, false) }, true, nil
}

func (l *fakeLocker) set(owner string, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[owner] = held
}

func (l *fakeLocker) isHeld(owner string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[owner]
}

func (l *fakeLocker) failWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}
