package memory

import (
	"context"
	"sort"
	gosync "sync"
	"time"

	"replikeep/internal/domain/record"
)

// RecordRepository - in-memory хранилище записей одного типа.
type RecordRepository struct {
	mu      gosync.RWMutex
	spec    record.Spec
	nextID  int64
	records map[int64]*record.Record
}

// NewRecordRepository создаёт пустое хранилище для типа.
func NewRecordRepository(spec record.Spec) *RecordRepository {
	return &RecordRepository{
		spec:    spec,
		records: make(map[int64]*record.Record),
	}
}

func (m *RecordRepository) Spec() record.Spec {
	return m.spec
}

func (m *RecordRepository) Insert(_ context.Context, rec *record.Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.Owner == rec.Owner && r.SyncID == rec.SyncID {
			return 0, record.ErrDuplicate
		}
	}

	m.nextID++
	stored := rec.Clone()
	stored.LocalID = m.nextID
	stored.Kind = m.spec.Kind
	m.records[stored.LocalID] = stored
	return stored.LocalID, nil
}

func (m *RecordRepository) UpdateByLocalID(_ context.Context, rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[rec.LocalID]
	if !ok {
		return record.ErrNotFound
	}
	stored := rec.Clone()
	stored.Owner = existing.Owner
	stored.SyncID = existing.SyncID
	stored.Kind = m.spec.Kind
	m.records[rec.LocalID] = stored
	return nil
}

func (m *RecordRepository) ReplaceIfUnchanged(_ context.Context, rec *record.Record, seenUpdatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[rec.LocalID]
	if !ok || !existing.UpdatedAt.Equal(seenUpdatedAt) {
		return false, nil
	}
	stored := rec.Clone()
	stored.Owner = existing.Owner
	stored.SyncID = existing.SyncID
	stored.Kind = m.spec.Kind
	m.records[rec.LocalID] = stored
	return true, nil
}

func (m *RecordRepository) FindBySyncID(_ context.Context, owner, syncID string) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		if r.Owner == owner && r.SyncID == syncID {
			return r.Clone(), nil
		}
	}
	return nil, record.ErrNotFound
}

func (m *RecordRepository) ListModifiedSince(_ context.Context, owner string, q record.Query) ([]*record.Record, error) {
	return m.list(owner, q.Matches), nil
}

func (m *RecordRepository) ListActive(_ context.Context, owner string) ([]*record.Record, error) {
	return m.list(owner, func(r *record.Record) bool { return !r.IsDeleted() }), nil
}

func (m *RecordRepository) ListAll(_ context.Context, owner string) ([]*record.Record, error) {
	return m.list(owner, func(*record.Record) bool { return true }), nil
}

func (m *RecordRepository) MarkStatus(
	_ context.Context,
	localID int64,
	seenUpdatedAt time.Time,
	status record.SyncStatus,
	pushedAt *time.Time,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[localID]
	if !ok || !r.UpdatedAt.Equal(seenUpdatedAt) {
		return false, nil
	}
	r.SyncStatus = status
	if pushedAt != nil {
		p := *pushedAt
		r.PushedAt = &p
	}
	return true, nil
}

func (m *RecordRepository) CountUnsynced(_ context.Context, owner string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.records {
		if r.Owner == owner && r.SyncStatus != record.StatusSynced {
			n++
		}
	}
	return n, nil
}

func (m *RecordRepository) list(owner string, keep func(*record.Record) bool) []*record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*record.Record, 0, len(m.records))
	for _, r := range m.records {
		if r.Owner == owner && keep(r) {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].LocalID < out[j].LocalID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}
