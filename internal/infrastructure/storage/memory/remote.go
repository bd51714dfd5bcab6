package memory

import (
	"context"
	"encoding/json"
	"sort"
	gosync "sync"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
)

type remoteKey struct {
	owner  string
	kind   record.Kind
	syncID string
}

// RemoteRepository - in-memory реализация remote.Repository.
type RemoteRepository struct {
	mu       gosync.RWMutex
	records  map[remoteKey]record.Remote
	settings map[string]settings.Document
}

func NewRemoteRepository() *RemoteRepository {
	return &RemoteRepository{
		records:  make(map[remoteKey]record.Remote),
		settings: make(map[string]settings.Document),
	}
}

func (m *RemoteRepository) UpsertRecord(_ context.Context, owner string, rec record.Remote) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := remoteKey{owner: owner, kind: rec.Kind, syncID: rec.SyncID}
	if existing, ok := m.records[key]; ok && existing.UpdatedAt.After(rec.UpdatedAt) {
		return false, nil
	}
	rec.Owner = owner
	m.records[key] = cloneRemote(rec)
	return true, nil
}

func (m *RemoteRepository) QueryRecords(
	_ context.Context,
	owner string,
	kind record.Kind,
	q remote.Query,
) ([]record.Remote, error) {
	m.mu.RLock()
	out := make([]record.Remote, 0)
	for key, rec := range m.records {
		if key.owner == owner && key.kind == kind && q.Matches(rec) {
			out = append(out, cloneRemote(rec))
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].SyncID < out[j].SyncID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *RemoteRepository) GetSettings(_ context.Context, owner string) (*settings.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.settings[owner]
	if !ok {
		return nil, settings.ErrNotFound
	}
	doc.Fields = append(json.RawMessage(nil), doc.Fields...)
	return &doc, nil
}

func (m *RemoteRepository) PutSettings(_ context.Context, doc settings.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc.Fields = append(json.RawMessage(nil), doc.Fields...)
	m.settings[doc.Owner] = doc
	return nil
}

// Count возвращает число записей владельца данного типа, включая надгробия.
func (m *RemoteRepository) Count(owner string, kind record.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for key := range m.records {
		if key.owner == owner && key.kind == kind {
			n++
		}
	}
	return n
}

func cloneRemote(rec record.Remote) record.Remote {
	rec.Payload = append(json.RawMessage(nil), rec.Payload...)
	if rec.DeletedAt != nil {
		d := *rec.DeletedAt
		rec.DeletedAt = &d
	}
	return rec
}
