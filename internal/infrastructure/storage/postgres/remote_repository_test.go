package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
	"replikeep/internal/infrastructure/migration"
	"replikeep/internal/utils/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepository подключается к базе из REPLIKEEP_TEST_DATABASE_URI.
func newTestRepository(t *testing.T) *RemoteRepository {
	t.Helper()
	dsn := os.Getenv("REPLIKEEP_TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("REPLIKEEP_TEST_DATABASE_URI is not set")
	}

	require.NoError(t, migration.NewMigration("../../../../migrations", dsn, nil).Up())

	storage, err := New(context.Background(), dsn, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return storage.Remote()
}

func testRemote(syncID string, updated time.Time) record.Remote {
	return record.Remote{
		SyncID:    syncID,
		Kind:      record.KindEntry,
		Payload:   json.RawMessage(`{"name":"` + syncID + `"}`),
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestRemoteRepository_Upsert(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	applied, err := repo.UpsertRecord(ctx, owner, testRemote("a", now))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.UpsertRecord(ctx, owner, testRemote("a", now.Add(-time.Second)))
	require.NoError(t, err)
	assert.False(t, applied)

	deleted := now.Add(time.Second)
	tomb := testRemote("a", deleted)
	tomb.DeletedAt = &deleted
	applied, err = repo.UpsertRecord(ctx, owner, tomb)
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := repo.QueryRecords(ctx, owner, record.KindEntry, remote.Query{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].DeletedAt)
	assert.True(t, deleted.Equal(*got[0].DeletedAt))
	assert.Equal(t, owner, got[0].Owner)
}

func TestRemoteRepository_QueryPages(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i, id := range []string{"a", "b", "c", "d"} {
		_, err := repo.UpsertRecord(ctx, owner, testRemote(id, base.Add(time.Duration(i)*time.Millisecond)))
		require.NoError(t, err)
	}

	first, err := repo.QueryRecords(ctx, owner, record.KindEntry, remote.Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	after := &remote.Cursor{UpdatedAt: first[1].UpdatedAt, SyncID: first[1].SyncID}
	rest, err := repo.QueryRecords(ctx, owner, record.KindEntry, remote.Query{After: after, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "c", rest[0].SyncID)

	since := base.Add(3 * time.Millisecond)
	tail, err := repo.QueryRecords(ctx, owner, record.KindEntry, remote.Query{Since: &since})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "d", tail[0].SyncID)
}

func TestRemoteRepository_Settings(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	owner := uuid.NewString()

	_, err := repo.GetSettings(ctx, owner)
	assert.ErrorIs(t, err, settings.ErrNotFound)

	at := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.PutSettings(ctx, settings.Document{
		Owner:     owner,
		Fields:    json.RawMessage(`{"theme":"dark"}`),
		UpdatedAt: at,
	}))

	doc, err := repo.GetSettings(ctx, owner)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(doc.Fields))
	assert.True(t, at.Equal(doc.UpdatedAt))
}
