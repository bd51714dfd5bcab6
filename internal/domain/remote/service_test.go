package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"replikeep/internal/app/server/api/http/middleware/auth"
	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository мок для remote.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertRecord(ctx context.Context, owner string, rec record.Remote) (bool, error) {
	args := m.Called(ctx, owner, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) QueryRecords(ctx context.Context, owner string, kind record.Kind, q Query) ([]record.Remote, error) {
	args := m.Called(ctx, owner, kind, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]record.Remote), args.Error(1)
}

func (m *MockRepository) GetSettings(ctx context.Context, owner string) (*settings.Document, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Document), args.Error(1)
}

func (m *MockRepository) PutSettings(ctx context.Context, doc settings.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, cfg *ServiceConfig) *Service {
	s := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	s.now = func() time.Time { return testNow }
	return s
}

func ownerCtx(owner string) context.Context {
	return auth.WithOwner(context.Background(), owner)
}

func validRemote(syncID string) record.Remote {
	return record.Remote{
		SyncID:    syncID,
		Payload:   json.RawMessage(`{"name":"x"}`),
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestService_Upsert(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	ctx := ownerCtx("alice")

	repo.On("UpsertRecord", ctx, "alice", mock.MatchedBy(func(r record.Remote) bool {
		return r.SyncID == "fresh" && r.Owner == "alice" && r.Kind == record.KindEntry
	})).Return(true, nil).Once()
	repo.On("UpsertRecord", ctx, "alice", mock.MatchedBy(func(r record.Remote) bool {
		return r.SyncID == "stale"
	})).Return(false, nil).Once()
	repo.On("UpsertRecord", ctx, "alice", mock.MatchedBy(func(r record.Remote) bool {
		return r.SyncID == "broken"
	})).Return(false, errors.New("disk full")).Once()

	foreign := validRemote("foreign")
	foreign.Owner = "bob"
	noPayload := validRemote("empty")
	noPayload.Payload = nil

	resp, err := svc.Upsert(ctx, record.KindEntry, UpsertRequest{Records: []record.Remote{
		validRemote("fresh"),
		validRemote("stale"),
		validRemote("broken"),
		foreign,
		noPayload,
		{SyncID: ""},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	assert.Equal(t, 1, resp.Stale)
	assert.Equal(t, 4, resp.Failed)
	require.Len(t, resp.Errors, 4)
	assert.Equal(t, "broken", resp.Errors[0].SyncID)
	assert.Equal(t, "failed to store record", resp.Errors[0].Error)
	assert.Equal(t, 3, resp.Errors[1].Index)
	repo.AssertExpectations(t)
}

func TestService_UpsertRejects(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, &ServiceConfig{BatchSize: 1, MaxBatchSize: 1, MaxQueryRecords: 1})

	_, err := svc.Upsert(context.Background(), record.KindEntry, UpsertRequest{})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Upsert(ownerCtx("alice"), record.Kind("photo"), UpsertRequest{})
	assert.ErrorIs(t, err, record.ErrUnknownKind)

	_, err = svc.Upsert(ownerCtx("alice"), record.KindEntry, UpsertRequest{
		Records: []record.Remote{validRemote("a"), validRemote("b")},
	})
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	repo.AssertNotCalled(t, "UpsertRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_QueryPaging(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, &ServiceConfig{BatchSize: 2, MaxBatchSize: 10, MaxQueryRecords: 3})
	ctx := ownerCtx("alice")

	recs := []record.Remote{validRemote("a"), validRemote("b"), validRemote("c")}

	// Лимит по умолчанию 2, запрашивается на одну запись больше.
	repo.On("QueryRecords", ctx, "alice", record.KindEntry, mock.MatchedBy(func(q Query) bool {
		return q.Limit == 3 && q.After == nil
	})).Return(recs, nil).Once()

	resp, err := svc.Query(ctx, record.KindEntry, QueryRequest{})
	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Records, 2)
	require.NotNil(t, resp.Next)
	assert.Equal(t, "b", resp.Next.SyncID)
	assert.Equal(t, testNow, resp.ServerTime)

	// Запрошенный лимит ограничивается MaxQueryRecords.
	repo.On("QueryRecords", ctx, "alice", record.KindEntry, mock.MatchedBy(func(q Query) bool {
		return q.Limit == 4 && q.After != nil && q.After.SyncID == "b"
	})).Return([]record.Remote{validRemote("c")}, nil).Once()

	resp, err = svc.Query(ctx, record.KindEntry, QueryRequest{Limit: 100, After: resp.Next})
	require.NoError(t, err)
	assert.False(t, resp.HasMore)
	assert.Nil(t, resp.Next)
	assert.Len(t, resp.Records, 1)
	repo.AssertExpectations(t)
}

func TestService_QueryEmptyIsNotNil(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	ctx := ownerCtx("alice")

	repo.On("QueryRecords", ctx, "alice", record.KindLog, mock.Anything).Return(nil, nil)

	resp, err := svc.Query(ctx, record.KindLog, QueryRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Records)
	assert.Empty(t, resp.Records)
}

func TestService_Settings(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo, nil)
	ctx := ownerCtx("alice")

	repo.On("GetSettings", ctx, "alice").Return(nil, settings.ErrNotFound).Once()
	_, err := svc.GetSettings(ctx)
	assert.ErrorIs(t, err, settings.ErrNotFound)

	repo.On("PutSettings", ctx, mock.MatchedBy(func(d settings.Document) bool {
		return d.Owner == "alice" && d.UpdatedAt.Equal(testNow)
	})).Return(nil).Once()
	require.NoError(t, svc.PutSettings(ctx, settings.Document{Fields: json.RawMessage(`{}`)}))

	err = svc.PutSettings(ctx, settings.Document{Owner: "bob", Fields: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	err = svc.PutSettings(ctx, settings.Document{Fields: json.RawMessage(`{not json`)})
	assert.ErrorIs(t, err, ErrInvalidSettings)

	err = svc.PutSettings(context.Background(), settings.Document{Fields: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	repo.AssertExpectations(t)
}
