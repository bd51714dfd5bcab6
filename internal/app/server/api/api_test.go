package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/session"
	"replikeep/internal/domain/settings"
	"replikeep/internal/infrastructure/storage/memory"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type testServer struct {
	mux    *chi.Mux
	repo   *memory.RemoteRepository
	tokens *session.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens, err := session.NewService("test-secret", time.Hour, slog.Default())
	require.NoError(t, err)
	repo := memory.NewRemoteRepository()
	cfg := remote.DefaultServiceConfig()
	cfg.BatchSize = 2
	return &testServer{
		mux:    New(repo, tokens, slog.Default(), cfg),
		repo:   repo,
		tokens: tokens,
	}
}

func (s *testServer) token(t *testing.T, owner string) string {
	t.Helper()
	token, err := s.tokens.Create(context.Background(), owner, "test")
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func remoteRecord(syncID string, updated time.Time) record.Remote {
	return record.Remote{
		SyncID:    syncID,
		Kind:      record.KindEntry,
		Payload:   json.RawMessage(`{"name":"` + syncID + `"}`),
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sync/entry/query", "", remote.QueryRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/sync/entry/query", "garbage", remote.QueryRequest{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_Whoami(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/auth/whoami", s.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"owner":"alice"`)
}

func TestAPI_UpsertAndQueryPages(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "alice")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var recs []record.Remote
	for i := 0; i < 3; i++ {
		recs = append(recs, remoteRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	rec := s.do(t, http.MethodPut, "/api/v1/sync/entry/records", token, remote.UpsertRequest{Records: recs})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var up remote.UpsertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Equal(t, 3, up.Applied)
	assert.Equal(t, 3, s.repo.Count("alice", record.KindEntry))

	// Повторная запись той же версии не создаёт дубликатов.
	rec = s.do(t, http.MethodPut, "/api/v1/sync/entry/records", token, remote.UpsertRequest{Records: recs[:1]})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, s.repo.Count("alice", record.KindEntry))

	rec = s.do(t, http.MethodPost, "/api/v1/sync/entry/query", token, remote.QueryRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page remote.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Records, 2)
	require.True(t, page.HasMore)
	require.NotNil(t, page.Next)
	assert.Equal(t, "alice", page.Records[0].Owner)

	rec = s.do(t, http.MethodPost, "/api/v1/sync/entry/query", token, remote.QueryRequest{After: page.Next})
	require.Equal(t, http.StatusOK, rec.Code)
	page = remote.QueryResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "r2", page.Records[0].SyncID)
	assert.False(t, page.HasMore)

	// Чужой владелец не видит записей.
	rec = s.do(t, http.MethodPost, "/api/v1/sync/entry/query", s.token(t, "bob"), remote.QueryRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	page = remote.QueryResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Records)
}

func TestAPI_UnknownKind(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/sync/photos/query", s.token(t, "alice"), remote.QueryRequest{})
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Less(t, rec.Code, 500)
}

func TestAPI_Settings(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/v1/sync/settings", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doc := settings.Document{
		Fields:    json.RawMessage(`{"theme":"dark","voice_enabled":true}`),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	rec = s.do(t, http.MethodPut, "/api/v1/sync/settings", token, doc)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/sync/settings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got settings.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "alice", got.Owner)
	assert.JSONEq(t, string(doc.Fields), string(got.Fields))
}
