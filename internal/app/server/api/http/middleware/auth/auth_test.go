package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type staticValidator map[string]string

func (v staticValidator) Validate(_ context.Context, token string) (string, error) {
	owner, ok := v[token]
	if !ok {
		return "", errors.New("invalid token")
	}
	return owner, nil
}

type ownerOutput struct {
	Body struct {
		Owner string `json:"owner"`
	}
}

func setupAPI(t *testing.T) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	a := New(api, staticValidator{"good": "alice"}, slog.Default())

	huma.Register(api, huma.Operation{
		OperationID: "owner",
		Method:      http.MethodGet,
		Path:        "/owner",
		Middlewares: huma.Middlewares{a.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*ownerOutput, error) {
		owner, ok := GetOwner(ctx)
		if !ok {
			return nil, huma.Error500InternalServerError("owner missing")
		}
		out := &ownerOutput{}
		out.Body.Owner = owner
		return out, nil
	})
	return api
}

func TestAuth_Middleware(t *testing.T) {
	tests := []struct {
		name     string
		header   []any
		wantCode int
		wantBody string
	}{
		{name: "valid token", header: []any{"Authorization: Bearer good"}, wantCode: http.StatusOK, wantBody: `"owner":"alice"`},
		{name: "no header", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", header: []any{"Authorization: Basic good"}, wantCode: http.StatusUnauthorized},
		{name: "unknown token", header: []any{"Authorization: Bearer bad"}, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupAPI(t)

			resp := api.Get("/owner", tt.header...)

			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestGetOwner(t *testing.T) {
	_, ok := GetOwner(context.Background())
	assert.False(t, ok)

	_, ok = GetOwner(WithOwner(context.Background(), ""))
	assert.False(t, ok)

	owner, ok := GetOwner(WithOwner(context.Background(), "bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", owner)
}
