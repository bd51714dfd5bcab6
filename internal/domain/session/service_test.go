package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	svc, err := NewService(secret, time.Hour, slog.Default())
	require.NoError(t, err)
	return svc
}

func TestService_CreateAndValidate(t *testing.T) {
	svc := newTestService(t, "test-secret")

	token, err := svc.Create(context.Background(), "alice", "laptop")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	owner, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}

func TestService_Create_RequiresOwner(t *testing.T) {
	svc := newTestService(t, "test-secret")

	_, err := svc.Create(context.Background(), "", "laptop")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestNewService_EmptySecret(t *testing.T) {
	_, err := NewService("", time.Hour, slog.Default())
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestService_Validate_Invalid(t *testing.T) {
	svc := newTestService(t, "test-secret")
	other := newTestService(t, "other-secret")

	foreign, err := other.Create(context.Background(), "alice", "")
	require.NoError(t, err)

	noOwner, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "garbage", token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "wrong secret", token: foreign, wantErr: ErrInvalidToken},
		{name: "no subject", token: noOwner, wantErr: ErrMissingOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Validate_Expired(t *testing.T) {
	svc := newTestService(t, "test-secret")
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, err := svc.Create(context.Background(), "alice", "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOwnerFromToken(t *testing.T) {
	svc := newTestService(t, "test-secret")
	token, err := svc.Create(context.Background(), "bob", "phone")
	require.NoError(t, err)

	owner, err := OwnerFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	_, err = OwnerFromToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
