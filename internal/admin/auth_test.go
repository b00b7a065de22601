package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthenticateAndParseToken(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewService(store, "test-secret")

	created, err := store.Create(ctx, "alice", "hunter2", true)
	require.NoError(t, err)

	user, token, err := svc.Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, created.ID, claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.True(t, claims.IsAdmin)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewService(store, "test-secret")

	_, err := store.Create(ctx, "alice", "hunter2", false)
	require.NoError(t, err)

	_, _, err = svc.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Authenticate(ctx, "nobody", "hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, "alice", "hunter2", false)
	require.NoError(t, err)

	_, token, err := NewService(store, "secret-a").Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)

	_, err = NewService(store, "secret-b").ParseToken(token)
	require.Error(t, err)
}
