package users

import (
	"context"
	"os"
	"testing"

	"costumier/internal/models"
	"costumier/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, configAdmins []int64) (*Service, *store.Store) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	s, err := store.New(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(s, configAdmins, &logger), s
}

func TestSaveUserMarksConfigAdmins(t *testing.T) {
	svc, s := setup(t, []int64{42})
	ctx := context.Background()

	require.NoError(t, svc.SaveUser(ctx, &models.User{TgID: 42, Username: "boss"}))
	require.NoError(t, svc.SaveUser(ctx, &models.User{TgID: 100, Username: "client"}))

	boss, err := s.GetUserByTgID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, boss.IsAdmin)

	client, err := s.GetUserByTgID(ctx, 100)
	require.NoError(t, err)
	assert.False(t, client.IsAdmin)
}

func TestIsAdmin(t *testing.T) {
	svc, s := setup(t, []int64{42})
	ctx := context.Background()

	// Config admin without a stored user.
	assert.True(t, svc.IsAdmin(ctx, 42))

	// Stored user with the flag.
	require.NoError(t, s.UpsertUser(ctx, &models.User{TgID: 77, IsAdmin: true}))
	assert.True(t, svc.IsAdmin(ctx, 77))

	// Plain user and unknown id.
	require.NoError(t, s.UpsertUser(ctx, &models.User{TgID: 100}))
	assert.False(t, svc.IsAdmin(ctx, 100))
	assert.False(t, svc.IsAdmin(ctx, 999))
}
