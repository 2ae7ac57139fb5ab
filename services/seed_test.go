package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/shared"
)

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Seed(ctx, "admin@colegio.edu", "admin123"))
	require.NoError(t, f.svc.Seed(ctx, "admin@colegio.edu", "admin123"))

	admins, err := f.svc.ListByKind(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "Administrador General", admins[0].FullName())

	err = f.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		roles, err := uow.Roles.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, roles, len(auth.Roles))

		admin, err := uow.Roles.GetByName(ctx, string(auth.RoleAdmin))
		require.NoError(t, err)
		perms, err := uow.Roles.Permissions(ctx, admin.ID)
		require.NoError(t, err)
		assert.Len(t, perms, len(auth.DefaultPermissions[auth.RoleAdmin]))
		return nil
	})
	require.NoError(t, err)
}

func TestSeededAdminCanLogIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Seed(ctx, "admin@colegio.edu", "admin123"))

	authSvc, err := auth.NewService(f.store, auth.NewMemoryStore(auth.Policy{}), auth.NewHasher(4),
		auth.NewTokenIssuer("test-secret", time.Hour), logger.New(io.Discard, logger.DEBUG))
	require.NoError(t, err)

	session, err := authSvc.Authenticate(ctx, "admin@colegio.edu", "admin123")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, session.Role)
	assert.NotEmpty(t, session.Token)

	session, err = authSvc.Authenticate(ctx, "Ana@colegio.edu", "whatever")
	assert.Nil(t, session)
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSeedRejectsWeakAdminPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, password := range []string{"", "12345"} {
		err := f.svc.Seed(ctx, "root@colegio.edu", password)
		assert.True(t, shared.IsValidation(err), "password %q", password)
	}

	admins, err := f.svc.ListByKind(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, admins)

	authSvc, err := auth.NewService(f.store, auth.NewMemoryStore(auth.Policy{}), auth.NewHasher(4),
		auth.NewTokenIssuer("test-secret", time.Hour), logger.New(io.Discard, logger.DEBUG))
	require.NoError(t, err)
	_, err = authSvc.Authenticate(ctx, "root@colegio.edu", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestPresent(t *testing.T) {
	ok := Present(42, nil, "done")
	assert.Equal(t, Result{Success: true, Message: "done", Payload: 42}, ok)

	bad := Present(nil, shared.Invalid("group", "CreateGroup", "name is required"), "done")
	assert.False(t, bad.Success)
	assert.Equal(t, "name is required", bad.Message)

	broken := Present(nil, shared.Storage("groups.Create", errors.New("disk I/O error")), "done")
	assert.False(t, broken.Success)
	assert.NotContains(t, broken.Message, "disk")
}
