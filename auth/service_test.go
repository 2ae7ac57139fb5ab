package auth

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/config"
	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/shared"
)

type fixture struct {
	service *Service
	store   *database.Store
	clock   *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenDB(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		URI:    filepath.Join(t.TempDir(), "auth.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	log := logger.New(io.Discard, logger.DEBUG)
	store := database.NewStore(db, log)
	clock := newFakeClock()
	hasher := NewHasher(4)

	attempts := NewMemoryStore(Policy{MaxFailures: 3, LockDuration: 5 * time.Minute}).WithClock(clock.Now)
	service, err := NewService(store, attempts, hasher, NewTokenIssuer("test-secret", time.Hour), log)
	require.NoError(t, err)
	service.WithClock(clock.Now)

	err = store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		role, err := uow.Roles.Create(ctx, &database.Role{Name: "admin"})
		require.NoError(t, err)

		hash, err := hasher.Hash("admin123")
		require.NoError(t, err)
		_, err = uow.Users.Create(ctx, &database.User{
			Person:       database.Person{FirstName: "Admin", LastName: "Colegio"},
			Kind:         database.KindAdmin,
			Email:        "admin@colegio.edu",
			PasswordHash: hash,
			RoleID:       &role.ID,
			Active:       true,
		})
		require.NoError(t, err)

		hash, err = hasher.Hash("teach123")
		require.NoError(t, err)
		_, err = uow.Users.Create(ctx, &database.User{
			Person:       database.Person{FirstName: "Inés", LastName: "Ruiz"},
			Kind:         database.KindTeacher,
			Email:        "ines@colegio.edu",
			PasswordHash: hash,
			Active:       false,
		})
		return err
	})
	require.NoError(t, err)

	return &fixture{service: service, store: store, clock: clock}
}

func TestAuthenticateSeededAdmin(t *testing.T) {
	f := newFixture(t)

	session, err := f.service.Authenticate(context.Background(), "Admin@Colegio.edu", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, session.Role)
	assert.Equal(t, "admin@colegio.edu", session.User.Email)
	require.NotNil(t, session.User.LastLogin)
	assert.True(t, f.clock.Now().Equal(*session.User.LastLogin))
	assert.NotEmpty(t, session.Token)

	claims, err := f.service.Tokens().Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)

	err = f.store.Do(context.Background(), func(ctx context.Context, uow *database.UnitOfWork) error {
		u, err := uow.Users.GetByEmail(ctx, "admin@colegio.edu")
		require.NoError(t, err)
		require.NotNil(t, u.LastLogin)
		assert.True(t, f.clock.Now().Equal(*u.LastLogin))
		return nil
	})
	require.NoError(t, err)
}

func TestLockedAccountRejectsCorrectPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	_, err := f.service.Authenticate(ctx, "admin@colegio.edu", "admin123")
	assert.ErrorIs(t, err, shared.ErrAccountLocked)
	assert.Contains(t, shared.UserMessage(err), "5m0s")
}

func TestCoolDownThenSuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	}
	f.clock.Advance(5*time.Minute + time.Second)

	_, err := f.service.Authenticate(ctx, "admin@colegio.edu", "admin123")
	require.NoError(t, err)

	st, err := f.service.attempts.Status(ctx, "admin@colegio.edu")
	require.NoError(t, err)
	assert.Zero(t, st.Failures)

	_, err = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	assert.Contains(t, shared.UserMessage(err), "2 attempts left")
}

func TestSuccessResetsPartialCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	_, _ = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	_, err := f.service.Authenticate(ctx, "admin@colegio.edu", "admin123")
	require.NoError(t, err)

	_, _ = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	_, _ = f.service.Authenticate(ctx, "admin@colegio.edu", "wrong")
	_, err = f.service.Authenticate(ctx, "admin@colegio.edu", "admin123")
	assert.NoError(t, err)
}

func TestInvalidCredentialMessagesAreUniform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, unknown := f.service.Authenticate(ctx, "nobody@colegio.edu", "admin123")
	_, wrong := f.service.Authenticate(ctx, "admin@colegio.edu", "admin124")

	assert.ErrorIs(t, unknown, shared.ErrInvalidCredentials)
	assert.ErrorIs(t, wrong, shared.ErrInvalidCredentials)
	assert.Equal(t, shared.UserMessage(unknown), shared.UserMessage(wrong))
	assert.Equal(t, "invalid email or password (2 attempts left)", shared.UserMessage(wrong))
}

func TestThirdFailureAnnouncesLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var err error
	for i := 0; i < 3; i++ {
		_, err = f.service.Authenticate(ctx, "nobody@colegio.edu", "x")
	}
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Equal(t, "invalid email or password; the account is now locked for 5m0s", shared.UserMessage(err))
}

func TestDisabledAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Authenticate(context.Background(), "ines@colegio.edu", "teach123")
	assert.ErrorIs(t, err, shared.ErrAccountDisabled)

	st, _ := f.service.attempts.Status(context.Background(), "ines@colegio.edu")
	assert.Equal(t, 1, st.Failures)
}

func TestUserWithoutRoleIsObserver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		u, err := uow.Users.GetByEmail(ctx, "ines@colegio.edu")
		require.NoError(t, err)
		_, err = uow.Users.Update(ctx, u.ID, database.Patch{"active": true})
		return err
	})
	require.NoError(t, err)

	session, err := f.service.Authenticate(ctx, "ines@colegio.edu", "teach123")
	require.NoError(t, err)
	assert.Equal(t, RoleObserver, session.Role)
}
