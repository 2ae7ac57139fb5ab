package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/config"
	"schoolRecords/logger"
	"schoolRecords/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := OpenDB(&config.DatabaseConfig{
		Driver: DriverSQLite,
		URI:    filepath.Join(t.TempDir(), "school.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	return NewStore(db, logger.New(io.Discard, logger.DEBUG))
}

func int64p(v int64) *int64 { return &v }

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, Migrate(context.Background(), store.DB()))
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDB(&config.DatabaseConfig{Driver: "oracle", URI: "x"})
	assert.Error(t, err)
}

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	assert.Equal(t, "school.db?_foreign_keys=on", sqliteDSN("school.db"))
	assert.Equal(t, "file:school.db?cache=shared&_foreign_keys=on", sqliteDSN("file:school.db?cache=shared"))
	assert.Equal(t, "school.db?_fk=0", sqliteDSN("school.db?_fk=0"))
}

func TestForeignKeysSurviveConnectionRecycling(t *testing.T) {
	store := newTestStore(t)
	db := store.DB()
	db.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var on int
		require.NoError(t, db.Get(&on, `PRAGMA foreign_keys`))
		assert.Equal(t, 1, on)
	}

	_, err := db.Exec(`INSERT INTO group_teachers (group_id, teacher_id) VALUES (999, 999)`)
	assert.Error(t, err)
}

func TestCreateThenGetByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		in := Grade{Name: "Transición", Level: 0, Description: "preescolar"}
		created, err := uow.Grades.Create(ctx, &in)
		require.NoError(t, err)
		require.NotZero(t, created.ID)

		got, err := uow.Grades.GetByID(ctx, created.ID)
		require.NoError(t, err)
		in.ID = created.ID
		assert.Equal(t, in, *got)
		return nil
	})
	require.NoError(t, err)
}

func TestGetByIDMissingIsNil(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		got, err := uow.Categories.GetByID(ctx, 404)
		assert.NoError(t, err)
		assert.Nil(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteTwice(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		c, err := uow.Categories.Create(ctx, &Category{Name: "Convivencia"})
		require.NoError(t, err)

		deleted, err := uow.Categories.Delete(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		got, err := uow.Categories.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		deleted, err = uow.Categories.Delete(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
		return nil
	})
	require.NoError(t, err)
}

func TestGetAllKeepsInsertionOrder(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		for _, name := range []string{"Lenguaje", "Matemáticas", "Artes"} {
			_, err := uow.Categories.Create(ctx, &Category{Name: name})
			require.NoError(t, err)
		}
		all, err := uow.Categories.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Lenguaje", all[0].Name)
		assert.Equal(t, "Artes", all[2].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		g, err := uow.Grades.Create(ctx, &Grade{Name: "Primero", Level: 1})
		require.NoError(t, err)

		updated, err := uow.Grades.Update(ctx, g.ID, Patch{"description": "primaria"})
		require.NoError(t, err)
		assert.Equal(t, "primaria", updated.Description)
		assert.Equal(t, "Primero", updated.Name)

		missing, err := uow.Grades.Update(ctx, g.ID+100, Patch{"description": "x"})
		assert.NoError(t, err)
		assert.Nil(t, missing)

		_, err = uow.Grades.Update(ctx, g.ID, Patch{"colour": "blue"})
		assert.True(t, shared.IsValidation(err))

		_, err = uow.Grades.Update(ctx, g.ID, Patch{"id": 9})
		assert.True(t, shared.IsValidation(err))
		return nil
	})
	require.NoError(t, err)
}

func TestFilterRejectsUnknownField(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		_, err := uow.Groups.Filter(ctx, Criteria{"nickname": "A"})
		assert.True(t, shared.IsValidation(err))

		_, err = uow.Groups.Count(ctx, Criteria{"nickname": "A"})
		assert.True(t, shared.IsValidation(err))
		return nil
	})
	require.NoError(t, err)
}

func TestFilterNullCriterion(t *testing.T) {
	store := newTestStore(t)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		cat, err := uow.Categories.Create(ctx, &Category{Name: "Ciencias"})
		require.NoError(t, err)
		_, err = uow.Achievements.Create(ctx, &Achievement{Title: "Clasifica animales", Status: AchievementActive, CategoryID: &cat.ID, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)
		_, err = uow.Achievements.Create(ctx, &Achievement{Title: "Sin categoría", Status: AchievementDraft, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)

		orphans, err := uow.Achievements.Filter(ctx, Criteria{"category_id": nil})
		require.NoError(t, err)
		require.Len(t, orphans, 1)
		assert.Equal(t, "Sin categoría", orphans[0].Title)

		active, err := uow.Achievements.ByStatus(ctx, AchievementActive)
		require.NoError(t, err)
		assert.Len(t, active, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		_, err := uow.Categories.Create(ctx, &Category{Name: "Temporal"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		n, err := uow.Categories.Count(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestUnitOfWorkRollsBackOnPanic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
			_, err := uow.Categories.Create(ctx, &Category{Name: "Temporal"})
			require.NoError(t, err)
			panic("unexpected")
		})
	})

	err := store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		got, err := uow.Categories.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
	require.NoError(t, err)
}

func TestUnitOfWorkCommits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var id int64
	err := store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		c, err := uow.Categories.Create(ctx, &Category{Name: "Ética"})
		id = c.ID
		return err
	})
	require.NoError(t, err)

	err = store.Do(ctx, func(ctx context.Context, uow *UnitOfWork) error {
		got, err := uow.Categories.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Ética", got.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestNestedUnitOfWorkIsRejected(t *testing.T) {
	store := newTestStore(t)

	var nested error
	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		nested = store.Do(ctx, func(context.Context, *UnitOfWork) error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, shared.ErrNestedUnitOfWork)
}

func TestExplicitBeginCommitRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	uow, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Grades.Create(ctx, &Grade{Name: "Segundo", Level: 2})
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())
	assert.NoError(t, uow.Rollback())
	assert.Error(t, uow.Commit())

	uow, err = store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	n, err := uow.Grades.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCurrentPeriodIsUnique(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		_, err := uow.Periods.Create(ctx, &AcademicPeriod{Name: "Periodo 1", StartDate: start, EndDate: start.AddDate(0, 3, 0), IsCurrent: true})
		require.NoError(t, err)

		_, err = uow.Periods.Create(ctx, &AcademicPeriod{Name: "Periodo 2", StartDate: start.AddDate(0, 3, 0), EndDate: start.AddDate(0, 6, 0), IsCurrent: true})
		assert.True(t, shared.IsStorage(err))
		return nil
	})
	require.NoError(t, err)
}

func TestPeriodContainingAndCurrent(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	err := store.Do(context.Background(), func(ctx context.Context, uow *UnitOfWork) error {
		p1, err := uow.Periods.Create(ctx, &AcademicPeriod{Name: "Periodo 1", StartDate: start, EndDate: start.AddDate(0, 3, 0), IsCurrent: true})
		require.NoError(t, err)
		p2, err := uow.Periods.Create(ctx, &AcademicPeriod{Name: "Periodo 2", StartDate: start.AddDate(0, 3, 1), EndDate: start.AddDate(0, 6, 0)})
		require.NoError(t, err)

		in, err := uow.Periods.Containing(ctx, start.AddDate(0, 4, 0))
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, p2.ID, in[0].ID)

		require.NoError(t, uow.Periods.ClearCurrent(ctx))
		_, err = uow.Periods.Update(ctx, p2.ID, Patch{"is_current": true})
		require.NoError(t, err)

		current, err := uow.Periods.Current(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, p2.ID, current.ID)
		assert.NotEqual(t, p1.ID, current.ID)
		return nil
	})
	require.NoError(t, err)
}
