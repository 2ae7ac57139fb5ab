package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"schoolRecords/auth"
	"schoolRecords/config"
	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/reports"
)

type sentEmail struct {
	recipients []string
	subject    string
	body       string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, recipients []string, subject, body string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{recipients: recipients, subject: subject, body: body})
	return !n.fail
}

type fixture struct {
	svc      *Service
	store    *database.Store
	notifier *recordingNotifier
	outDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := database.OpenDB(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		URI:    filepath.Join(dir, "school.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	log := logger.New(io.Discard, logger.DEBUG)
	store := database.NewStore(db, log)
	notifier := &recordingNotifier{}
	outDir := filepath.Join(dir, "reports")

	svc := New(store, auth.NewHasher(4), reports.NewWriter(outDir, log), notifier, log)
	require.NoError(t, svc.Seed(ctx, "", ""))

	return &fixture{svc: svc, store: store, notifier: notifier, outDir: outDir}
}

func (f *fixture) user(t *testing.T, kind database.Kind, first, last, email string) *database.User {
	t.Helper()
	u, err := f.svc.RegisterUser(context.Background(), RegisterUserInput{
		Kind:      string(kind),
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  "secret123",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) grade(t *testing.T, name string) *database.Grade {
	t.Helper()
	g, err := f.svc.CreateGrade(context.Background(), CreateGradeInput{Name: name})
	require.NoError(t, err)
	return g
}

func (f *fixture) group(t *testing.T, name string, max int) *database.Group {
	t.Helper()
	teacher := f.user(t, database.KindTeacher, "Docente", name, "docente."+reports.Sanitize(name)+"@colegio.edu")
	director := f.user(t, database.KindDirector, "Rectora", name, "rectora."+reports.Sanitize(name)+"@colegio.edu")
	grade := f.grade(t, "Grado "+name)

	g, err := f.svc.CreateGroup(context.Background(), CreateGroupInput{
		Name: name, MaxCapacity: max, DirectorID: teacher.ID, CreatorID: director.ID, GradeID: grade.ID,
	})
	require.NoError(t, err)
	return g
}
