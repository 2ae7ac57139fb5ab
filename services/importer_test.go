package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/database"
	"schoolRecords/shared"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const studentsCSV = "Document_type,Document_number,Last_name,First_name,Email\n" +
	"TI,1001,Pérez,Ana,ana@colegio.edu\n" +
	"TI,1002,Gómez,Luis,luis@colegio.edu\n"

func TestImportStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := f.group(t, "Jardín B", 5)

	report, err := f.svc.ImportStudents(ctx, writeCSV(t, studentsCSV), group.ID)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Created: 2}, *report)

	view, err := f.svc.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.NumStudents)

	report, err = f.svc.ImportStudents(ctx, writeCSV(t, studentsCSV), group.ID)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Updated: 2}, *report)
}

func TestImportStudentsOverCapacityRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := f.group(t, "Jardín C", 1)

	_, err := f.svc.ImportStudents(ctx, writeCSV(t, studentsCSV), group.ID)
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, shared.UserMessage(err), "line 3: group Jardín C is full")

	students, err := f.svc.ListByKind(ctx, string(database.KindStudent))
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestImportRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := f.group(t, "Jardín D", 5)

	_, err := f.svc.ImportStudents(ctx, writeCSV(t, "Nombre,Correo\nAna,ana@colegio.edu\n"), group.ID)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, shared.UserMessage(err), "wrong students file structure")

	_, err = f.svc.ImportStudents(ctx, writeCSV(t, "Document_type,Document_number,Last_name,First_name,Email\n"), group.ID)
	assert.Equal(t, "the file only contains headers, add data rows", shared.UserMessage(err))

	_, err = f.svc.ImportStudents(ctx, writeCSV(t, ""), group.ID)
	assert.Equal(t, "the file is empty, send a file with data", shared.UserMessage(err))

	_, err = f.svc.ImportStudents(ctx, writeCSV(t, "Document_type,Document_number,Last_name,First_name,Email\nTI,1,Pérez,Ana,not-an-email\n"), group.ID)
	assert.Equal(t, "line 2: email must be a valid email address", shared.UserMessage(err))

	_, err = f.svc.ImportStudents(ctx, filepath.Join(t.TempDir(), "missing.csv"), group.ID)
	assert.True(t, shared.IsValidation(err))
}

func TestImportStudentsRejectsOtherKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := f.group(t, "Jardín E", 5)
	f.user(t, database.KindTeacher, "Ana", "Pérez", "ana@colegio.edu")

	_, err := f.svc.ImportStudents(ctx, writeCSV(t, studentsCSV), group.ID)
	assert.Contains(t, shared.UserMessage(err), "already registered as a teacher")
}

func TestImportTeachers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	csv := "\ufeffdocument_type,document_number,last_name,first_name,email,specialty\n" +
		"CC,52000111,Ruiz,Inés,ines@colegio.edu,Lenguaje\n"
	report, err := f.svc.ImportTeachers(ctx, writeCSV(t, csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	csv = "Document_type,Document_number,Last_name,First_name,Email,Specialty\n" +
		"CC,52000111,Ruiz,Inés,ines@colegio.edu,Matemáticas\n"
	report, err = f.svc.ImportTeachers(ctx, writeCSV(t, csv))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	teachers, err := f.svc.ListByKind(ctx, "teacher")
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	require.NotNil(t, teachers[0].Profile.Teacher)
	assert.Equal(t, "Matemáticas", teachers[0].Profile.Teacher.Specialty)
}

func TestValidateCSVStructure(t *testing.T) {
	assert.NoError(t, ValidateCSVStructure(writeCSV(t, studentsCSV), FileTypeStudents))
	assert.Error(t, ValidateCSVStructure(writeCSV(t, studentsCSV), FileTypeTeachers))
}
