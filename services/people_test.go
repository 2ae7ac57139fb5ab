package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/shared"
)

func TestRegisterStudentGetsEnrollmentCode(t *testing.T) {
	f := newFixture(t)

	student := f.user(t, database.KindStudent, "Ana", "Pérez", "Ana@Colegio.edu")
	assert.Equal(t, "ana@colegio.edu", student.Email)
	require.NotNil(t, student.Profile.Student)
	assert.Regexp(t, `^EST-[0-9A-F]{8}$`, student.Profile.Student.EnrollmentCode)
	assert.NotNil(t, student.Profile.Student.EnrolledOn)
	assert.NotEqual(t, "secret123", student.PasswordHash)
	assert.True(t, auth.NewHasher(4).Matches(student.PasswordHash, "secret123"))
	require.NotNil(t, student.RoleID)
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")

	_, err := f.svc.RegisterUser(ctx, RegisterUserInput{Kind: "guardian", FirstName: "M", LastName: "P", Email: "MARTA@mail.com"})
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, shared.UserMessage(err), "already registered")

	_, err = f.svc.RegisterUser(ctx, RegisterUserInput{Kind: "guardian", FirstName: "M", LastName: "P", Email: "not-an-email"})
	assert.Equal(t, "email must be a valid email address", shared.UserMessage(err))

	_, err = f.svc.RegisterUser(ctx, RegisterUserInput{Kind: "janitor", FirstName: "M", LastName: "P", Email: "j@mail.com"})
	assert.True(t, shared.IsValidation(err))

	_, err = f.svc.RegisterUser(ctx, RegisterUserInput{Kind: "teacher", FirstName: "M", LastName: "P", Email: "t@mail.com", Password: "123"})
	assert.Equal(t, "password must be at least 6", shared.UserMessage(err))

	_, err = f.svc.RegisterUser(ctx, RegisterUserInput{Kind: "teacher", FirstName: "M", LastName: "P", Email: "t@mail.com", RoleName: "janitor"})
	assert.True(t, shared.IsValidation(err))
}

func TestPasswordLengthCountsBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 40 characters, 80 bytes.
	accented := strings.Repeat("ñ", 40)
	_, err := f.svc.RegisterUser(ctx, RegisterUserInput{
		Kind: "teacher", FirstName: "Iñigo", LastName: "Peña", Email: "inigo@colegio.edu", Password: accented,
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.False(t, shared.IsStorage(err))
	assert.Equal(t, "password must be at most 72 bytes", shared.UserMessage(err))

	u := f.user(t, database.KindTeacher, "Iñigo", "Peña", "inigo@colegio.edu")
	err = f.svc.SetPassword(ctx, u.ID, accented)
	assert.True(t, shared.IsValidation(err))

	require.NoError(t, f.svc.SetPassword(ctx, u.ID, "ñandú1"))
}

func TestUpdateContactAndActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")
	f.user(t, database.KindGuardian, "Pedro", "Gil", "pedro@mail.com")

	phone := "3001234567"
	updated, err := f.svc.UpdateContact(ctx, u.ID, ContactInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "marta@mail.com", updated.Email)

	taken := "Pedro@mail.com"
	_, err = f.svc.UpdateContact(ctx, u.ID, ContactInput{Email: &taken})
	assert.True(t, shared.IsValidation(err))

	updated, err = f.svc.SetActive(ctx, u.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = f.svc.SetActive(ctx, 999, false)
	assert.True(t, shared.IsNotFound(err))
}

func TestLinkGuardian(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.user(t, database.KindStudent, "Ana", "Pérez", "ana@colegio.edu")
	guardian := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")

	assert.True(t, shared.IsValidation(f.svc.LinkGuardian(ctx, guardian.ID, student.ID)))
	require.NoError(t, f.svc.LinkGuardian(ctx, student.ID, guardian.ID))

	guardians, err := f.svc.GuardiansOf(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, guardians, 1)
	assert.Equal(t, guardian.ID, guardians[0].ID)

	students, err := f.svc.ListByKind(ctx, "Student")
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, database.KindTeacher, "Inés", "Ruiz", "ines@colegio.edu")

	assert.True(t, shared.IsValidation(f.svc.SetPassword(ctx, u.ID, "123")))
	require.NoError(t, f.svc.SetPassword(ctx, u.ID, "nueva-clave"))

	got, err := f.svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, auth.NewHasher(4).Matches(got.PasswordHash, "nueva-clave"))
}
