package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolRecords/database"
	"schoolRecords/shared"
)

func TestSendCitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	director := f.user(t, database.KindDirector, "Rosa", "Díaz", "rosa@colegio.edu")
	guardian := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")
	at := time.Now().Add(48 * time.Hour)

	result, err := f.svc.SendCitation(ctx, SendCitationInput{
		SenderID:    director.ID,
		Subject:     "Reunión de padres",
		Message:     "Entrega de boletines",
		ScheduledAt: at,
		Recipients:  []string{"Marta@mail.com", "externo@mail.com", "marta@mail.com"},
	})
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, 1, result.Notified)
	assert.Equal(t, []string{"externo@mail.com", "marta@mail.com"}, result.Citation.Recipients)

	require.Len(t, f.notifier.sent, 1)
	sent := f.notifier.sent[0]
	assert.Equal(t, "Reunión de padres", sent.subject)
	assert.Contains(t, sent.body, "Entrega de boletines")

	inbox, err := f.svc.Inbox(ctx, guardian.ID, true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Reunión de padres", inbox[0].Title)

	require.NoError(t, f.svc.MarkRead(ctx, guardian.ID, inbox[0].ID))
	inbox, err = f.svc.Inbox(ctx, guardian.ID, true)
	require.NoError(t, err)
	assert.Empty(t, inbox)
	assert.True(t, shared.IsNotFound(f.svc.MarkRead(ctx, director.ID, result.Citation.ID+100)))

	citations, err := f.svc.CitationsFor(ctx, "MARTA@mail.com")
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, result.Citation.ID, citations[0].ID)
}

func TestSendCitationUndelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.fail = true

	teacher := f.user(t, database.KindTeacher, "Inés", "Ruiz", "ines@colegio.edu")
	result, err := f.svc.SendCitation(ctx, SendCitationInput{
		SenderID: teacher.ID, Subject: "Citación", ScheduledAt: time.Now().Add(time.Hour), Recipients: []string{"a@mail.com"},
	})
	require.NoError(t, err)
	assert.False(t, result.Delivered)

	citations, err := f.svc.CitationsFor(ctx, "a@mail.com")
	require.NoError(t, err)
	assert.Len(t, citations, 1, "the citation is kept even when the email fails")
}

func TestSendCitationValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	teacher := f.user(t, database.KindTeacher, "Inés", "Ruiz", "ines@colegio.edu")
	guardian := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")
	at := time.Now().Add(time.Hour)

	_, err := f.svc.SendCitation(ctx, SendCitationInput{SenderID: teacher.ID, Subject: "X", ScheduledAt: at})
	assert.True(t, shared.IsValidation(err))

	_, err = f.svc.SendCitation(ctx, SendCitationInput{SenderID: teacher.ID, Subject: "X", ScheduledAt: at, Recipients: []string{"nope"}})
	assert.True(t, shared.IsValidation(err))

	_, err = f.svc.SendCitation(ctx, SendCitationInput{SenderID: guardian.ID, Subject: "X", ScheduledAt: at, Recipients: []string{"a@mail.com"}})
	assert.True(t, shared.IsValidation(err))
	assert.Empty(t, f.notifier.sent)
}

func TestInterviewLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	director := f.user(t, database.KindDirector, "Rosa", "Díaz", "rosa@colegio.edu")
	guardian := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")
	applicant := f.user(t, database.KindApplicant, "Luis", "Gómez", "luis@mail.com")

	_, err := f.svc.ScheduleInterview(ctx, ScheduleInterviewInput{
		InterviewerID: director.ID, GuardianID: &guardian.ID, ScheduledAt: time.Now().Add(-time.Hour),
	})
	assert.True(t, shared.IsValidation(err))

	_, err = f.svc.ScheduleInterview(ctx, ScheduleInterviewInput{
		InterviewerID: director.ID, ScheduledAt: time.Now().Add(time.Hour),
	})
	assert.True(t, shared.IsValidation(err))

	interview, err := f.svc.ScheduleInterview(ctx, ScheduleInterviewInput{
		InterviewerID: director.ID,
		GuardianID:    &guardian.ID,
		ApplicantID:   &applicant.ID,
		ScheduledAt:   time.Now().Add(24 * time.Hour),
		Location:      "Rectoría",
	})
	require.NoError(t, err)
	assert.Equal(t, database.InterviewScheduled, interview.Status)

	for _, id := range []int64{guardian.ID, applicant.ID} {
		inbox, err := f.svc.Inbox(ctx, id, false)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Contains(t, inbox[0].Body, "Rectoría")
	}

	upcoming, err := f.svc.UpcomingInterviews(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	done, err := f.svc.CompleteInterview(ctx, interview.ID, "Admisión aprobada")
	require.NoError(t, err)
	assert.Equal(t, database.InterviewDone, done.Status)
	assert.Equal(t, "Admisión aprobada", done.Notes)

	_, err = f.svc.CancelInterview(ctx, interview.ID, "")
	assert.True(t, shared.IsValidation(err))
	_, err = f.svc.CancelInterview(ctx, 999, "")
	assert.True(t, shared.IsNotFound(err))

	upcoming, err = f.svc.UpcomingInterviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guardian := f.user(t, database.KindGuardian, "Marta", "Pérez", "marta@mail.com")

	n, err := f.svc.Notify(ctx, NotifyInput{RecipientID: guardian.ID, Title: "Salida pedagógica"})
	require.NoError(t, err)
	assert.False(t, n.Read)

	_, err = f.svc.Notify(ctx, NotifyInput{RecipientID: 999, Title: "x"})
	assert.True(t, shared.IsNotFound(err))

	_, err = f.svc.Notify(ctx, NotifyInput{RecipientID: guardian.ID})
	assert.Equal(t, "title is required", shared.UserMessage(err))
}
