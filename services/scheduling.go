package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolRecords/database"
	"schoolRecords/shared"
)

type ScheduleInterviewInput struct {
	InterviewerID int64     `json:"interviewer_id" validate:"required"`
	GuardianID    *int64    `json:"guardian_id"`
	ApplicantID   *int64    `json:"applicant_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Location      string    `json:"location" validate:"max=200"`
	Notes         string    `json:"notes"`
}

// ScheduleInterview books an interview with a guardian or an applicant and
// notifies them.
func (s *Service) ScheduleInterview(ctx context.Context, in ScheduleInterviewInput) (*database.Interview, error) {
	const op = "ScheduleInterview"
	if err := s.check("interview", op, in); err != nil {
		return nil, err
	}
	if in.GuardianID == nil && in.ApplicantID == nil {
		return nil, shared.Invalid("interview", op, "an interview needs a guardian or an applicant")
	}
	if !in.ScheduledAt.After(s.clock()) {
		return nil, shared.Invalid("interview", op, "scheduled_at must be in the future")
	}

	var interview *database.Interview
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		interviewer, err := loadUser(ctx, uow, "interview", op, in.InterviewerID, database.KindDirector, database.KindTeacher)
		if err != nil {
			return err
		}

		var attendees []int64
		if in.GuardianID != nil {
			if _, err := loadUser(ctx, uow, "interview", op, *in.GuardianID, database.KindGuardian); err != nil {
				return err
			}
			attendees = append(attendees, *in.GuardianID)
		}
		if in.ApplicantID != nil {
			if _, err := loadUser(ctx, uow, "interview", op, *in.ApplicantID, database.KindApplicant); err != nil {
				return err
			}
			attendees = append(attendees, *in.ApplicantID)
		}

		interview, err = uow.Interviews.Create(ctx, &database.Interview{
			InterviewerID: in.InterviewerID,
			GuardianID:    in.GuardianID,
			ApplicantID:   in.ApplicantID,
			ScheduledAt:   in.ScheduledAt.UTC(),
			Location:      strings.TrimSpace(in.Location),
			Status:        database.InterviewScheduled,
			Notes:         in.Notes,
		})
		if err != nil {
			return err
		}

		body := fmt.Sprintf("%s scheduled an interview on %s", interviewer.FullName(), interview.ScheduledAt.Format("2006-01-02 15:04"))
		if interview.Location != "" {
			body += " at " + interview.Location
		}
		for _, id := range attendees {
			if _, err := uow.Notifications.Create(ctx, &database.Notification{
				SenderID:    &interviewer.ID,
				RecipientID: id,
				Title:       "Interview scheduled",
				Body:        body,
				CreatedAt:   s.clock(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("interview %d scheduled for %s", interview.ID, interview.ScheduledAt.Format(time.RFC3339))
	return interview, nil
}

// CompleteInterview closes a scheduled interview with its notes.
func (s *Service) CompleteInterview(ctx context.Context, id int64, notes string) (*database.Interview, error) {
	return s.closeInterview(ctx, "CompleteInterview", id, database.InterviewDone, notes)
}

func (s *Service) CancelInterview(ctx context.Context, id int64, reason string) (*database.Interview, error) {
	return s.closeInterview(ctx, "CancelInterview", id, database.InterviewCancelled, reason)
}

func (s *Service) closeInterview(ctx context.Context, op string, id int64, status database.InterviewStatus, notes string) (*database.Interview, error) {
	var interview *database.Interview
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		current, err := uow.Interviews.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return shared.NotFound("interview", op, "interview", id)
		}
		if current.Status != database.InterviewScheduled {
			return shared.Invalid("interview", op, "interview %d is already %s", id, current.Status)
		}

		patch := database.Patch{"status": status}
		if notes = strings.TrimSpace(notes); notes != "" {
			patch["notes"] = notes
		}
		interview, err = uow.Interviews.Update(ctx, id, patch)
		return err
	})
	return interview, err
}

func (s *Service) UpcomingInterviews(ctx context.Context) ([]database.Interview, error) {
	var out []database.Interview
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		out, err = uow.Interviews.Upcoming(ctx, s.clock())
		return err
	})
	return out, err
}

type SendCitationInput struct {
	SenderID    int64     `json:"sender_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required,max=200"`
	Message     string    `json:"message"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Recipients  []string  `json:"recipients" validate:"required,min=1,dive,email"`
	InterviewID *int64    `json:"interview_id"`
}

type CitationResult struct {
	Citation database.Citation
	// Notified counts recipients that are registered users and got an
	// in-app notification.
	Notified int
	// Delivered reports whether the email went out.
	Delivered bool
}

// SendCitation stores a citation, notifies the recipients that have an
// account and emails every recipient after the unit of work commits.
func (s *Service) SendCitation(ctx context.Context, in SendCitationInput) (*CitationResult, error) {
	const op = "SendCitation"
	if err := s.check("citation", op, in); err != nil {
		return nil, err
	}
	if in.ScheduledAt.IsZero() {
		return nil, shared.Invalid("citation", op, "scheduled_at is required")
	}

	var result CitationResult
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		sender, err := loadUser(ctx, uow, "citation", op, in.SenderID, database.KindDirector, database.KindTeacher, database.KindAdmin)
		if err != nil {
			return err
		}
		if in.InterviewID != nil {
			iv, err := uow.Interviews.GetByID(ctx, *in.InterviewID)
			if err != nil {
				return err
			}
			if iv == nil {
				return shared.NotFound("citation", op, "interview", *in.InterviewID)
			}
		}

		citation, err := uow.Citations.Create(ctx, &database.Citation{
			SenderID:    sender.ID,
			Subject:     strings.TrimSpace(in.Subject),
			Message:     in.Message,
			ScheduledAt: in.ScheduledAt.UTC(),
			InterviewID: in.InterviewID,
			CreatedAt:   s.clock(),
			Recipients:  in.Recipients,
		})
		if err != nil {
			return err
		}
		result.Citation = *citation

		users, err := uow.Users.ByEmails(ctx, citation.Recipients)
		if err != nil {
			return err
		}
		for _, u := range users {
			if _, err := uow.Notifications.Create(ctx, &database.Notification{
				SenderID:    &sender.ID,
				RecipientID: u.ID,
				Title:       citation.Subject,
				Body:        citationBody(citation),
				CreatedAt:   s.clock(),
			}); err != nil {
				return err
			}
		}
		result.Notified = len(users)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := result.Citation
	result.Delivered = s.notifier.Send(ctx, c.Recipients, c.Subject, citationBody(&c))
	if !result.Delivered {
		s.logger.Warnf("citation %d stored but the email was not delivered", c.ID)
	}
	return &result, nil
}

func citationBody(c *database.Citation) string {
	body := fmt.Sprintf("You are summoned on %s.", c.ScheduledAt.Format("2006-01-02 15:04"))
	if c.Message != "" {
		body += "\n\n" + c.Message
	}
	return body
}

func (s *Service) CitationsFor(ctx context.Context, email string) ([]database.Citation, error) {
	var out []database.Citation
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		out, err = uow.Citations.ByRecipient(ctx, email)
		return err
	})
	return out, err
}

type NotifyInput struct {
	SenderID    *int64 `json:"sender_id"`
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Body        string `json:"body"`
}

func (s *Service) Notify(ctx context.Context, in NotifyInput) (*database.Notification, error) {
	const op = "Notify"
	if err := s.check("notification", op, in); err != nil {
		return nil, err
	}

	var n *database.Notification
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "notification", op, in.RecipientID); err != nil {
			return err
		}
		if in.SenderID != nil {
			if _, err := loadUser(ctx, uow, "notification", op, *in.SenderID); err != nil {
				return err
			}
		}
		var err error
		n, err = uow.Notifications.Create(ctx, &database.Notification{
			SenderID:    in.SenderID,
			RecipientID: in.RecipientID,
			Title:       strings.TrimSpace(in.Title),
			Body:        in.Body,
			CreatedAt:   s.clock(),
		})
		return err
	})
	return n, err
}

func (s *Service) Inbox(ctx context.Context, userID int64, unreadOnly bool) ([]database.Notification, error) {
	var out []database.Notification
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "notification", "Inbox", userID); err != nil {
			return err
		}
		var err error
		if unreadOnly {
			out, err = uow.Notifications.Unread(ctx, userID)
		} else {
			out, err = uow.Notifications.ByRecipient(ctx, userID)
		}
		return err
	})
	return out, err
}

// MarkRead fails with NotFound when the notification does not belong to
// userID.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		ok, err := uow.Notifications.MarkRead(ctx, notificationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.NotFound("notification", "MarkRead", "notification", notificationID)
		}
		return nil
	})
}
