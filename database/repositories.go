package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"schoolRecords/shared"
)

type GradeRepository struct {
	*Repository[Grade]
}

func NewGradeRepository(tx *sqlx.Tx) *GradeRepository {
	return &GradeRepository{Repository: NewRepository[Grade](tx, gradesTable)}
}

func (r *GradeRepository) GetByName(ctx context.Context, name string) (*Grade, error) {
	return r.First(ctx, Criteria{"name": name})
}

type GroupRepository struct {
	*Repository[Group]
}

func NewGroupRepository(tx *sqlx.Tx) *GroupRepository {
	return &GroupRepository{Repository: NewRepository[Group](tx, groupsTable)}
}

func (r *GroupRepository) GetByName(ctx context.Context, name string) (*Group, error) {
	return r.First(ctx, Criteria{"name": name})
}

func (r *GroupRepository) Active(ctx context.Context) ([]Group, error) {
	return r.Filter(ctx, Criteria{"active": true})
}

func (r *GroupRepository) ByGrade(ctx context.Context, gradeID int64) ([]Group, error) {
	return r.Filter(ctx, Criteria{"grade_id": gradeID})
}

func (r *GroupRepository) AddTeacher(ctx context.Context, groupID, teacherID int64) error {
	_, err := r.exec(ctx, "school_groups.AddTeacher",
		`INSERT INTO group_teachers (group_id, teacher_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		groupID, teacherID)
	return err
}

func (r *GroupRepository) TeacherIDs(ctx context.Context, groupID int64) ([]int64, error) {
	ids := []int64{}
	query := `SELECT teacher_id FROM group_teachers WHERE group_id = ? ORDER BY teacher_id`
	if err := r.tx.SelectContext(ctx, &ids, r.tx.Rebind(query), groupID); err != nil {
		return nil, shared.Storage("school_groups.TeacherIDs", err)
	}
	return ids, nil
}

// ByTeacher lists the active groups a teacher is assigned to.
func (r *GroupRepository) ByTeacher(ctx context.Context, teacherID int64) ([]Group, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM school_groups g
		JOIN group_teachers gt ON gt.group_id = g.id
		WHERE gt.teacher_id = ? AND g.active = ?
		ORDER BY g.id`, prefixed("g", groupsTable))
	return r.selectRows(ctx, "school_groups.ByTeacher", query, teacherID, true)
}

type CategoryRepository struct {
	*Repository[Category]
}

func NewCategoryRepository(tx *sqlx.Tx) *CategoryRepository {
	return &CategoryRepository{Repository: NewRepository[Category](tx, categoriesTable)}
}

type AchievementRepository struct {
	*Repository[Achievement]
}

func NewAchievementRepository(tx *sqlx.Tx) *AchievementRepository {
	return &AchievementRepository{Repository: NewRepository[Achievement](tx, achievementsTable)}
}

func (r *AchievementRepository) ByCategory(ctx context.Context, categoryID int64) ([]Achievement, error) {
	return r.Filter(ctx, Criteria{"category_id": categoryID})
}

func (r *AchievementRepository) ByStatus(ctx context.Context, status AchievementStatus) ([]Achievement, error) {
	return r.Filter(ctx, Criteria{"status": status})
}

type PeriodRepository struct {
	*Repository[AcademicPeriod]
}

func NewPeriodRepository(tx *sqlx.Tx) *PeriodRepository {
	return &PeriodRepository{Repository: NewRepository[AcademicPeriod](tx, periodsTable)}
}

// Current returns the period flagged as current, or nil.
func (r *PeriodRepository) Current(ctx context.Context) (*AcademicPeriod, error) {
	return r.First(ctx, Criteria{"is_current": true})
}

// ClearCurrent unflags every period. Callers set the new current period in
// the same unit of work.
func (r *PeriodRepository) ClearCurrent(ctx context.Context) error {
	_, err := r.exec(ctx, "academic_periods.ClearCurrent",
		`UPDATE academic_periods SET is_current = ? WHERE is_current = ?`, false, true)
	return err
}

// Containing returns the periods whose date range includes at.
func (r *PeriodRepository) Containing(ctx context.Context, at time.Time) ([]AcademicPeriod, error) {
	query := fmt.Sprintf(`SELECT %s FROM academic_periods WHERE start_date <= ? AND end_date >= ? ORDER BY id`,
		periodsTable.selectList())
	return r.selectRows(ctx, "academic_periods.Containing", query, at, at)
}

type EvaluationRepository struct {
	*Repository[Evaluation]
}

func NewEvaluationRepository(tx *sqlx.Tx) *EvaluationRepository {
	return &EvaluationRepository{Repository: NewRepository[Evaluation](tx, evaluationsTable)}
}

func (r *EvaluationRepository) ByStudentAndPeriod(ctx context.Context, studentID, periodID int64) ([]Evaluation, error) {
	return r.Filter(ctx, Criteria{"student_id": studentID, "period_id": periodID})
}

func (r *EvaluationRepository) ByStudent(ctx context.Context, studentID int64) ([]Evaluation, error) {
	return r.Filter(ctx, Criteria{"student_id": studentID})
}

func (r *EvaluationRepository) ByAchievement(ctx context.Context, achievementID int64) ([]Evaluation, error) {
	return r.Filter(ctx, Criteria{"achievement_id": achievementID})
}

func (r *EvaluationRepository) ByReportCard(ctx context.Context, reportCardID int64) ([]Evaluation, error) {
	return r.Filter(ctx, Criteria{"report_card_id": reportCardID})
}

// Find returns the evaluation of one student on one achievement in a period.
func (r *EvaluationRepository) Find(ctx context.Context, achievementID, studentID, periodID int64) (*Evaluation, error) {
	return r.First(ctx, Criteria{"achievement_id": achievementID, "student_id": studentID, "period_id": periodID})
}

// AttachToReportCard links every evaluation of the student in the period to
// the report card and returns how many were linked.
func (r *EvaluationRepository) AttachToReportCard(ctx context.Context, reportCardID, studentID, periodID int64) (int64, error) {
	return r.exec(ctx, "evaluations.AttachToReportCard",
		`UPDATE evaluations SET report_card_id = ? WHERE student_id = ? AND period_id = ?`,
		reportCardID, studentID, periodID)
}

type ReportCardRepository struct {
	*Repository[ReportCard]
}

func NewReportCardRepository(tx *sqlx.Tx) *ReportCardRepository {
	return &ReportCardRepository{Repository: NewRepository[ReportCard](tx, reportCardsTable)}
}

func (r *ReportCardRepository) ByStudentAndPeriod(ctx context.Context, studentID, periodID int64) (*ReportCard, error) {
	return r.First(ctx, Criteria{"student_id": studentID, "period_id": periodID})
}

func (r *ReportCardRepository) ByStudent(ctx context.Context, studentID int64) ([]ReportCard, error) {
	return r.Filter(ctx, Criteria{"student_id": studentID})
}

type InterviewRepository struct {
	*Repository[Interview]
}

func NewInterviewRepository(tx *sqlx.Tx) *InterviewRepository {
	return &InterviewRepository{Repository: NewRepository[Interview](tx, interviewsTable)}
}

func (r *InterviewRepository) ByInterviewer(ctx context.Context, interviewerID int64) ([]Interview, error) {
	return r.Filter(ctx, Criteria{"interviewer_id": interviewerID})
}

func (r *InterviewRepository) ByGuardian(ctx context.Context, guardianID int64) ([]Interview, error) {
	return r.Filter(ctx, Criteria{"guardian_id": guardianID})
}

// Upcoming lists scheduled interviews from the given instant on.
func (r *InterviewRepository) Upcoming(ctx context.Context, from time.Time) ([]Interview, error) {
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE status = ? AND scheduled_at >= ? ORDER BY scheduled_at, id`,
		interviewsTable.selectList())
	return r.selectRows(ctx, "interviews.Upcoming", query, InterviewScheduled, from)
}

// CitationRepository keeps recipients in citation_recipients; every read
// loads them back into Citation.Recipients.
type CitationRepository struct {
	*Repository[Citation]
}

func NewCitationRepository(tx *sqlx.Tx) *CitationRepository {
	return &CitationRepository{Repository: NewRepository[Citation](tx, citationsTable)}
}

func (r *CitationRepository) Create(ctx context.Context, c *Citation) (*Citation, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	created, err := r.Repository.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, email := range c.Recipients {
		email = NormalizeEmail(email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		if _, err := r.exec(ctx, "citations.Create",
			`INSERT INTO citation_recipients (citation_id, email) VALUES (?, ?)`, created.ID, email); err != nil {
			return nil, err
		}
	}

	return r.GetByID(ctx, created.ID)
}

func (r *CitationRepository) GetAll(ctx context.Context) ([]Citation, error) {
	return r.Filter(ctx, nil)
}

func (r *CitationRepository) Filter(ctx context.Context, criteria Criteria) ([]Citation, error) {
	rows, err := r.Repository.Filter(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return r.withRecipients(ctx, rows)
}

// First returns nil, nil when nothing matches.
func (r *CitationRepository) First(ctx context.Context, criteria Criteria) (*Citation, error) {
	rows, err := r.Filter(ctx, criteria)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Update patches the citation row; recipients are not patchable.
func (r *CitationRepository) Update(ctx context.Context, id int64, patch Patch) (*Citation, error) {
	c, err := r.Repository.Update(ctx, id, patch)
	if err != nil || c == nil {
		return c, err
	}
	if err := r.loadRecipients(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CitationRepository) GetByID(ctx context.Context, id int64) (*Citation, error) {
	c, err := r.Repository.GetByID(ctx, id)
	if err != nil || c == nil {
		return c, err
	}
	if err := r.loadRecipients(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ByRecipient lists the citations addressed to email.
func (r *CitationRepository) ByRecipient(ctx context.Context, email string) ([]Citation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM citations c
		JOIN citation_recipients cr ON cr.citation_id = c.id
		WHERE cr.email = ?
		ORDER BY c.id`, prefixed("c", citationsTable))
	rows, err := r.selectRows(ctx, "citations.ByRecipient", query, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return r.withRecipients(ctx, rows)
}

func (r *CitationRepository) BySender(ctx context.Context, senderID int64) ([]Citation, error) {
	return r.Filter(ctx, Criteria{"sender_id": senderID})
}

func (r *CitationRepository) ByInterview(ctx context.Context, interviewID int64) ([]Citation, error) {
	return r.Filter(ctx, Criteria{"interview_id": interviewID})
}

func (r *CitationRepository) withRecipients(ctx context.Context, rows []Citation) ([]Citation, error) {
	for i := range rows {
		if err := r.loadRecipients(ctx, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (r *CitationRepository) loadRecipients(ctx context.Context, c *Citation) error {
	emails := []string{}
	query := `SELECT email FROM citation_recipients WHERE citation_id = ? ORDER BY email`
	if err := r.tx.SelectContext(ctx, &emails, r.tx.Rebind(query), c.ID); err != nil {
		return shared.Storage("citations.Recipients", err)
	}
	c.Recipients = emails
	return nil
}

type NotificationRepository struct {
	*Repository[Notification]
}

func NewNotificationRepository(tx *sqlx.Tx) *NotificationRepository {
	return &NotificationRepository{Repository: NewRepository[Notification](tx, notificationsTable)}
}

func (r *NotificationRepository) ByRecipient(ctx context.Context, recipientID int64) ([]Notification, error) {
	return r.Filter(ctx, Criteria{"recipient_id": recipientID})
}

func (r *NotificationRepository) Unread(ctx context.Context, recipientID int64) ([]Notification, error) {
	return r.Filter(ctx, Criteria{"recipient_id": recipientID, "is_read": false})
}

// MarkRead flags a notification of the recipient as read and reports
// whether it existed.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) (bool, error) {
	n, err := r.exec(ctx, "notifications.MarkRead",
		`UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ?`, true, id, recipientID)
	return n > 0, err
}
