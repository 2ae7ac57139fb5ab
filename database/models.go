package database

import (
	"time"
)

// Person is the identity shared by every human actor. Only the contact
// fields change after creation.
type Person struct {
	DocumentType   string     `db:"document_type" json:"document_type"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone          string     `db:"phone" json:"phone"`
	Address        string     `db:"address" json:"address"`
}

func (p Person) FullName() string {
	return p.FirstName + " " + p.LastName
}

type User struct {
	ID int64 `db:"id" json:"id"`
	Person
	Kind         Kind       `db:"kind" json:"kind"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	RoleID       *int64     `db:"role_id" json:"role_id,omitempty"`
	GroupID      *int64     `db:"group_id" json:"group_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	Profile      Profile    `db:"profile" json:"profile"`
}

type Role struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

type Permission struct {
	ID          int64  `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
}

// Grade is a school year level such as "Transición" or "Primero".
type Grade struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Level       int    `db:"level" json:"level"`
	Description string `db:"description" json:"description"`
}

type Group struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	MinCapacity int       `db:"min_capacity" json:"min_capacity"`
	MaxCapacity int       `db:"max_capacity" json:"max_capacity"`
	Active      bool      `db:"active" json:"active"`
	DirectorID  *int64    `db:"director_id" json:"director_id,omitempty"`
	CreatedByID *int64    `db:"created_by_id" json:"created_by_id,omitempty"`
	GradeID     *int64    `db:"grade_id" json:"grade_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CanAdmit reports whether one more student fits next to current.
func (g Group) CanAdmit(current int) bool {
	return current < g.MaxCapacity
}

type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

type AchievementStatus string

const (
	AchievementDraft    AchievementStatus = "draft"
	AchievementActive   AchievementStatus = "active"
	AchievementArchived AchievementStatus = "archived"
)

func (s AchievementStatus) Valid() bool {
	switch s {
	case AchievementDraft, AchievementActive, AchievementArchived:
		return true
	}
	return false
}

type Achievement struct {
	ID          int64             `db:"id" json:"id"`
	Title       string            `db:"title" json:"title"`
	Description string            `db:"description" json:"description"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	CreatedByID *int64            `db:"created_by_id" json:"created_by_id,omitempty"`
	Status      AchievementStatus `db:"status" json:"status"`
	CategoryID  *int64            `db:"category_id" json:"category_id,omitempty"`
}

type AcademicPeriod struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
}

type Evaluation struct {
	ID            int64     `db:"id" json:"id"`
	AchievementID int64     `db:"achievement_id" json:"achievement_id"`
	StudentID     int64     `db:"student_id" json:"student_id"`
	TeacherID     int64     `db:"teacher_id" json:"teacher_id"`
	PeriodID      int64     `db:"period_id" json:"period_id"`
	Score         Score     `db:"score" json:"score"`
	Comments      string    `db:"comments" json:"comments"`
	EvaluatedAt   time.Time `db:"evaluated_at" json:"evaluated_at"`
	ReportCardID  *int64    `db:"report_card_id" json:"report_card_id,omitempty"`
}

type ReportCard struct {
	ID           int64     `db:"id" json:"id"`
	StudentID    int64     `db:"student_id" json:"student_id"`
	PeriodID     int64     `db:"period_id" json:"period_id"`
	TeacherID    int64     `db:"teacher_id" json:"teacher_id"`
	GeneratedAt  time.Time `db:"generated_at" json:"generated_at"`
	Observations string    `db:"observations" json:"observations"`
}

type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewDone      InterviewStatus = "done"
	InterviewCancelled InterviewStatus = "cancelled"
)

type Interview struct {
	ID            int64           `db:"id" json:"id"`
	InterviewerID int64           `db:"interviewer_id" json:"interviewer_id"`
	GuardianID    *int64          `db:"guardian_id" json:"guardian_id,omitempty"`
	ApplicantID   *int64          `db:"applicant_id" json:"applicant_id,omitempty"`
	ScheduledAt   time.Time       `db:"scheduled_at" json:"scheduled_at"`
	Location      string          `db:"location" json:"location"`
	Status        InterviewStatus `db:"status" json:"status"`
	Notes         string          `db:"notes" json:"notes"`
}

type Citation struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	Subject     string    `db:"subject" json:"subject"`
	Message     string    `db:"message" json:"message"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	InterviewID *int64    `db:"interview_id" json:"interview_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	// Recipients live in citation_recipients.
	Recipients []string `db:"-" json:"recipients"`
}

type Notification struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    *int64    `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	Read        bool      `db:"is_read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
