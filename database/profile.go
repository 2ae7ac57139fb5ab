package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the user variants stored in the users table.
type Kind string

const (
	KindStudent   Kind = "student"
	KindTeacher   Kind = "teacher"
	KindGuardian  Kind = "guardian"
	KindDirector  Kind = "director"
	KindAdmin     Kind = "admin"
	KindApplicant Kind = "applicant"
)

var kinds = []Kind{KindStudent, KindTeacher, KindGuardian, KindDirector, KindAdmin, KindApplicant}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown user kind %q", s)
}

type StudentProfile struct {
	EnrollmentCode string     `json:"enrollment_code"`
	EnrolledOn     *time.Time `json:"enrolled_on,omitempty"`
}

type TeacherProfile struct {
	IsGroupDirector bool   `json:"is_group_director"`
	Specialty       string `json:"specialty,omitempty"`
}

type GuardianProfile struct {
	Kinship    string `json:"kinship"`
	Occupation string `json:"occupation,omitempty"`
}

type DirectorProfile struct {
	Office string `json:"office,omitempty"`
}

type AdminProfile struct {
	Notes string `json:"notes,omitempty"`
}

type ApplicantProfile struct {
	DesiredGradeID *int64 `json:"desired_grade_id,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Profile is the per-kind payload of a user. Exactly one field is set and
// it must agree with User.Kind.
type Profile struct {
	Student   *StudentProfile   `json:"student,omitempty"`
	Teacher   *TeacherProfile   `json:"teacher,omitempty"`
	Guardian  *GuardianProfile  `json:"guardian,omitempty"`
	Director  *DirectorProfile  `json:"director,omitempty"`
	Admin     *AdminProfile     `json:"admin,omitempty"`
	Applicant *ApplicantProfile `json:"applicant,omitempty"`
}

// DefaultProfile returns an empty payload of the given kind.
func DefaultProfile(k Kind) Profile {
	switch k {
	case KindStudent:
		return Profile{Student: &StudentProfile{}}
	case KindTeacher:
		return Profile{Teacher: &TeacherProfile{}}
	case KindGuardian:
		return Profile{Guardian: &GuardianProfile{}}
	case KindDirector:
		return Profile{Director: &DirectorProfile{}}
	case KindAdmin:
		return Profile{Admin: &AdminProfile{}}
	case KindApplicant:
		return Profile{Applicant: &ApplicantProfile{}}
	}
	return Profile{}
}

// Kind reports the variant held, or "" when the profile is empty or holds
// more than one payload.
func (p Profile) Kind() Kind {
	var found []Kind
	if p.Student != nil {
		found = append(found, KindStudent)
	}
	if p.Teacher != nil {
		found = append(found, KindTeacher)
	}
	if p.Guardian != nil {
		found = append(found, KindGuardian)
	}
	if p.Director != nil {
		found = append(found, KindDirector)
	}
	if p.Admin != nil {
		found = append(found, KindAdmin)
	}
	if p.Applicant != nil {
		found = append(found, KindApplicant)
	}
	if len(found) != 1 {
		return ""
	}
	return found[0]
}

func (p Profile) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Profile) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Profile{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("profile: unsupported column type %T", src)
	}
	var out Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	*p = out
	return nil
}
