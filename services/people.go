package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/shared"
)

type RegisterUserInput struct {
	Kind           string     `json:"kind" validate:"required"`
	DocumentType   string     `json:"document_type" validate:"max=10"`
	DocumentNumber string     `json:"document_number" validate:"max=30"`
	FirstName      string     `json:"first_name" validate:"required,max=100"`
	LastName       string     `json:"last_name" validate:"required,max=100"`
	BirthDate      *time.Time `json:"birth_date"`
	Phone          string     `json:"phone" validate:"max=30"`
	Address        string     `json:"address"`
	Email          string     `json:"email" validate:"required,email"`
	// Password may be empty for accounts that never log in.
	Password string `json:"password" validate:"omitempty,min=6"`
	// RoleName overrides the role derived from Kind.
	RoleName string           `json:"role"`
	Profile  database.Profile `json:"profile"`
}

// defaultRoles is the role a new account of each kind receives.
var defaultRoles = map[database.Kind]auth.Role{
	database.KindAdmin:     auth.RoleAdmin,
	database.KindDirector:  auth.RoleDirector,
	database.KindTeacher:   auth.RoleTeacher,
	database.KindGuardian:  auth.RoleParent,
	database.KindStudent:   auth.RoleObserver,
	database.KindApplicant: auth.RoleObserver,
}

// RegisterUser creates a user of any kind. Students without an enrollment
// code get a generated one.
func (s *Service) RegisterUser(ctx context.Context, in RegisterUserInput) (*database.User, error) {
	const op = "RegisterUser"
	if err := s.check("user", op, in); err != nil {
		return nil, err
	}
	kind, err := database.ParseKind(in.Kind)
	if err != nil {
		return nil, shared.Invalid("user", op, "%v", err)
	}

	var hash string
	if in.Password != "" {
		if err := checkPassword(op, in.Password); err != nil {
			return nil, err
		}
		if hash, err = s.hasher.Hash(in.Password); err != nil {
			return nil, shared.WrapError("user", op, shared.ErrStorage, "could not store the password", err)
		}
	}

	var created *database.User
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		created, err = s.registerUser(ctx, uow, in, kind, hash)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("registered %s %d (%s)", created.Kind, created.ID, created.Email)
	return created, nil
}

func (s *Service) registerUser(ctx context.Context, uow *database.UnitOfWork, in RegisterUserInput, kind database.Kind, hash string) (*database.User, error) {
	const op = "RegisterUser"

	existing, err := uow.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.Invalid("user", op, "the email %s is already registered", database.NormalizeEmail(in.Email))
	}

	roleName := in.RoleName
	if roleName == "" {
		roleName = string(defaultRoles[kind])
	}
	role, err := uow.Roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	if role == nil && in.RoleName != "" {
		return nil, shared.Invalid("user", op, "unknown role %q", in.RoleName)
	}

	profile := in.Profile
	if profile == (database.Profile{}) {
		profile = database.DefaultProfile(kind)
	}
	if kind == database.KindStudent && profile.Student != nil {
		student := *profile.Student
		if strings.TrimSpace(student.EnrollmentCode) == "" {
			student.EnrollmentCode = newEnrollmentCode()
		}
		if student.EnrolledOn == nil {
			today := s.clock().Truncate(24 * time.Hour)
			student.EnrolledOn = &today
		}
		profile.Student = &student
	}

	user := &database.User{
		Person: database.Person{
			DocumentType:   strings.TrimSpace(in.DocumentType),
			DocumentNumber: strings.TrimSpace(in.DocumentNumber),
			FirstName:      strings.TrimSpace(in.FirstName),
			LastName:       strings.TrimSpace(in.LastName),
			BirthDate:      in.BirthDate,
			Phone:          strings.TrimSpace(in.Phone),
			Address:        strings.TrimSpace(in.Address),
		},
		Kind:         kind,
		Email:        in.Email,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.clock(),
		Profile:      profile,
	}
	if role != nil {
		user.RoleID = &role.ID
	}

	created, err := uow.Users.Create(ctx, user)
	if err != nil {
		return nil, uniqueViolation(err, "user", op, "the email %s is already registered", user.Email)
	}
	return created, nil
}

func newEnrollmentCode() string {
	return "EST-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *Service) GetUser(ctx context.Context, id int64) (*database.User, error) {
	var user *database.User
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		user, err = loadUser(ctx, uow, "user", "GetUser", id)
		return err
	})
	return user, err
}

// ContactInput holds the only person fields that change after creation.
// Nil fields are left untouched.
type ContactInput struct {
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

func (s *Service) UpdateContact(ctx context.Context, id int64, in ContactInput) (*database.User, error) {
	const op = "UpdateContact"
	if err := s.check("user", op, in); err != nil {
		return nil, err
	}

	patch := database.Patch{}
	if in.Phone != nil {
		patch["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		patch["address"] = strings.TrimSpace(*in.Address)
	}
	if in.Email != nil {
		patch["email"] = database.NormalizeEmail(*in.Email)
	}

	var user *database.User
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", op, id); err != nil {
			return err
		}
		if email, ok := patch["email"].(string); ok {
			other, err := uow.Users.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if other != nil && other.ID != id {
				return shared.Invalid("user", op, "the email %s is already registered", email)
			}
		}
		var err error
		user, err = uow.Users.Update(ctx, id, patch)
		return err
	})
	return user, err
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*database.User, error) {
	var user *database.User
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", "SetActive", id); err != nil {
			return err
		}
		var err error
		user, err = uow.Users.Update(ctx, id, database.Patch{"active": active})
		return err
	})
	if err == nil {
		s.logger.Infof("user %d active=%t", id, active)
	}
	return user, err
}

// passwordMaxBytes is the longest input bcrypt accepts. The limit is in
// bytes, so accented passwords reach it with fewer characters.
const passwordMaxBytes = 72

func checkPassword(op, password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return shared.Invalid("user", op, "password must be at least 6")
	}
	if len(password) > passwordMaxBytes {
		return shared.Invalid("user", op, "password must be at most %d bytes", passwordMaxBytes)
	}
	return nil
}

// SetPassword replaces the password of a user, e.g. after a CSV import.
func (s *Service) SetPassword(ctx context.Context, id int64, password string) error {
	const op = "SetPassword"
	if err := checkPassword(op, password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return shared.WrapError("user", op, shared.ErrStorage, "could not store the password", err)
	}
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", op, id); err != nil {
			return err
		}
		_, err := uow.Users.Update(ctx, id, database.Patch{"password_hash": hash})
		return err
	})
}

func (s *Service) LinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	const op = "LinkGuardian"
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", op, studentID, database.KindStudent); err != nil {
			return err
		}
		if _, err := loadUser(ctx, uow, "user", op, guardianID, database.KindGuardian); err != nil {
			return err
		}
		return uow.Users.LinkGuardian(ctx, studentID, guardianID)
	})
}

func (s *Service) GuardiansOf(ctx context.Context, studentID int64) ([]database.User, error) {
	var out []database.User
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", "GuardiansOf", studentID, database.KindStudent); err != nil {
			return err
		}
		var err error
		out, err = uow.Users.GuardiansOf(ctx, studentID)
		return err
	})
	return out, err
}

func (s *Service) ListByKind(ctx context.Context, kind string) ([]database.User, error) {
	k, err := database.ParseKind(kind)
	if err != nil {
		return nil, shared.Invalid("user", "ListByKind", "%v", err)
	}
	var out []database.User
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		out, err = uow.Users.ByKind(ctx, k)
		return err
	})
	return out, err
}

// ChildrenOf lists the students a guardian is linked to.
func (s *Service) ChildrenOf(ctx context.Context, guardianID int64) ([]database.User, error) {
	var out []database.User
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "user", "ChildrenOf", guardianID, database.KindGuardian); err != nil {
			return err
		}
		var err error
		out, err = uow.Users.StudentsOf(ctx, guardianID)
		return err
	})
	return out, err
}
