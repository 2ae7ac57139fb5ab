package services

import (
	"context"
	"strings"

	"schoolRecords/database"
	"schoolRecords/shared"
)

type CreateGroupInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	MaxCapacity int    `json:"max_capacity" validate:"gt=0"`
	MinCapacity int    `json:"min_capacity" validate:"gte=0"`
	// DirectorID is the teacher in charge of the group.
	DirectorID int64 `json:"director_id" validate:"required"`
	// CreatorID is the school director creating it.
	CreatorID int64 `json:"creator_id" validate:"required"`
	GradeID   int64 `json:"grade_id" validate:"required"`
}

// GroupView is a group with its roster.
type GroupView struct {
	Group       database.Group
	NumStudents int
	Students    []database.User
	TeacherIDs  []int64
}

func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (*database.Group, error) {
	const op = "CreateGroup"
	if err := s.check("group", op, in); err != nil {
		return nil, err
	}
	if in.MinCapacity > in.MaxCapacity {
		return nil, shared.Invalid("group", op, "min_capacity (%d) must not exceed max_capacity (%d)", in.MinCapacity, in.MaxCapacity)
	}
	name := strings.TrimSpace(in.Name)

	var group *database.Group
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		teacher, err := loadUser(ctx, uow, "group", op, in.DirectorID, database.KindTeacher)
		if err != nil {
			return err
		}
		if _, err := loadUser(ctx, uow, "group", op, in.CreatorID, database.KindDirector); err != nil {
			return err
		}
		grade, err := uow.Grades.GetByID(ctx, in.GradeID)
		if err != nil {
			return err
		}
		if grade == nil {
			return shared.NotFound("group", op, "grade", in.GradeID)
		}

		if dup, err := uow.Groups.GetByName(ctx, name); err != nil {
			return err
		} else if dup != nil {
			return shared.Invalid("group", op, "a group named %q already exists", name)
		}

		group, err = uow.Groups.Create(ctx, &database.Group{
			Name:        name,
			MinCapacity: in.MinCapacity,
			MaxCapacity: in.MaxCapacity,
			Active:      true,
			DirectorID:  &teacher.ID,
			CreatedByID: &in.CreatorID,
			GradeID:     &grade.ID,
			CreatedAt:   s.clock(),
		})
		if err != nil {
			return uniqueViolation(err, "group", op, "a group named %q already exists", name)
		}
		if err := uow.Groups.AddTeacher(ctx, group.ID, teacher.ID); err != nil {
			return err
		}
		return markGroupDirector(ctx, uow, teacher)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("created group %d %q (capacity %d-%d)", group.ID, group.Name, group.MinCapacity, group.MaxCapacity)
	return group, nil
}

func markGroupDirector(ctx context.Context, uow *database.UnitOfWork, teacher *database.User) error {
	profile := teacher.Profile
	tp := database.TeacherProfile{}
	if profile.Teacher != nil {
		tp = *profile.Teacher
	}
	if tp.IsGroupDirector {
		return nil
	}
	tp.IsGroupDirector = true
	profile.Teacher = &tp
	_, err := uow.Users.Update(ctx, teacher.ID, database.Patch{"profile": profile})
	return err
}

func (s *Service) GetGroup(ctx context.Context, id int64) (*GroupView, error) {
	var view *GroupView
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		g, err := loadGroup(ctx, uow, "GetGroup", id)
		if err != nil {
			return err
		}
		students, err := uow.Users.StudentsInGroup(ctx, id)
		if err != nil {
			return err
		}
		teachers, err := uow.Groups.TeacherIDs(ctx, id)
		if err != nil {
			return err
		}
		view = &GroupView{Group: *g, NumStudents: len(students), Students: students, TeacherIDs: teachers}
		return nil
	})
	return view, err
}

// ListGroups returns every group, or only active ones, with their student
// counts. Rosters are not loaded.
func (s *Service) ListGroups(ctx context.Context, activeOnly bool) ([]GroupView, error) {
	var out []GroupView
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var groups []database.Group
		var err error
		if activeOnly {
			groups, err = uow.Groups.Active(ctx)
		} else {
			groups, err = uow.Groups.GetAll(ctx)
		}
		if err != nil {
			return err
		}
		out = make([]GroupView, 0, len(groups))
		for _, g := range groups {
			n, err := uow.Users.CountInGroup(ctx, g.ID)
			if err != nil {
				return err
			}
			out = append(out, GroupView{Group: g, NumStudents: n})
		}
		return nil
	})
	return out, err
}

// AssignStudent puts a student in a group. A full group rejects the student
// and the roster stays as it was.
func (s *Service) AssignStudent(ctx context.Context, groupID, studentID int64) error {
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		group, err := loadGroup(ctx, uow, "AssignStudent", groupID)
		if err != nil {
			return err
		}
		student, err := loadUser(ctx, uow, "group", "AssignStudent", studentID, database.KindStudent)
		if err != nil {
			return err
		}
		return assignStudent(ctx, uow, group, student)
	})
	if err == nil {
		s.logger.Infof("student %d assigned to group %d", studentID, groupID)
	}
	return err
}

func assignStudent(ctx context.Context, uow *database.UnitOfWork, group *database.Group, student *database.User) error {
	const op = "AssignStudent"
	if !group.Active {
		return shared.Invalid("group", op, "group %s is not active", group.Name)
	}
	if student.GroupID != nil && *student.GroupID == group.ID {
		return nil
	}

	current, err := uow.Users.CountInGroup(ctx, group.ID)
	if err != nil {
		return err
	}
	if !group.CanAdmit(current) {
		return shared.Invalid("group", op, "group %s is full (%d of %d places taken)", group.Name, current, group.MaxCapacity)
	}
	return uow.Users.SetGroup(ctx, student.ID, &group.ID)
}

func (s *Service) RemoveStudent(ctx context.Context, groupID, studentID int64) error {
	const op = "RemoveStudent"
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		group, err := loadGroup(ctx, uow, op, groupID)
		if err != nil {
			return err
		}
		student, err := loadUser(ctx, uow, "group", op, studentID, database.KindStudent)
		if err != nil {
			return err
		}
		if student.GroupID == nil || *student.GroupID != groupID {
			return shared.Invalid("group", op, "%s is not in group %s", student.FullName(), group.Name)
		}
		return uow.Users.SetGroup(ctx, studentID, nil)
	})
}

func (s *Service) AssignTeacher(ctx context.Context, groupID, teacherID int64) error {
	const op = "AssignTeacher"
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadGroup(ctx, uow, op, groupID); err != nil {
			return err
		}
		if _, err := loadUser(ctx, uow, "group", op, teacherID, database.KindTeacher); err != nil {
			return err
		}
		return uow.Groups.AddTeacher(ctx, groupID, teacherID)
	})
}

func (s *Service) DeactivateGroup(ctx context.Context, id int64) error {
	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadGroup(ctx, uow, "DeactivateGroup", id); err != nil {
			return err
		}
		_, err := uow.Groups.Update(ctx, id, database.Patch{"active": false})
		return err
	})
}

type CreateGradeInput struct {
	Name        string `json:"name" validate:"required,max=80"`
	Level       int    `json:"level" validate:"gte=0"`
	Description string `json:"description"`
}

func (s *Service) CreateGrade(ctx context.Context, in CreateGradeInput) (*database.Grade, error) {
	const op = "CreateGrade"
	if err := s.check("grade", op, in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var grade *database.Grade
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		grade, err = uow.Grades.Create(ctx, &database.Grade{Name: name, Level: in.Level, Description: in.Description})
		return uniqueViolation(err, "grade", op, "a grade named %q already exists", name)
	})
	return grade, err
}

func (s *Service) ListGrades(ctx context.Context) ([]database.Grade, error) {
	var out []database.Grade
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		out, err = uow.Grades.GetAll(ctx)
		return err
	})
	return out, err
}

// TeacherGroups lists the active groups a teacher works with.
func (s *Service) TeacherGroups(ctx context.Context, teacherID int64) ([]database.Group, error) {
	var out []database.Group
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "group", "TeacherGroups", teacherID, database.KindTeacher, database.KindDirector); err != nil {
			return err
		}
		var err error
		out, err = uow.Groups.ByTeacher(ctx, teacherID)
		return err
	})
	return out, err
}
