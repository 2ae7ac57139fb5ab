package services

import (
	"context"
	"strings"

	"schoolRecords/database"
	"schoolRecords/shared"
)

// ImportReport counts what an import did.
type ImportReport struct {
	Created int
	Updated int
}

// ImportStudents reads a students CSV and puts every row in groupID. Rows
// whose email already exists update that student. Everything runs in one
// unit of work: a bad row or a full group imports nothing.
func (s *Service) ImportStudents(ctx context.Context, filePath string, groupID int64) (*ImportReport, error) {
	records, err := readImportFile(filePath, FileTypeStudents)
	if err != nil {
		return nil, err
	}

	var report ImportReport
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		group, err := loadGroup(ctx, uow, "ImportStudents", groupID)
		if err != nil {
			return err
		}

		for i := 1; i < len(records); i++ {
			record := records[i]

			in := RegisterUserInput{
				Kind:           string(database.KindStudent),
				DocumentType:   record[0],
				DocumentNumber: record[1],
				LastName:       record[2],
				FirstName:      record[3],
				Email:          strings.TrimSpace(record[4]),
			}
			student, created, err := s.createOrUpdate(ctx, uow, in)
			if err != nil {
				return rowError(i+1, err)
			}

			if err := assignStudent(ctx, uow, group, student); err != nil {
				return rowError(i+1, err)
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("imported students into group %d: %d created, %d updated", groupID, report.Created, report.Updated)
	return &report, nil
}

// ImportTeachers reads a teachers CSV in one unit of work.
func (s *Service) ImportTeachers(ctx context.Context, filePath string) (*ImportReport, error) {
	records, err := readImportFile(filePath, FileTypeTeachers)
	if err != nil {
		return nil, err
	}

	var report ImportReport
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		for i := 1; i < len(records); i++ {
			record := records[i]

			in := RegisterUserInput{
				Kind:           string(database.KindTeacher),
				DocumentType:   record[0],
				DocumentNumber: record[1],
				LastName:       record[2],
				FirstName:      record[3],
				Email:          strings.TrimSpace(record[4]),
				Profile: database.Profile{Teacher: &database.TeacherProfile{
					Specialty: strings.TrimSpace(record[5]),
				}},
			}
			_, created, err := s.createOrUpdate(ctx, uow, in)
			if err != nil {
				return rowError(i+1, err)
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("imported teachers: %d created, %d updated", report.Created, report.Updated)
	return &report, nil
}

// createOrUpdate registers the row's user, or reuses the existing user with
// the same email and kind. Teachers get their specialty refreshed.
func (s *Service) createOrUpdate(ctx context.Context, uow *database.UnitOfWork, in RegisterUserInput) (*database.User, bool, error) {
	const op = "Import"
	if err := s.check("import", op, in); err != nil {
		return nil, false, err
	}
	kind := database.Kind(in.Kind)

	existing, err := uow.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		u, err := s.registerUser(ctx, uow, in, kind, "")
		return u, err == nil, err
	}

	if existing.Kind != kind {
		return nil, false, shared.Invalid("import", op, "%s is already registered as a %s", existing.Email, existing.Kind)
	}
	if in.Profile.Teacher != nil && existing.Profile.Teacher != nil {
		profile := existing.Profile
		tp := *profile.Teacher
		tp.Specialty = in.Profile.Teacher.Specialty
		profile.Teacher = &tp
		if existing, err = uow.Users.Update(ctx, existing.ID, database.Patch{"profile": profile}); err != nil {
			return nil, false, err
		}
	}
	return existing, false, nil
}
