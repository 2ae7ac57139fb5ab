package services

import (
	"context"

	"schoolRecords/database"
	"schoolRecords/reports"
	"schoolRecords/shared"
)

type ReportCardResult struct {
	ReportCard  database.ReportCard
	Evaluations int
	Path        string
}

// GenerateReportCard builds (or rebuilds) the report card of a student for
// a period, attaches the period's evaluations to it and writes the PDF once
// the unit of work has committed.
func (s *Service) GenerateReportCard(ctx context.Context, studentID, periodID, teacherID int64, observations string) (*ReportCardResult, error) {
	const op = "GenerateReportCard"

	var (
		card *database.ReportCard
		data reports.ReportCardData
		n    int64
	)
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		student, err := loadUser(ctx, uow, "report_card", op, studentID, database.KindStudent)
		if err != nil {
			return err
		}
		period, err := loadPeriod(ctx, uow, "report_card", op, periodID)
		if err != nil {
			return err
		}
		teacher, err := loadUser(ctx, uow, "report_card", op, teacherID, database.KindTeacher, database.KindDirector)
		if err != nil {
			return err
		}

		now := s.clock()
		existing, err := uow.ReportCards.ByStudentAndPeriod(ctx, studentID, periodID)
		if err != nil {
			return err
		}
		if existing != nil {
			card, err = uow.ReportCards.Update(ctx, existing.ID, database.Patch{
				"teacher_id":   teacherID,
				"generated_at": now,
				"observations": observations,
			})
		} else {
			card, err = uow.ReportCards.Create(ctx, &database.ReportCard{
				StudentID:    studentID,
				PeriodID:     periodID,
				TeacherID:    teacherID,
				GeneratedAt:  now,
				Observations: observations,
			})
		}
		if err != nil {
			return err
		}

		if n, err = uow.Evaluations.AttachToReportCard(ctx, card.ID, studentID, periodID); err != nil {
			return err
		}
		evaluations, err := uow.Evaluations.ByReportCard(ctx, card.ID)
		if err != nil {
			return err
		}
		rows, err := evaluationRows(ctx, uow, evaluations)
		if err != nil {
			return err
		}

		data = reports.ReportCardData{
			StudentID:      student.ID,
			StudentName:    student.FullName(),
			DocumentNumber: student.DocumentNumber,
			GroupName:      groupName(ctx, uow, student.GroupID),
			PeriodName:     period.Name,
			TeacherName:    teacher.FullName(),
			GeneratedAt:    now,
			Observations:   observations,
			Rows:           rows,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	path, err := s.reports.ReportCard(data)
	if err != nil {
		return nil, shared.WrapError("report_card", op, shared.ErrStorage, "the report card PDF could not be written", err)
	}
	s.logger.Infof("report card %d for student %d: %d evaluations", card.ID, studentID, n)
	return &ReportCardResult{ReportCard: *card, Evaluations: int(n), Path: path}, nil
}

func evaluationRows(ctx context.Context, uow *database.UnitOfWork, evaluations []database.Evaluation) ([]reports.EvaluationRow, error) {
	categories := map[int64]string{}
	rows := make([]reports.EvaluationRow, 0, len(evaluations))
	for _, ev := range evaluations {
		a, err := uow.Achievements.GetByID(ctx, ev.AchievementID)
		if err != nil {
			return nil, err
		}
		row := reports.EvaluationRow{Score: string(ev.Score), Comments: ev.Comments}
		if a == nil {
			rows = append(rows, row)
			continue
		}
		row.Achievement = a.Title
		if a.CategoryID != nil {
			name, ok := categories[*a.CategoryID]
			if !ok {
				c, err := uow.Categories.GetByID(ctx, *a.CategoryID)
				if err != nil {
					return nil, err
				}
				if c != nil {
					name = c.Name
				}
				categories[*a.CategoryID] = name
			}
			row.Category = name
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// groupName is best effort: a missing group renders as an empty cell.
func groupName(ctx context.Context, uow *database.UnitOfWork, id *int64) string {
	if id == nil {
		return ""
	}
	g, err := uow.Groups.GetByID(ctx, *id)
	if err != nil || g == nil {
		return ""
	}
	return g.Name
}

// GroupRoster writes the student list of a group and returns the PDF path.
func (s *Service) GroupRoster(ctx context.Context, groupID int64) (string, error) {
	const op = "GroupRoster"

	var data reports.RosterData
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		group, err := loadGroup(ctx, uow, op, groupID)
		if err != nil {
			return err
		}
		students, err := uow.Users.StudentsInGroup(ctx, groupID)
		if err != nil {
			return err
		}

		data = reports.RosterData{GroupName: group.Name, MaxCapacity: group.MaxCapacity}
		if group.GradeID != nil {
			grade, err := uow.Grades.GetByID(ctx, *group.GradeID)
			if err != nil {
				return err
			}
			if grade != nil {
				data.GradeName = grade.Name
			}
		}
		if group.DirectorID != nil {
			director, err := uow.Users.GetByID(ctx, *group.DirectorID)
			if err != nil {
				return err
			}
			if director != nil {
				data.DirectorName = director.FullName()
			}
		}
		for _, st := range students {
			data.Students = append(data.Students, reports.RosterRow{
				Name:     st.LastName + " " + st.FirstName,
				Document: st.DocumentType + " " + st.DocumentNumber,
				Email:    st.Email,
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	path, err := s.reports.GroupRoster(data)
	if err != nil {
		return "", shared.WrapError("group", op, shared.ErrStorage, "the roster PDF could not be written", err)
	}
	return path, nil
}

// AchievementHistory writes every evaluation of a student and returns the
// PDF path.
func (s *Service) AchievementHistory(ctx context.Context, studentID int64) (string, error) {
	const op = "AchievementHistory"

	var data reports.HistoryData
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		student, err := loadUser(ctx, uow, "report_card", op, studentID, database.KindStudent)
		if err != nil {
			return err
		}
		evaluations, err := uow.Evaluations.ByStudent(ctx, studentID)
		if err != nil {
			return err
		}

		periods := map[int64]string{}
		data.StudentID = student.ID
		data.StudentName = student.FullName()
		for _, ev := range evaluations {
			name, ok := periods[ev.PeriodID]
			if !ok {
				p, err := uow.Periods.GetByID(ctx, ev.PeriodID)
				if err != nil {
					return err
				}
				if p != nil {
					name = p.Name
				}
				periods[ev.PeriodID] = name
			}
			title := ""
			a, err := uow.Achievements.GetByID(ctx, ev.AchievementID)
			if err != nil {
				return err
			}
			if a != nil {
				title = a.Title
			}
			data.Rows = append(data.Rows, reports.HistoryRow{
				Period:      name,
				Achievement: title,
				Score:       string(ev.Score),
				EvaluatedAt: ev.EvaluatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	path, err := s.reports.AchievementHistory(data)
	if err != nil {
		return "", shared.WrapError("report_card", op, shared.ErrStorage, "the history PDF could not be written", err)
	}
	return path, nil
}

// StudentEvaluations returns the evaluations of a student in a period, in
// the shape the report card prints them.
func (s *Service) StudentEvaluations(ctx context.Context, studentID, periodID int64) ([]reports.EvaluationRow, error) {
	const op = "StudentEvaluations"

	var rows []reports.EvaluationRow
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadUser(ctx, uow, "evaluation", op, studentID, database.KindStudent); err != nil {
			return err
		}
		if _, err := loadPeriod(ctx, uow, "evaluation", op, periodID); err != nil {
			return err
		}
		evaluations, err := uow.Evaluations.ByStudentAndPeriod(ctx, studentID, periodID)
		if err != nil {
			return err
		}
		rows, err = evaluationRows(ctx, uow, evaluations)
		return err
	})
	return rows, err
}
