package services

import (
	"context"
	"strings"

	"schoolRecords/database"
	"schoolRecords/shared"
)

type CreateCategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

func (s *Service) CreateCategory(ctx context.Context, in CreateCategoryInput) (*database.Category, error) {
	const op = "CreateCategory"
	if err := s.check("category", op, in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var category *database.Category
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		category, err = uow.Categories.Create(ctx, &database.Category{Name: name, Description: in.Description})
		return uniqueViolation(err, "category", op, "a category named %q already exists", name)
	})
	return category, err
}

type CreateAchievementInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	CategoryID  *int64 `json:"category_id"`
	CreatorID   *int64 `json:"creator_id"`
	// Status defaults to active.
	Status string `json:"status" validate:"omitempty,oneof=draft active archived"`
}

func (s *Service) CreateAchievement(ctx context.Context, in CreateAchievementInput) (*database.Achievement, error) {
	const op = "CreateAchievement"
	if err := s.check("achievement", op, in); err != nil {
		return nil, err
	}
	status := database.AchievementActive
	if in.Status != "" {
		status = database.AchievementStatus(in.Status)
	}

	var achievement *database.Achievement
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if in.CategoryID != nil {
			c, err := uow.Categories.GetByID(ctx, *in.CategoryID)
			if err != nil {
				return err
			}
			if c == nil {
				return shared.NotFound("achievement", op, "category", *in.CategoryID)
			}
		}
		if in.CreatorID != nil {
			if _, err := loadUser(ctx, uow, "achievement", op, *in.CreatorID, database.KindDirector, database.KindAdmin); err != nil {
				return err
			}
		}

		var err error
		achievement, err = uow.Achievements.Create(ctx, &database.Achievement{
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			CreatedAt:   s.clock(),
			CreatedByID: in.CreatorID,
			Status:      status,
			CategoryID:  in.CategoryID,
		})
		return err
	})
	return achievement, err
}

func (s *Service) SetAchievementStatus(ctx context.Context, id int64, status string) (*database.Achievement, error) {
	const op = "SetAchievementStatus"
	st := database.AchievementStatus(strings.ToLower(strings.TrimSpace(status)))
	if !st.Valid() {
		return nil, shared.Invalid("achievement", op, "status %q is not one of draft, active, archived", status)
	}

	var achievement *database.Achievement
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		achievement, err = uow.Achievements.Update(ctx, id, database.Patch{"status": st})
		if err == nil && achievement == nil {
			err = shared.NotFound("achievement", op, "achievement", id)
		}
		return err
	})
	return achievement, err
}

func (s *Service) ListAchievements(ctx context.Context, categoryID *int64) ([]database.Achievement, error) {
	var out []database.Achievement
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		if categoryID != nil {
			out, err = uow.Achievements.ByCategory(ctx, *categoryID)
		} else {
			out, err = uow.Achievements.ByStatus(ctx, database.AchievementActive)
		}
		return err
	})
	return out, err
}

type EvaluateInput struct {
	AchievementID int64  `json:"achievement_id" validate:"required"`
	StudentID     int64  `json:"student_id" validate:"required"`
	TeacherID     int64  `json:"teacher_id" validate:"required"`
	PeriodID      int64  `json:"period_id" validate:"required"`
	Score         string `json:"score" validate:"required"`
	Comments      string `json:"comments"`
}

// Evaluate records the score of a student on an achievement for a period.
// Grading the same triple again replaces the earlier score.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) (*database.Evaluation, error) {
	const op = "Evaluate"
	if err := s.check("evaluation", op, in); err != nil {
		return nil, err
	}
	score, err := database.ParseScore(in.Score)
	if err != nil {
		return nil, shared.Invalid("evaluation", op, "%v", err)
	}

	var evaluation *database.Evaluation
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadPeriod(ctx, uow, "evaluation", op, in.PeriodID); err != nil {
			return err
		}
		achievement, err := uow.Achievements.GetByID(ctx, in.AchievementID)
		if err != nil {
			return err
		}
		if achievement == nil {
			return shared.NotFound("evaluation", op, "achievement", in.AchievementID)
		}
		if achievement.Status != database.AchievementActive {
			return shared.Invalid("evaluation", op, "achievement %q is %s and cannot be evaluated", achievement.Title, achievement.Status)
		}
		if _, err := loadUser(ctx, uow, "evaluation", op, in.StudentID, database.KindStudent); err != nil {
			return err
		}
		if _, err := loadUser(ctx, uow, "evaluation", op, in.TeacherID, database.KindTeacher, database.KindDirector); err != nil {
			return err
		}

		existing, err := uow.Evaluations.Find(ctx, in.AchievementID, in.StudentID, in.PeriodID)
		if err != nil {
			return err
		}
		if existing != nil {
			evaluation, err = uow.Evaluations.Update(ctx, existing.ID, database.Patch{
				"score":        score,
				"comments":     in.Comments,
				"teacher_id":   in.TeacherID,
				"evaluated_at": s.clock(),
			})
			return err
		}

		evaluation, err = uow.Evaluations.Create(ctx, &database.Evaluation{
			AchievementID: in.AchievementID,
			StudentID:     in.StudentID,
			TeacherID:     in.TeacherID,
			PeriodID:      in.PeriodID,
			Score:         score,
			Comments:      in.Comments,
			EvaluatedAt:   s.clock(),
		})
		return err
	})
	return evaluation, err
}
