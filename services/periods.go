package services

import (
	"context"
	"strings"
	"time"

	"schoolRecords/database"
	"schoolRecords/shared"
)

type CreatePeriodInput struct {
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Current   bool      `json:"current"`
}

// CreatePeriod adds an academic period. When Current is set, the previous
// current period is unflagged in the same unit of work.
func (s *Service) CreatePeriod(ctx context.Context, in CreatePeriodInput) (*database.AcademicPeriod, error) {
	const op = "CreatePeriod"
	if err := s.check("period", op, in); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, shared.Invalid("period", op, "start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, shared.Invalid("period", op, "end_date must not be before start_date")
	}
	name := strings.TrimSpace(in.Name)

	var period *database.AcademicPeriod
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if in.Current {
			if err := uow.Periods.ClearCurrent(ctx); err != nil {
				return err
			}
		}
		var err error
		period, err = uow.Periods.Create(ctx, &database.AcademicPeriod{
			Name:      name,
			StartDate: in.StartDate.UTC(),
			EndDate:   in.EndDate.UTC(),
			IsCurrent: in.Current,
		})
		return uniqueViolation(err, "period", op, "a period named %q already exists", name)
	})
	return period, err
}

func (s *Service) SetCurrentPeriod(ctx context.Context, id int64) (*database.AcademicPeriod, error) {
	const op = "SetCurrentPeriod"
	var period *database.AcademicPeriod
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		if _, err := loadPeriod(ctx, uow, "period", op, id); err != nil {
			return err
		}
		if err := uow.Periods.ClearCurrent(ctx); err != nil {
			return err
		}
		var err error
		period, err = uow.Periods.Update(ctx, id, database.Patch{"is_current": true})
		return err
	})
	if err == nil {
		s.logger.Infof("period %d %q is now current", period.ID, period.Name)
	}
	return period, err
}

// CurrentPeriod fails with NotFound when no period is flagged current.
func (s *Service) CurrentPeriod(ctx context.Context) (*database.AcademicPeriod, error) {
	var period *database.AcademicPeriod
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		period, err = uow.Periods.Current(ctx)
		if err == nil && period == nil {
			err = shared.NewError("period", "CurrentPeriod", shared.ErrNotFound, "there is no current academic period")
		}
		return err
	})
	return period, err
}

func (s *Service) ListPeriods(ctx context.Context) ([]database.AcademicPeriod, error) {
	var out []database.AcademicPeriod
	err := s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		var err error
		out, err = uow.Periods.GetAll(ctx)
		return err
	})
	return out, err
}
