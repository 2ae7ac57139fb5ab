package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"schoolRecords/logger"
	"schoolRecords/shared"
)

// UnitOfWork is one transaction with one repository per entity type.
// Repositories are only reachable through it.
type UnitOfWork struct {
	ID string

	Users         *UserRepository
	Roles         *RoleRepository
	Permissions   *PermissionRepository
	Grades        *GradeRepository
	Groups        *GroupRepository
	Categories    *CategoryRepository
	Achievements  *AchievementRepository
	Periods       *PeriodRepository
	Evaluations   *EvaluationRepository
	ReportCards   *ReportCardRepository
	Interviews    *InterviewRepository
	Citations     *CitationRepository
	Notifications *NotificationRepository

	tx     *sqlx.Tx
	logger *logger.Logger
	done   bool
}

func newUnitOfWork(tx *sqlx.Tx, log *logger.Logger) *UnitOfWork {
	return &UnitOfWork{
		ID: uuid.NewString(),

		Users:         NewUserRepository(tx),
		Roles:         NewRoleRepository(tx),
		Permissions:   NewPermissionRepository(tx),
		Grades:        NewGradeRepository(tx),
		Groups:        NewGroupRepository(tx),
		Categories:    NewCategoryRepository(tx),
		Achievements:  NewAchievementRepository(tx),
		Periods:       NewPeriodRepository(tx),
		Evaluations:   NewEvaluationRepository(tx),
		ReportCards:   NewReportCardRepository(tx),
		Interviews:    NewInterviewRepository(tx),
		Citations:     NewCitationRepository(tx),
		Notifications: NewNotificationRepository(tx),

		tx:     tx,
		logger: log,
	}
}

func (u *UnitOfWork) Commit() error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.done = true
	if err := u.tx.Commit(); err != nil {
		return shared.Storage("uow.Commit", err)
	}
	u.logger.Debugf("uow %s committed", u.ID)
	return nil
}

// Rollback is a no-op once the unit of work has finished.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil {
		return shared.Storage("uow.Rollback", err)
	}
	u.logger.Debugf("uow %s rolled back", u.ID)
	return nil
}

// Store hands out units of work over one database handle.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

func NewStore(db *sqlx.DB, log *logger.Logger) *Store {
	return &Store{db: db, logger: log.Named("store")}
}

func (s *Store) DB() *sqlx.DB { return s.db }

type uowKey struct{}

// Begin opens a unit of work. The caller must Commit or Rollback it.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	if active, ok := ctx.Value(uowKey{}).(*UnitOfWork); ok && !active.done {
		return nil, shared.WrapError("store", "Begin", shared.ErrNestedUnitOfWork,
			"a unit of work is already active", fmt.Errorf("active uow %s", active.ID))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, shared.Storage("uow.Begin", err)
	}

	uow := newUnitOfWork(tx, s.logger)
	s.logger.Debugf("uow %s started", uow.ID)
	return uow, nil
}

// Do runs fn inside one unit of work: it commits when fn returns nil and
// rolls back when fn fails or panics. The context passed to fn carries the
// unit of work, so a nested Do on it fails with ErrNestedUnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, uow *UnitOfWork) error) error {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, uowKey{}, uow), uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.logger.Errorf("uow %s rollback failed: %v", uow.ID, rbErr)
		}
		return err
	}

	return uow.Commit()
}
