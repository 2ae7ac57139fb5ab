// Package services holds the application operations. Every operation runs
// in exactly one unit of work; PDF rendering and email delivery happen after
// it has closed.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/notify"
	"schoolRecords/reports"
	"schoolRecords/shared"
)

type Service struct {
	store    *database.Store
	hasher   *auth.Hasher
	reports  *reports.Writer
	notifier notify.Notifier
	validate *validator.Validate
	logger   *logger.Logger
	now      func() time.Time
}

func New(store *database.Store, hasher *auth.Hasher, writer *reports.Writer, notifier notify.Notifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		reports:  writer,
		notifier: notifier,
		validate: newValidator(),
		logger:   log.Named("services"),
		now:      time.Now,
	}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// loadUser returns user id, failing with NotFound when it is absent and with
// a validation failure when its kind is not one of kinds.
func loadUser(ctx context.Context, uow *database.UnitOfWork, domain, op string, id int64, kinds ...database.Kind) (*database.User, error) {
	u, err := uow.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, shared.NotFound(domain, op, "user", id)
	}
	if len(kinds) == 0 {
		return u, nil
	}
	for _, k := range kinds {
		if u.Kind == k {
			return u, nil
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return nil, shared.Invalid(domain, op, "%s is a %s, expected %s", u.FullName(), u.Kind, strings.Join(names, " or "))
}

func loadGroup(ctx context.Context, uow *database.UnitOfWork, op string, id int64) (*database.Group, error) {
	g, err := uow.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, shared.NotFound("group", op, "group", id)
	}
	return g, nil
}

func loadPeriod(ctx context.Context, uow *database.UnitOfWork, domain, op string, id int64) (*database.AcademicPeriod, error) {
	p, err := uow.Periods.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, shared.NotFound(domain, op, "academic period", id)
	}
	return p, nil
}

// uniqueViolation turns a UNIQUE constraint error into a validation failure
// and leaves every other error alone.
func uniqueViolation(err error, domain, op, format string, args ...any) error {
	if database.IsUniqueViolation(err) {
		return shared.Invalid(domain, op, format, args...)
	}
	return err
}
