package auth

import (
	"context"
	"fmt"
	"time"

	"schoolRecords/database"
	"schoolRecords/logger"
	"schoolRecords/shared"
)

const msgInvalidCredentials = "invalid email or password"

// Session is the outcome of a successful authentication.
type Session struct {
	User      database.User
	Role      Role
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	store     *database.Store
	attempts  AttemptStore
	hasher    *Hasher
	tokens    *TokenIssuer
	logger    *logger.Logger
	now       func() time.Time
	dummyHash string
}

// NewService wires the authentication service. tokens may be nil, in which
// case sessions carry no token.
func NewService(store *database.Store, attempts AttemptStore, hasher *Hasher, tokens *TokenIssuer, log *logger.Logger) (*Service, error) {
	// Unknown usernames are compared against this hash so both failure paths
	// cost one bcrypt comparison.
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &Service{
		store:     store,
		attempts:  attempts,
		hasher:    hasher,
		tokens:    tokens,
		logger:    log.Named("auth"),
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// WithClock replaces the time source used for lock checks and last-login
// stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Hasher() *Hasher { return s.hasher }

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Authenticate checks username (the account email) and password. Failures
// are counted per username; the error kinds are ErrAccountLocked,
// ErrInvalidCredentials, ErrAccountDisabled and ErrStorage.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	const op = "Authenticate"
	key := database.NormalizeEmail(username)

	st, err := s.attempts.Status(ctx, key)
	if err != nil {
		return nil, shared.WrapError("auth", op, shared.ErrStorage, "lockout state unavailable", err)
	}
	if now := s.now(); st.Locked(now) {
		s.logger.Warnf("login refused for %s: locked for %s", key, st.Remaining(now).Round(time.Second))
		return nil, shared.NewError("auth", op, shared.ErrAccountLocked,
			fmt.Sprintf("the account is locked, try again in %s", st.Remaining(now).Round(time.Second)))
	}

	var session *Session
	err = s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		user, err := uow.Users.GetByEmail(ctx, key)
		if err != nil {
			return err
		}

		if user == nil {
			s.hasher.Matches(s.dummyHash, password)
			return s.failure(ctx, key)
		}

		if !user.Active {
			if _, err := s.attempts.RecordFailure(ctx, key); err != nil {
				return shared.WrapError("auth", op, shared.ErrStorage, "lockout state unavailable", err)
			}
			return shared.NewError("auth", op, shared.ErrAccountDisabled, "the account is disabled")
		}

		if !s.hasher.Matches(user.PasswordHash, password) {
			return s.failure(ctx, key)
		}

		role, err := s.roleOf(ctx, uow, user)
		if err != nil {
			return err
		}

		at := s.now().UTC()
		if err := uow.Users.TouchLastLogin(ctx, user.ID, at); err != nil {
			return err
		}
		user.LastLogin = &at

		session = &Session{User: *user, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.attempts.Reset(ctx, key); err != nil {
		s.logger.Errorf("reset lockout counter for %s: %v", key, err)
	}

	if s.tokens != nil {
		token, exp, err := s.tokens.Issue(session.User.ID, session.User.Email, session.Role)
		if err != nil {
			return nil, shared.WrapError("auth", op, shared.ErrStorage, "could not open a session", err)
		}
		session.Token, session.ExpiresAt = token, exp
	}

	s.logger.Infof("user %d (%s) logged in as %s", session.User.ID, key, session.Role)
	return session, nil
}

// failure records a failed attempt and builds the InvalidCredentials error.
// Unknown usernames and wrong passwords produce the same message.
func (s *Service) failure(ctx context.Context, key string) error {
	st, err := s.attempts.RecordFailure(ctx, key)
	if err != nil {
		return shared.WrapError("auth", "Authenticate", shared.ErrStorage, "lockout state unavailable", err)
	}

	now := s.now()
	if st.Locked(now) {
		s.logger.Warnf("locking %s after %d failed attempts", key, st.Failures)
		return shared.NewError("auth", "Authenticate", shared.ErrInvalidCredentials,
			fmt.Sprintf("%s; the account is now locked for %s", msgInvalidCredentials, st.Remaining(now).Round(time.Second)))
	}

	left := s.attempts.Policy().MaxFailures - st.Failures
	s.logger.Infof("failed login for %s (%d attempts left)", key, left)
	return shared.NewError("auth", "Authenticate", shared.ErrInvalidCredentials,
		fmt.Sprintf("%s (%d attempts left)", msgInvalidCredentials, left))
}

func (s *Service) roleOf(ctx context.Context, uow *database.UnitOfWork, user *database.User) (Role, error) {
	if user.RoleID == nil {
		return RoleObserver, nil
	}
	role, err := uow.Roles.GetByID(ctx, *user.RoleID)
	if err != nil {
		return "", err
	}
	if role == nil {
		return RoleObserver, nil
	}
	return ResolveRole(role.Name), nil
}
