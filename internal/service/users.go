// Package service provides user registration and authentication business
// logic, delegating persistence to a UserRepository and breach lookups to a
// breach.Checker.
package service

import (
	"context"
	"time"

	"github.com/atinyakov/GateKeeper/internal/breach"
	"github.com/atinyakov/GateKeeper/internal/metrics"
	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Outcomes of Register and Authenticate. Each maps to one HTTP status.
var (
	// ErrDuplicateUser is returned when the username is already registered.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrBreachedPassword is returned when the password appears in a breach corpus.
	ErrBreachedPassword = errors.New("password leaked in a data breach")
	// ErrRegistrationFailed is returned when the user could not be persisted.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrUnknownUser is returned when authenticating a username that is not registered.
	ErrUnknownUser = errors.New("user not found")
	// ErrInvalidCredentials is returned when the username exists but the password does not match.
	ErrInvalidCredentials = errors.New("password is incorrect")
)

// UserRepository defines the persistence operations
// required by the user service.
type UserRepository interface {
	// Exists returns true if a user with the given username exists.
	Exists(ctx context.Context, username string) (bool, error)
	// Get returns the user matching both username and password, or nil if none does.
	Get(ctx context.Context, username, password string) (*models.User, error)
	// Add persists a new user.
	Add(ctx context.Context, user models.User) error
	// Delete removes the user with the given username; absent users are not an error.
	Delete(ctx context.Context, username string) error
	// GetAll lists all users.
	GetAll(ctx context.Context) ([]models.User, error)
}

// UserService implements registration and authentication rules on top of
// a UserRepository and a breach.Checker.
type UserService struct {
	repo    UserRepository
	checker breach.Checker
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewUserService constructs a UserService. log may be nil; m may be nil to
// disable metrics.
func NewUserService(repo UserRepository, checker breach.Checker, log *zap.Logger, m *metrics.Metrics) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{repo: repo, checker: checker, log: log, metrics: m}
}

// Exists reports whether username is registered.
func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, username)
}

// PasswordLeaked asks the breach checker whether password is compromised.
func (s *UserService) PasswordLeaked(ctx context.Context, password string) (bool, error) {
	start := time.Now()
	leaked, err := s.checker.Leaked(ctx, password)
	switch {
	case err != nil:
		s.metrics.BreachCheck("error", time.Since(start))
		return false, errors.Wrap(err, "breach check")
	case leaked:
		s.metrics.BreachCheck("leaked", time.Since(start))
	default:
		s.metrics.BreachCheck("clean", time.Since(start))
	}
	return leaked, nil
}

// Add persists user and reports whether it succeeded. The cause of a
// failure is logged and not returned.
func (s *UserService) Add(ctx context.Context, user models.User) bool {
	if err := s.repo.Add(ctx, user); err != nil {
		s.log.Error("failed to add user", zap.String("username", user.Username), zap.Error(err))
		return false
	}
	return true
}

// Get returns the user matching username and password, or nil.
func (s *UserService) Get(ctx context.Context, username, password string) (*models.User, error) {
	return s.repo.Get(ctx, username, password)
}

// GetAll lists every registered user.
func (s *UserService) GetAll(ctx context.Context) ([]models.User, error) {
	return s.repo.GetAll(ctx)
}

// Delete removes username. It is a no-op for unknown users.
func (s *UserService) Delete(ctx context.Context, username string) error {
	return s.repo.Delete(ctx, username)
}

// Register adds user unless the username is taken or, when leakChecked is
// false, the password is found in a breach corpus. A caller that already
// checked the password sets leakChecked to skip the second lookup.
//
// The returned error is nil or one of ErrDuplicateUser, ErrBreachedPassword
// and ErrRegistrationFailed.
func (s *UserService) Register(ctx context.Context, user models.User, leakChecked bool) error {
	exists, err := s.Exists(ctx, user.Username)
	if err != nil {
		s.log.Error("existence check failed", zap.String("username", user.Username), zap.Error(err))
		s.metrics.Registration("failed")
		return ErrRegistrationFailed
	}
	if exists {
		s.log.Debug("duplicate registration", zap.String("username", user.Username))
		s.metrics.Registration("duplicate")
		return ErrDuplicateUser
	}

	if !leakChecked {
		leaked, err := s.PasswordLeaked(ctx, user.Password)
		if err != nil {
			s.log.Error("breach check failed", zap.String("username", user.Username), zap.Error(err))
			s.metrics.Registration("failed")
			return ErrRegistrationFailed
		}
		if leaked {
			s.log.Warn("rejected breached password", zap.String("username", user.Username))
			s.metrics.Registration("breached")
			return ErrBreachedPassword
		}
	}

	if !s.Add(ctx, user) {
		s.metrics.Registration("failed")
		return ErrRegistrationFailed
	}
	s.metrics.Registration("success")
	return nil
}

// Authenticate returns the stored user matching candidate's credentials.
// It fails with ErrUnknownUser or ErrInvalidCredentials; any other error
// comes from the repository.
func (s *UserService) Authenticate(ctx context.Context, candidate models.User) (*models.User, error) {
	exists, err := s.Exists(ctx, candidate.Username)
	if err != nil {
		s.metrics.Authentication("error")
		return nil, errors.Wrap(err, "existence check")
	}
	if !exists {
		s.metrics.Authentication("unknown_user")
		return nil, ErrUnknownUser
	}

	user, err := s.Get(ctx, candidate.Username, candidate.Password)
	if err != nil {
		s.metrics.Authentication("error")
		return nil, errors.Wrap(err, "credential lookup")
	}
	if user == nil {
		s.log.Debug("invalid credentials", zap.String("username", candidate.Username))
		s.metrics.Authentication("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	s.metrics.Authentication("success")
	return user, nil
}
