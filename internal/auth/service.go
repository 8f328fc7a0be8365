package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/token"
)

var (
	// ErrDuplicateUser indicates the email address is already registered.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrInvalidCredentials indicates the email/password combination
	// did not check out. Deliberately doesn't say which of the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserGone indicates a token verified fine but the user it was
	// issued for no longer exists.
	ErrUserGone = errors.New("user no longer exists")
)

// Emailer queues outbound email for delivery.
type Emailer interface {
	Enqueue(msg email.Message)
}

// Credentials couple an email address to a password.
type Credentials struct {
	Email    email.Address `json:"email"`
	Password Password      `json:"password"`
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// BaseURL is the public URL of the app. It's used to build the
	// links embedded in activation and password reset emails.
	BaseURL string
}

// Service provides the main rules for the credential lifecycle:
// registration, activation, login, token refresh, password reset and
// account deletion.
type Service struct {
	store   Store
	tokens  *token.Service
	emailer Emailer
	logger  *slog.Logger
	cfg     ServiceConfig

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash BcryptHash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(store Store, tokens *token.Service, emailer Emailer, logger *slog.Logger, cfg ServiceConfig) (*Service, error) {
	// Hash a throwaway password once so failed lookups can burn the
	// same amount of CPU as a real comparison. Without this, response
	// times would leak which email addresses are registered.
	pwd, err := ParsePassword(uuid.NewString())
	if err != nil {
		return nil, err
	}

	hash, err := pwd.Hash()
	if err != nil {
		return nil, err
	}

	return &Service{
		store:          store,
		tokens:         tokens,
		emailer:        emailer,
		logger:         logger,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

// findUsers runs a read-only user query in its own transaction.
func (s *Service) findUsers(ctx context.Context, filter *UserFilter) ([]User, error) {
	var users []User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		users, txErr = tx.FindUsers(filter)
		return txErr
	})
	return users, err
}

func ptr[T any](v T) *T {
	return &v
}
