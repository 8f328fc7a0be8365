package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/errorz"
)

const (
	// TemplateActivation is the email template for account activation.
	TemplateActivation = "user-activation"
	// TemplatePasswordReset is the email template for password reset requests.
	TemplatePasswordReset = "password-reset"
)

// ActivationEmail is the template data for the account activation email.
type ActivationEmail struct {
	Token         string
	ActivationURL string
}

// Register registers a new user with the provided credentials. The user
// starts out inactive with a fresh activation token, and an activation
// email is queued for them.
//
// The email is queued only after the user is committed, and a delivery
// failure never rolls the registration back. The user can always ask
// for the activation email to be re-sent.
func (s *Service) Register(ctx context.Context, c Credentials) error {
	pwdHash, err := c.Password.Hash()
	if err != nil {
		return err
	}

	now := s.NowFunc()
	activation := uuid.NewString()

	user := User{
		ID:              uuid.New(),
		Email:           c.Email,
		PasswordHash:    pwdHash,
		IsActive:        false,
		ActivationToken: &activation,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		return tx.CreateUser(&user)
	})
	if err != nil {
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return ErrDuplicateUser
		}
		return err
	}

	s.sendActivation(user.Email, activation)

	return nil
}

// ResendActivation re-sends the activation email for an inactive user.
// For unknown email addresses and users that are already active it's a
// no-op: the response must not reveal whether, or in what state, an
// account exists.
func (s *Service) ResendActivation(ctx context.Context, addr email.Address) error {
	users, err := s.findUsers(ctx, &UserFilter{
		Emails: []email.Address{addr},
	})
	if err != nil {
		return err
	}

	if len(users) != 1 {
		s.logger.Debug("activation resend for unknown email", "email", addr)
		return nil
	}

	user := users[0]
	if user.IsActive || user.ActivationToken == nil {
		s.logger.Debug("activation resend for active user", "email", addr)
		return nil
	}

	s.sendActivation(user.Email, *user.ActivationToken)

	return nil
}

// Activate consumes an activation token and activates the matching
// user. A token can be consumed exactly once: unknown tokens and tokens
// that were consumed before both return errorz.ErrNotFound.
func (s *Service) Activate(ctx context.Context, activationToken string) error {
	return s.inTx(ctx, func(tx Tx) error {
		users, err := tx.FindUsers(&UserFilter{
			ActivationTokens: []string{activationToken},
			IsActive:         ptr(false),
		})
		if err != nil {
			return err
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		user := users[0]
		user.IsActive = true
		user.ActivationToken = nil
		user.UpdatedAt = s.NowFunc()

		return tx.UpdateUser(&user)
	})
}

// DeleteAccount deletes the user's record. Their session keys go with
// it, the database cascades the delete, so every outstanding refresh
// session is revoked at the same time.
//
// userID must come from a verified access token, never from request
// input.
func (s *Service) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return s.inTx(ctx, func(tx Tx) error {
		return tx.DeleteUser(userID)
	})
}

func (s *Service) sendActivation(addr email.Address, activationToken string) {
	s.emailer.Enqueue(email.Message{
		Template:  TemplateActivation,
		Recipient: addr,
		Data: ActivationEmail{
			Token:         activationToken,
			ActivationURL: s.activationURL(activationToken),
		},
	})
}

func (s *Service) activationURL(activationToken string) string {
	return fmt.Sprintf("%s/user/activate?token=%s", s.cfg.BaseURL, url.QueryEscape(activationToken))
}
