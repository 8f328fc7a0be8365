package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/errorz"
	"github.com/jornfrank/gatehouse/internal/token"
)

// Session is the result of a successful login: the token pair plus the
// identity they were issued for. The web layer turns the refresh token
// into a cookie.
type Session struct {
	User         token.UserInfo
	AccessToken  string
	RefreshToken string
}

// PasswordResetEmail is the template data for the password reset email.
type PasswordResetEmail struct {
	UserID   uuid.UUID
	Token    string
	ResetURL string
}

// Login verifies the provided credentials and starts a new refresh
// session. The password is always compared against a hash before any
// token is issued: a wrong password or unknown email both yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, c Credentials, userAgent string) (Session, error) {
	users, err := s.findUsers(ctx, &UserFilter{
		Emails: []email.Address{c.Email},
	})
	if err != nil {
		return Session{}, err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent
		// timing differences that could result in user enumeration
		// attacks.
		_ = c.Password.Match(s.comparisonHash)
		return Session{}, ErrInvalidCredentials
	}

	user := users[0]
	if !c.Password.Match(user.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	info := token.UserInfo{ID: user.ID, Email: user.Email}

	accessToken, err := s.tokens.IssueAccess(info)
	if err != nil {
		return Session{}, err
	}

	refreshToken, err := s.tokens.IssueRefresh(user.Email)
	if err != nil {
		return Session{}, err
	}

	key := SessionKey{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserAgent: userAgent,
		IssuedAt:  s.NowFunc(),
	}

	err = s.inTx(ctx, func(tx Tx) error {
		return tx.CreateSessionKey(&key)
	})
	if err != nil {
		return Session{}, err
	}

	return Session{
		User:         info,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshAccess mints a new access token for the holder of a valid
// refresh token. Verification failures surface as token errors (the
// boundary maps them to 403), a token whose user has since been
// deleted yields ErrUserGone (401).
//
// The refresh token itself is not rotated on this path.
func (s *Service) RefreshAccess(ctx context.Context, rawRefresh string) (string, error) {
	addr, err := s.tokens.VerifyRefresh(rawRefresh)
	if err != nil {
		return "", err
	}

	users, err := s.findUsers(ctx, &UserFilter{
		Emails: []email.Address{addr},
	})
	if err != nil {
		return "", err
	}

	if len(users) != 1 {
		return "", ErrUserGone
	}

	user := users[0]

	return s.tokens.IssueAccess(token.UserInfo{ID: user.ID, Email: user.Email})
}

// RequestPasswordReset queues a password reset email. The reset token
// is signed with a secret derived from the user's current password
// hash, so it stops verifying the moment the password changes.
//
// Unknown email addresses get a silent no-op, the response must not
// reveal whether an account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, addr email.Address) error {
	users, err := s.findUsers(ctx, &UserFilter{
		Emails: []email.Address{addr},
	})
	if err != nil {
		return err
	}

	if len(users) != 1 {
		s.logger.Debug("password reset request for unknown email", "email", addr)
		return nil
	}

	user := users[0]

	resetToken, err := s.tokens.IssueReset(
		token.UserInfo{ID: user.ID, Email: user.Email},
		user.PasswordHash.String(),
	)
	if err != nil {
		return err
	}

	s.emailer.Enqueue(email.Message{
		Template:  TemplatePasswordReset,
		Recipient: user.Email,
		Data: PasswordResetEmail{
			UserID:   user.ID,
			Token:    resetToken,
			ResetURL: s.resetURL(user.ID, resetToken),
		},
	})

	return nil
}

// ChangePassword sets a new password for the user after verifying the
// reset token against the user's current password hash. On success the
// new hash is stored and every session key of the user is deleted in
// the same transaction: the reset token and all prior refresh sessions
// become invalid atomically.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, rawToken string, newPassword Password) error {
	newHash, err := newPassword.Hash()
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		users, err := tx.FindUsers(&UserFilter{
			IDs: []uuid.UUID{userID},
		})
		if err != nil {
			return err
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		user := users[0]

		// Verify against the hash from the live record, this is what
		// invalidates reset tokens issued before a password change.
		if _, err := s.tokens.VerifyReset(rawToken, user.PasswordHash.String()); err != nil {
			return err
		}

		user.PasswordHash = newHash
		user.UpdatedAt = s.NowFunc()

		if err := tx.UpdateUser(&user); err != nil {
			return err
		}

		return tx.DeleteSessionKeys(&SessionKeyFilter{
			UserIDs: []uuid.UUID{user.ID},
		})
	})
}

func (s *Service) resetURL(userID uuid.UUID, resetToken string) string {
	return fmt.Sprintf("%s/user/change-password?id=%s&token=%s",
		s.cfg.BaseURL, userID, url.QueryEscape(resetToken))
}
