// Package token issues and verifies the signed tokens used by the auth
// flows: short-lived access tokens, long-lived refresh tokens and
// password reset tokens.
//
// Each kind is signed with its own key material. The reset secret is
// special: it's the access secret concatenated with the user's current
// password hash. Changing the password changes the secret, which makes
// every outstanding reset token invalid without any bookkeeping.
//
// Activation tokens are not handled here, they are opaque identifiers
// stored on the user record.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/krypto"
)

var (
	// ErrMissingSecret indicates the service was constructed without
	// signing keys. This is a deployment mistake, callers are expected
	// to fail startup on it.
	ErrMissingSecret = errors.New("missing signing secret")

	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

// Config is the configuration for the token service.
type Config struct {
	// AccessSecret signs access tokens and is one half of the reset
	// token secret.
	AccessSecret krypto.Secret
	// RefreshSecret signs refresh tokens.
	RefreshSecret krypto.Secret

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// UserInfo is the identity payload embedded in access and reset tokens.
type UserInfo struct {
	ID    uuid.UUID     `json:"id"`
	Email email.Address `json:"email"`
}

// AccessClaims are the claims of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserInfo UserInfo `json:"UserInfo"`
}

// RefreshClaims are the claims of a refresh token.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email email.Address `json:"email"`
}

// ResetClaims are the claims of a password reset token.
type ResetClaims struct {
	jwt.RegisteredClaims
	UserInfo UserInfo `json:"UserInfo"`
}

// Service issues and verifies tokens. It is stateless and safe for
// concurrent use.
type Service struct {
	cfg Config

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.AccessSecret.IsZero() || cfg.RefreshSecret.IsZero() {
		return nil, ErrMissingSecret
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 10 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 10 * time.Minute
	}

	return &Service{
		cfg:     cfg,
		NowFunc: time.Now,
	}, nil
}

// IssueAccess issues an access token for the given identity.
func (s *Service) IssueAccess(user UserInfo) (string, error) {
	return s.sign(&AccessClaims{
		RegisteredClaims: s.registered(s.cfg.AccessTTL),
		UserInfo:         user,
	}, s.cfg.AccessSecret.SecretValue())
}

// VerifyAccess verifies an access token and returns the identity it
// was issued for.
func (s *Service) VerifyAccess(raw string) (UserInfo, error) {
	var claims AccessClaims
	if err := s.verify(raw, &claims, s.cfg.AccessSecret.SecretValue()); err != nil {
		return UserInfo{}, err
	}

	return claims.UserInfo, nil
}

// IssueRefresh issues a refresh token for the given email address.
func (s *Service) IssueRefresh(addr email.Address) (string, error) {
	return s.sign(&RefreshClaims{
		RegisteredClaims: s.registered(s.cfg.RefreshTTL),
		Email:            addr,
	}, s.cfg.RefreshSecret.SecretValue())
}

// VerifyRefresh verifies a refresh token and returns the email address
// it was issued for.
func (s *Service) VerifyRefresh(raw string) (email.Address, error) {
	var claims RefreshClaims
	if err := s.verify(raw, &claims, s.cfg.RefreshSecret.SecretValue()); err != nil {
		return "", err
	}

	return claims.Email, nil
}

// IssueReset issues a password reset token bound to the user's current
// password hash.
func (s *Service) IssueReset(user UserInfo, pwdHash string) (string, error) {
	return s.sign(&ResetClaims{
		RegisteredClaims: s.registered(s.cfg.ResetTTL),
		UserInfo:         user,
	}, s.resetSecret(pwdHash))
}

// VerifyReset verifies a password reset token against the user's
// current password hash. Callers must pass the hash from the live user
// record, never a cached copy: a token issued before a password change
// must fail against the new hash.
func (s *Service) VerifyReset(raw string, pwdHash string) (UserInfo, error) {
	var claims ResetClaims
	if err := s.verify(raw, &claims, s.resetSecret(pwdHash)); err != nil {
		return UserInfo{}, err
	}

	return claims.UserInfo, nil
}

// resetSecret derives the reset signing secret from the base secret and
// the current password hash.
func (s *Service) resetSecret(pwdHash string) []byte {
	base := s.cfg.AccessSecret.SecretValue()
	out := make([]byte, 0, len(base)+len(pwdHash))
	out = append(out, base...)
	out = append(out, pwdHash...)
	return out
}

func (s *Service) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := s.NowFunc()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Service) sign(claims jwt.Claims, secret []byte) (string, error) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return raw, nil
}

func (s *Service) verify(raw string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.NowFunc))
	if err != nil {
		return mapJWTErr(err)
	}

	return nil
}

func mapJWTErr(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignatureMismatch
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
