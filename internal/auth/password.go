package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordBytes = 8
	// bcrypt only considers the first 72 bytes, refuse anything longer
	// instead of silently truncating.
	maxPasswordBytes = 72

	// hashCost is the bcrypt cost factor. Fixed, changing it only
	// affects newly hashed passwords.
	hashCost = 10

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = "<!SECRET_REDACTED!>"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidHash     = errors.New("invalid password hash")
)

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// There are only two operations allowed on a Password:
// - Converting it to a hash.
// - Comparing it with an existing hash to see if they match.
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// It errors if the password is too short or too long.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) < minPasswordBytes || len(pwd) > maxPasswordBytes {
		return Password{}, ErrInvalidPassword
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// Hash hashes the plaintext password using the bcrypt algorithm.
func (p Password) Hash() (BcryptHash, error) {
	h, err := bcrypt.GenerateFromPassword(p.plain, hashCost)
	if err != nil {
		return BcryptHash{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return BcryptHash{value: h}, nil
}

// Match checks if the plaintext password matches the given hash.
func (p Password) Match(h BcryptHash) bool {
	return bcrypt.CompareHashAndPassword(h.value, p.plain) == nil
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

func (p *Password) UnmarshalText(text []byte) error {
	pwd, err := ParsePassword(string(text))
	if err != nil {
		return err
	}

	*p = pwd

	return nil
}

// BcryptHash is a bcrypt password hash.
//
// The hash itself is not as sensitive as a plaintext password, but it
// still never belongs in logs or responses. String is the only way to
// get at the encoded value, it exists because the store persists it and
// the token service uses it as reset-secret material.
type BcryptHash struct {
	value []byte
}

// ParseBcryptHash parses an encoded bcrypt hash, like the ones stored
// in the users table.
func ParseBcryptHash(raw string) (BcryptHash, error) {
	// "$2a$", "$2b$" and "$2y$" are the bcrypt versions in the wild.
	if !strings.HasPrefix(raw, "$2") {
		return BcryptHash{}, ErrInvalidHash
	}

	if _, err := bcrypt.Cost([]byte(raw)); err != nil {
		return BcryptHash{}, ErrInvalidHash
	}

	return BcryptHash{value: []byte(raw)}, nil
}

// String returns the encoded hash.
func (h BcryptHash) String() string {
	return string(h.value)
}

// IsZero reports whether the hash is empty.
func (h BcryptHash) IsZero() bool {
	return len(h.value) == 0
}

// LogValue implements the slog.Valuer interface.
func (h BcryptHash) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

func (h BcryptHash) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (h BcryptHash) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}
