package krypto

import (
	"errors"
	"fmt"
)

// SecretMarker is a string we can look for in logs to see if the app
// is accidentally exposing secrets.
const SecretMarker = "<!SECRET_REDACTED!>"

var ErrEmptySecret = errors.New("empty secret")

// Secret is sensitive data that needs to be passed around but not
// exposed. Things like token signing keys or API credentials.
type Secret struct {
	value []byte
}

// NewSecret creates a new secret.
func NewSecret(raw string) Secret {
	return Secret{
		value: []byte(raw),
	}
}

// ParseSecret creates a new secret and errors if it's empty. Use this
// for secrets the app cannot run without, like token signing keys.
func ParseSecret(raw string) (Secret, error) {
	if raw == "" {
		return Secret{}, ErrEmptySecret
	}

	return NewSecret(raw), nil
}

func (s Secret) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

func (s *Secret) UnmarshalText(text []byte) error {
	secret, err := ParseSecret(string(text))
	if err != nil {
		return err
	}

	*s = secret

	return nil
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.value) == 0
}

// SecretValue returns the secret as a byte slice. This is provided
// as an escape hatch for cases where the secret needs to be provided
// to third party packages or libraries.
func (s Secret) SecretValue() []byte {
	return s.value
}
