package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
)

// User contains the data for a user.
type User struct {
	ID           uuid.UUID
	Email        email.Address
	PasswordHash BcryptHash
	IsActive     bool
	// ActivationToken is the opaque token the user has to present to
	// activate their account. It is set iff the user is inactive and
	// cleared in the same update that flips IsActive.
	ActivationToken *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
