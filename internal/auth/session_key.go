package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionKey is the server-side record of one issued refresh session.
// One is created on every successful login. Deleting a user's session
// keys revokes all their refresh sessions at once: on password change
// they are deleted explicitly, on account deletion the database
// cascades the delete.
type SessionKey struct {
	ID     uuid.UUID
	UserID uuid.UUID
	// UserAgent is informational metadata about the client the
	// session was issued to. May be empty.
	UserAgent string
	IssuedAt  time.Time
}
