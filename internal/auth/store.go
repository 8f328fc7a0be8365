package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/email"
)

// UserFilter is used to filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs              []uuid.UUID
	Emails           []email.Address
	IsActive         *bool
	ActivationTokens []string
}

// SessionKeyFilter is used to filter session keys.
// Returned keys must match all the provided fields.
// If a field is empty or nil, it's ignored.
type SessionKeyFilter struct {
	IDs     []uuid.UUID
	UserIDs []uuid.UUID
}

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the methods, the
// transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	UpdateUser(u *User) error
	DeleteUser(id uuid.UUID) error
	FindUsers(filter *UserFilter) ([]User, error)

	CreateSessionKey(k *SessionKey) error
	DeleteSessionKeys(filter *SessionKeyFilter) error
	FindSessionKeys(filter *SessionKeyFilter) ([]SessionKey, error)
}
